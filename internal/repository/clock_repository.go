package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ClockWithRule pairs an active clock with its resolved rule for the
// escalation sweep.
type ClockWithRule struct {
	Clock domain.SLAClock
	Rule  domain.SLARule
}

// ClockRepository encapsulates SLA clock persistence.
type ClockRepository interface {
	Create(ctx context.Context, clock *domain.SLAClock) error
	Update(ctx context.Context, clock *domain.SLAClock) error
	GetByRequestID(ctx context.Context, requestID string) (*domain.SLAClock, error)
	ListEscalatable(ctx context.Context) ([]ClockWithRule, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.SLAClock, error)
	MarkEscalated(ctx context.Context, clockID string, at time.Time) (bool, error)
}

type clockRepository struct {
	pool *pgxpool.Pool
}

// NewClockRepository instantiates repository.
func NewClockRepository(pool *pgxpool.Pool) ClockRepository {
	return &clockRepository{pool: pool}
}

const clockColumns = `id, request_id, rule_id, product_name, sku, priority, business_hours_only,
               created_at, first_response_due_at, resolution_due_at, first_response_met_at,
               clock_state, paused_at, accumulated_pause_seconds, escalated_at, stopped_at, updated_at`

func (r *clockRepository) Create(ctx context.Context, clock *domain.SLAClock) error {
	const query = `
        INSERT INTO sla_clocks (request_id, rule_id, product_name, sku, priority, business_hours_only,
            created_at, first_response_due_at, resolution_due_at, clock_state, accumulated_pause_seconds)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		clock.RequestID,
		clock.RuleID,
		clock.Product,
		clock.SKU,
		clock.Priority,
		clock.BusinessHoursOnly,
		clock.CreatedAt,
		clock.FirstResponseDueAt,
		clock.ResolutionDueAt,
		clock.State,
		int64(clock.AccumulatedPause/time.Second),
	).Scan(&clock.ID, &clock.UpdatedAt)
}

func (r *clockRepository) Update(ctx context.Context, clock *domain.SLAClock) error {
	const query = `
        UPDATE sla_clocks SET rule_id=$1, product_name=$2, sku=$3, priority=$4, business_hours_only=$5,
            first_response_due_at=$6, resolution_due_at=$7, first_response_met_at=$8, clock_state=$9,
            paused_at=$10, accumulated_pause_seconds=$11, stopped_at=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		clock.RuleID,
		clock.Product,
		clock.SKU,
		clock.Priority,
		clock.BusinessHoursOnly,
		clock.FirstResponseDueAt,
		clock.ResolutionDueAt,
		clock.FirstResponseMetAt,
		clock.State,
		clock.PausedAt,
		int64(clock.AccumulatedPause/time.Second),
		clock.StoppedAt,
		clock.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clockRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.SLAClock, error) {
	query := `SELECT ` + clockColumns + ` FROM sla_clocks WHERE request_id=$1`
	return scanClock(r.pool.QueryRow(ctx, query, requestID))
}

// ListEscalatable returns non-stopped, not-yet-escalated clocks whose rule
// defines an escalation threshold.
func (r *clockRepository) ListEscalatable(ctx context.Context) ([]ClockWithRule, error) {
	query := `
        SELECT c.id, c.request_id, c.rule_id, c.product_name, c.sku, c.priority, c.business_hours_only,
               c.created_at, c.first_response_due_at, c.resolution_due_at, c.first_response_met_at,
               c.clock_state, c.paused_at, c.accumulated_pause_seconds, c.escalated_at, c.stopped_at, c.updated_at,
               r.id, r.product_name, r.sku, r.priority, r.first_response_hours, r.resolution_hours,
               r.business_hours_only, r.escalation_after_hours, r.escalation_target, r.active,
               r.created_at, r.updated_at
        FROM sla_clocks c
        JOIN sla_rules r ON r.id = c.rule_id
        WHERE c.clock_state <> 'stopped'
          AND c.escalated_at IS NULL
          AND r.escalation_after_hours IS NOT NULL`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ClockWithRule
	for rows.Next() {
		var item ClockWithRule
		var pauseSeconds int64
		if err := rows.Scan(
			&item.Clock.ID,
			&item.Clock.RequestID,
			&item.Clock.RuleID,
			&item.Clock.Product,
			&item.Clock.SKU,
			&item.Clock.Priority,
			&item.Clock.BusinessHoursOnly,
			&item.Clock.CreatedAt,
			&item.Clock.FirstResponseDueAt,
			&item.Clock.ResolutionDueAt,
			&item.Clock.FirstResponseMetAt,
			&item.Clock.State,
			&item.Clock.PausedAt,
			&pauseSeconds,
			&item.Clock.EscalatedAt,
			&item.Clock.StoppedAt,
			&item.Clock.UpdatedAt,
			&item.Rule.ID,
			&item.Rule.ProductName,
			&item.Rule.SKU,
			&item.Rule.Priority,
			&item.Rule.FirstResponseHours,
			&item.Rule.ResolutionHours,
			&item.Rule.BusinessHoursOnly,
			&item.Rule.EscalationAfterHours,
			&item.Rule.EscalationTarget,
			&item.Rule.Active,
			&item.Rule.CreatedAt,
			&item.Rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Clock.AccumulatedPause = time.Duration(pauseSeconds) * time.Second
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *clockRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.SLAClock, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + clockColumns + `
        FROM sla_clocks WHERE clock_state <> 'stopped'
        ORDER BY resolution_due_at LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAClock
	for rows.Next() {
		clock, err := scanClock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *clock)
	}
	return result, rows.Err()
}

// MarkEscalated sets escalated_at only when still unset, so concurrent
// sweeps emit at most one escalation per clock.
func (r *clockRepository) MarkEscalated(ctx context.Context, clockID string, at time.Time) (bool, error) {
	const query = `
        UPDATE sla_clocks SET escalated_at=$2, updated_at=NOW()
        WHERE id=$1 AND escalated_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, clockID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanClock(row pgx.Row) (*domain.SLAClock, error) {
	var clock domain.SLAClock
	var pauseSeconds int64
	if err := row.Scan(
		&clock.ID,
		&clock.RequestID,
		&clock.RuleID,
		&clock.Product,
		&clock.SKU,
		&clock.Priority,
		&clock.BusinessHoursOnly,
		&clock.CreatedAt,
		&clock.FirstResponseDueAt,
		&clock.ResolutionDueAt,
		&clock.FirstResponseMetAt,
		&clock.State,
		&clock.PausedAt,
		&pauseSeconds,
		&clock.EscalatedAt,
		&clock.StoppedAt,
		&clock.UpdatedAt,
	); err != nil {
		return nil, err
	}
	clock.AccumulatedPause = time.Duration(pauseSeconds) * time.Second
	return &clock, nil
}
