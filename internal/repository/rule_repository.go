package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrDuplicateSlot signals a write that would create a second active rule
// for the same (product, sku, priority) slot.
var ErrDuplicateSlot = errors.New("active rule already exists for slot")

// RuleRepository encapsulates SLA rule persistence. Only the candidate
// lookup is exercised on the resolution path; the rest is the
// administrative write boundary.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.SLARule) error
	Update(ctx context.Context, rule *domain.SLARule) error
	GetByID(ctx context.Context, id string) (*domain.SLARule, error)
	List(ctx context.Context, includeInactive bool, limit, offset int) ([]domain.SLARule, error)
	ListCandidates(ctx context.Context, product string, priority domain.Priority) ([]domain.SLARule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `id, product_name, sku, priority, first_response_hours, resolution_hours,
               business_hours_only, escalation_after_hours, escalation_target, active,
               created_at, updated_at`

func (r *ruleRepository) Create(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        INSERT INTO sla_rules (product_name, sku, priority, first_response_hours, resolution_hours,
            business_hours_only, escalation_after_hours, escalation_target, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		rule.ProductName,
		rule.SKU,
		rule.Priority,
		rule.FirstResponseHours,
		rule.ResolutionHours,
		rule.BusinessHoursOnly,
		rule.EscalationAfterHours,
		rule.EscalationTarget,
		rule.Active,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	return mapUniqueViolation(err)
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.SLARule) error {
	const query = `
        UPDATE sla_rules SET product_name=$1, sku=$2, priority=$3, first_response_hours=$4,
            resolution_hours=$5, business_hours_only=$6, escalation_after_hours=$7,
            escalation_target=$8, active=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		rule.ProductName,
		rule.SKU,
		rule.Priority,
		rule.FirstResponseHours,
		rule.ResolutionHours,
		rule.BusinessHoursOnly,
		rule.EscalationAfterHours,
		rule.EscalationTarget,
		rule.Active,
		rule.ID,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.SLARule, error) {
	query := `SELECT ` + ruleColumns + ` FROM sla_rules WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanRule(row)
}

func (r *ruleRepository) List(ctx context.Context, includeInactive bool, limit, offset int) ([]domain.SLARule, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ruleColumns + ` FROM sla_rules`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY product_name, priority, sku NULLS LAST LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListCandidates returns every active rule that could govern the given
// product and priority, including the DEFAULT catch-all. Precedence is
// decided by the resolver, not here.
func (r *ruleRepository) ListCandidates(ctx context.Context, product string, priority domain.Priority) ([]domain.SLARule, error) {
	query := `SELECT ` + ruleColumns + `
        FROM sla_rules
        WHERE active AND priority=$2 AND product_name IN ($1, $3)`
	rows, err := r.pool.Query(ctx, query, product, priority, domain.DefaultProduct)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRule(row pgx.Row) (*domain.SLARule, error) {
	var rule domain.SLARule
	if err := row.Scan(
		&rule.ID,
		&rule.ProductName,
		&rule.SKU,
		&rule.Priority,
		&rule.FirstResponseHours,
		&rule.ResolutionHours,
		&rule.BusinessHoursOnly,
		&rule.EscalationAfterHours,
		&rule.EscalationTarget,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

func scanRules(rows pgx.Rows) ([]domain.SLARule, error) {
	var result []domain.SLARule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSlot
	}
	return err
}
