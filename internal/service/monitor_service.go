package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// MonitorService periodically sweeps active clocks for escalation
// thresholds and derives breach state for reporting. It only ever writes
// escalated_at, and only under a compare-and-set.
type MonitorService struct {
	clocks     repository.ClockRepository
	cal        *calendar.Calendar
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// MonitorDependencies bundles collaborators for the monitor.
type MonitorDependencies struct {
	ClockRepo  repository.ClockRepository
	Calendar   *calendar.Calendar
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Scanned   int
	Escalated int
	Breached  int
}

// NewMonitorService constructs the service.
func NewMonitorService(deps MonitorDependencies) *MonitorService {
	return &MonitorService{
		clocks:     deps.ClockRepo,
		cal:        deps.Calendar,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Sweep evaluates every escalatable clock once. Re-running a sweep with no
// intervening state change never double-fires: the repository's
// compare-and-set on escalated_at guards emission.
func (s *MonitorService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	items, err := s.clocks.ListEscalatable(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(items)}
	for i := range items {
		clock := &items[i].Clock
		rule := &items[i].Rule

		if clock.IsBreached(now) {
			result.Breached++
		}

		threshold, hasEscalation := rule.EscalationAfter()
		if !hasEscalation || clock.EscalatedAt != nil {
			continue
		}
		elapsed := s.cal.Elapsed(clock.CreatedAt, clock.PauseAdjustedNow(now), rule.BusinessHoursOnly)
		if elapsed < threshold {
			continue
		}

		won, err := s.clocks.MarkEscalated(ctx, clock.ID, now)
		if err != nil {
			s.logger.Error("mark escalated", zap.String("request_id", clock.RequestID), zap.Error(err))
			continue
		}
		if !won {
			// lost the compare-and-set to a concurrent sweep; that sweep emits
			continue
		}
		result.Escalated++

		target := ""
		if rule.EscalationTarget != nil {
			target = *rule.EscalationTarget
		}
		s.publishEvent(ctx, events.Event{
			Type:      events.EventEscalated,
			RequestID: clock.RequestID,
			Payload: events.EscalatedPayload{
				RequestID:        clock.RequestID,
				EscalatedAt:      now,
				EscalationTarget: target,
			},
		})
		s.logger.Info("clock escalated",
			zap.String("request_id", clock.RequestID),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", threshold))
	}

	s.metrics.RecordSweep(result.Escalated, result.Breached)
	return result, nil
}

// ListBreached returns active clocks currently past their pause-adjusted
// resolution deadline. Breach is derived on read, never stored.
func (s *MonitorService) ListBreached(ctx context.Context, now time.Time, limit, offset int) ([]domain.SLAClock, error) {
	clocks, err := s.clocks.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	breached := make([]domain.SLAClock, 0, len(clocks))
	for _, clock := range clocks {
		if clock.IsBreached(now) {
			breached = append(breached, clock)
		}
	}
	return breached, nil
}

func (s *MonitorService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
