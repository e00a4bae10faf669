package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// TrackerService owns the per-request SLA clock: it starts clocks on the
// request-creation path and applies pause/resume/stop transitions on the
// status-change path. Due instants are computed once here; later
// transitions only shift them additively.
type TrackerService struct {
	clocks     repository.ClockRepository
	resolver   *RuleService
	cal        *calendar.Calendar
	mapping    domain.StatusMapping
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TrackerDependencies bundles collaborators for the tracker.
type TrackerDependencies struct {
	ClockRepo  repository.ClockRepository
	Resolver   *RuleService
	Calendar   *calendar.Calendar
	Mapping    domain.StatusMapping
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// StartInput is the classification received from the request collaborator.
type StartInput struct {
	RequestID string
	Product   string
	SKU       *string
	Priority  domain.Priority
	CreatedAt time.Time
}

// NewTrackerService constructs the service.
func NewTrackerService(deps TrackerDependencies) *TrackerService {
	mapping := deps.Mapping
	if mapping == nil {
		mapping = domain.DefaultStatusMapping()
	}
	return &TrackerService{
		clocks:     deps.ClockRepo,
		resolver:   deps.Resolver,
		cal:        deps.Calendar,
		mapping:    mapping,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// StartTracking resolves the governing rule and creates a running clock
// with both due instants computed against the calendar.
func (s *TrackerService) StartTracking(ctx context.Context, input StartInput) (*domain.SLAClock, error) {
	rule, err := s.resolver.Resolve(ctx, domain.Classification{
		Product:  input.Product,
		SKU:      input.SKU,
		Priority: input.Priority,
	})
	if err != nil {
		return nil, err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	clock := &domain.SLAClock{
		RequestID:          input.RequestID,
		RuleID:             rule.ID,
		Product:            input.Product,
		SKU:                input.SKU,
		Priority:           input.Priority,
		BusinessHoursOnly:  rule.BusinessHoursOnly,
		CreatedAt:          createdAt,
		FirstResponseDueAt: s.cal.Add(createdAt, rule.FirstResponseDuration(), rule.BusinessHoursOnly),
		ResolutionDueAt:    s.cal.Add(createdAt, rule.ResolutionDuration(), rule.BusinessHoursOnly),
		State:              domain.ClockStateRunning,
	}
	if err := s.clocks.Create(ctx, clock); err != nil {
		return nil, err
	}
	s.metrics.RecordClockStarted()
	s.publishEvent(ctx, events.Event{
		Type:      events.EventClockStarted,
		RequestID: clock.RequestID,
		Payload: events.ClockStartedPayload{
			RuleID:             rule.ID,
			Priority:           clock.Priority,
			BusinessHoursOnly:  clock.BusinessHoursOnly,
			FirstResponseDueAt: clock.FirstResponseDueAt,
			ResolutionDueAt:    clock.ResolutionDueAt,
		},
	})
	return clock, nil
}

// MarkFirstResponse records the first reply instant once; repeats are
// absorbed silently.
func (s *TrackerService) MarkFirstResponse(ctx context.Context, requestID string, at time.Time) (*domain.SLAClock, error) {
	return s.transition(ctx, requestID, at, func(clock *domain.SLAClock) (bool, events.Event) {
		if !clock.MarkFirstResponse(at) {
			return false, events.Event{}
		}
		return true, events.Event{
			Type:      events.EventFirstResponse,
			RequestID: clock.RequestID,
			Payload: events.FirstResponsePayload{
				MetAt:    at,
				Breached: clock.FirstResponseBreached(at),
			},
		}
	})
}

// Pause stops SLA time from accruing, e.g. while waiting on the customer.
func (s *TrackerService) Pause(ctx context.Context, requestID string, at time.Time) (*domain.SLAClock, error) {
	return s.transition(ctx, requestID, at, func(clock *domain.SLAClock) (bool, events.Event) {
		if !clock.Pause(at) {
			return false, events.Event{}
		}
		return true, events.Event{
			Type:      events.EventClockPaused,
			RequestID: clock.RequestID,
			Payload:   events.ClockPausedPayload{PausedAt: at},
		}
	})
}

// Resume restarts a paused clock without drift.
func (s *TrackerService) Resume(ctx context.Context, requestID string, at time.Time) (*domain.SLAClock, error) {
	return s.transition(ctx, requestID, at, func(clock *domain.SLAClock) (bool, events.Event) {
		if !clock.Resume(at) {
			return false, events.Event{}
		}
		return true, events.Event{
			Type:      events.EventClockResumed,
			RequestID: clock.RequestID,
			Payload: events.ClockResumedPayload{
				ResumedAt:        at,
				AccumulatedPause: clock.AccumulatedPause,
			},
		}
	})
}

// Stop terminates tracking; the clock's fields are frozen afterwards.
func (s *TrackerService) Stop(ctx context.Context, requestID string, at time.Time) (*domain.SLAClock, error) {
	return s.transition(ctx, requestID, at, func(clock *domain.SLAClock) (bool, events.Event) {
		if !clock.Stop(at) {
			return false, events.Event{}
		}
		return true, events.Event{
			Type:      events.EventClockStopped,
			RequestID: clock.RequestID,
			Payload: events.ClockStoppedPayload{
				StoppedAt: at,
				Breached:  clock.IsBreached(at),
			},
		}
	})
}

// ApplyStatus translates a raw request status through the configured
// mapping and applies the resulting clock action.
func (s *TrackerService) ApplyStatus(ctx context.Context, requestID string, status domain.RequestStatus, at time.Time) (*domain.SLAClock, error) {
	switch s.mapping.ActionFor(status) {
	case domain.ClockActionPause:
		return s.Pause(ctx, requestID, at)
	case domain.ClockActionResume:
		return s.Resume(ctx, requestID, at)
	case domain.ClockActionStop:
		return s.Stop(ctx, requestID, at)
	default:
		return s.GetClock(ctx, requestID)
	}
}

// GetClock fetches the clock for a request.
func (s *TrackerService) GetClock(ctx context.Context, requestID string) (*domain.SLAClock, error) {
	return s.clocks.GetByRequestID(ctx, requestID)
}

// IsBreached answers the dashboard breach predicate for a request.
func (s *TrackerService) IsBreached(ctx context.Context, requestID string, at time.Time) (bool, error) {
	clock, err := s.clocks.GetByRequestID(ctx, requestID)
	if err != nil {
		return false, err
	}
	return clock.IsBreached(at), nil
}

// Reresolve re-runs rule resolution for an existing clock after its
// classification changed. This is the only path that replaces a clock's
// rule; admin edits never do it implicitly. Due instants are recomputed
// from the original creation instant; accumulated pause is preserved.
func (s *TrackerService) Reresolve(ctx context.Context, requestID string, cls domain.Classification) (*domain.SLAClock, error) {
	clock, err := s.clocks.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if clock.State == domain.ClockStateStopped {
		return nil, apperrors.NewDomainError("CLOCK_STOPPED", "cannot re-resolve a stopped clock", http.StatusConflict, nil)
	}
	rule, err := s.resolver.Resolve(ctx, cls)
	if err != nil {
		return nil, err
	}
	clock.RuleID = rule.ID
	clock.Product = cls.Product
	clock.SKU = cls.SKU
	clock.Priority = cls.Priority
	clock.BusinessHoursOnly = rule.BusinessHoursOnly
	clock.FirstResponseDueAt = s.cal.Add(clock.CreatedAt, rule.FirstResponseDuration(), rule.BusinessHoursOnly)
	clock.ResolutionDueAt = s.cal.Add(clock.CreatedAt, rule.ResolutionDuration(), rule.BusinessHoursOnly)
	if err := s.clocks.Update(ctx, clock); err != nil {
		return nil, err
	}
	s.logger.Info("clock re-resolved",
		zap.String("request_id", requestID),
		zap.String("rule_id", rule.ID))
	return clock, nil
}

// transition loads the clock, applies a state change and persists it when
// anything actually changed. No-op transitions are logged, never errors;
// duplicate or replayed status events must be tolerated.
func (s *TrackerService) transition(ctx context.Context, requestID string, at time.Time, apply func(*domain.SLAClock) (bool, events.Event)) (*domain.SLAClock, error) {
	clock, err := s.clocks.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	changed, event := apply(clock)
	if !changed {
		s.logger.Debug("clock transition absorbed as no-op",
			zap.String("request_id", requestID),
			zap.String("state", string(clock.State)),
			zap.Time("at", at))
		return clock, nil
	}
	if err := s.clocks.Update(ctx, clock); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, event)
	return clock, nil
}

func (s *TrackerService) publishEvent(ctx context.Context, event events.Event) {
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
