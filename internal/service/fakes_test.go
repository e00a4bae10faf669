package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// memRuleRepo is an in-memory stand-in for the postgres rule store.
type memRuleRepo struct {
	mu    sync.Mutex
	rules map[string]*domain.SLARule
}

func newMemRuleRepo() *memRuleRepo {
	return &memRuleRepo{rules: make(map[string]*domain.SLARule)}
}

func (r *memRuleRepo) Create(_ context.Context, rule *domain.SLARule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.Active {
		for _, existing := range r.rules {
			if existing.Active && existing.SameSlot(rule) {
				return repository.ErrDuplicateSlot
			}
		}
	}
	rule.ID = uuid.NewString()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

func (r *memRuleRepo) Update(_ context.Context, rule *domain.SLARule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return pgx.ErrNoRows
	}
	if rule.Active {
		for id, existing := range r.rules {
			if id != rule.ID && existing.Active && existing.SameSlot(rule) {
				return repository.ErrDuplicateSlot
			}
		}
	}
	rule.UpdatedAt = time.Now()
	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, id string) (*domain.SLARule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rule
	return &copied, nil
}

func (r *memRuleRepo) List(_ context.Context, includeInactive bool, limit, offset int) ([]domain.SLARule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SLARule
	for _, rule := range r.rules {
		if !includeInactive && !rule.Active {
			continue
		}
		result = append(result, *rule)
	}
	return result, nil
}

func (r *memRuleRepo) ListCandidates(_ context.Context, product string, priority domain.Priority) ([]domain.SLARule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SLARule
	for _, rule := range r.rules {
		if !rule.Active || rule.Priority != priority {
			continue
		}
		if rule.ProductName != product && !rule.IsDefault() {
			continue
		}
		result = append(result, *rule)
	}
	return result, nil
}

// memClockRepo is an in-memory stand-in for the postgres clock store.
type memClockRepo struct {
	mu     sync.Mutex
	clocks map[string]*domain.SLAClock // keyed by request ID
	rules  *memRuleRepo

	failNextCAS bool
}

func newMemClockRepo(rules *memRuleRepo) *memClockRepo {
	return &memClockRepo{clocks: make(map[string]*domain.SLAClock), rules: rules}
}

func (r *memClockRepo) Create(_ context.Context, clock *domain.SLAClock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clock.ID = uuid.NewString()
	clock.UpdatedAt = time.Now()
	stored := *clock
	r.clocks[clock.RequestID] = &stored
	return nil
}

func (r *memClockRepo) Update(_ context.Context, clock *domain.SLAClock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.clocks[clock.RequestID]
	if !ok {
		return pgx.ErrNoRows
	}
	// escalated_at is owned by MarkEscalated, mirroring the SQL update.
	escalatedAt := existing.EscalatedAt
	stored := *clock
	stored.EscalatedAt = escalatedAt
	stored.UpdatedAt = time.Now()
	r.clocks[clock.RequestID] = &stored
	return nil
}

func (r *memClockRepo) GetByRequestID(_ context.Context, requestID string) (*domain.SLAClock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clock, ok := r.clocks[requestID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *clock
	return &copied, nil
}

func (r *memClockRepo) ListEscalatable(ctx context.Context) ([]repository.ClockWithRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []repository.ClockWithRule
	for _, clock := range r.clocks {
		if clock.State == domain.ClockStateStopped || clock.EscalatedAt != nil {
			continue
		}
		rule, ok := r.rules.rules[clock.RuleID]
		if !ok || rule.EscalationAfterHours == nil {
			continue
		}
		result = append(result, repository.ClockWithRule{Clock: *clock, Rule: *rule})
	}
	return result, nil
}

func (r *memClockRepo) ListActive(_ context.Context, limit, offset int) ([]domain.SLAClock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SLAClock
	for _, clock := range r.clocks {
		if clock.State == domain.ClockStateStopped {
			continue
		}
		result = append(result, *clock)
	}
	return result, nil
}

func (r *memClockRepo) MarkEscalated(_ context.Context, clockID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextCAS {
		r.failNextCAS = false
		return false, nil
	}
	for _, clock := range r.clocks {
		if clock.ID != clockID {
			continue
		}
		if clock.EscalatedAt != nil {
			return false, nil
		}
		t := at
		clock.EscalatedAt = &t
		return true, nil
	}
	return false, pgx.ErrNoRows
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
