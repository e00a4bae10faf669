package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/calendar"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

func testCalendar(t *testing.T) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New(config.CalendarConfig{
		Timezone: "UTC",
		Open:     "09:00",
		Close:    "17:00",
		Workdays: "mon,tue,wed,thu,fri",
	})
	require.NoError(t, err)
	return cal
}

type trackerFixture struct {
	tracker    *TrackerService
	rules      *RuleService
	clockRepo  *memClockRepo
	ruleRepo   *memRuleRepo
	dispatcher *recordingDispatcher
}

func newTrackerFixture(t *testing.T) *trackerFixture {
	t.Helper()
	ruleRepo := newMemRuleRepo()
	clockRepo := newMemClockRepo(ruleRepo)
	dispatcher := &recordingDispatcher{}
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	rules := NewRuleService(RuleDependencies{RuleRepo: ruleRepo, Metrics: metrics, Logger: logger})
	tracker := NewTrackerService(TrackerDependencies{
		ClockRepo:  clockRepo,
		Resolver:   rules,
		Calendar:   testCalendar(t),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	return &trackerFixture{
		tracker:    tracker,
		rules:      rules,
		clockRepo:  clockRepo,
		ruleRepo:   ruleRepo,
		dispatcher: dispatcher,
	}
}

func (f *trackerFixture) seedRule(t *testing.T, rule domain.SLARule) *domain.SLARule {
	t.Helper()
	rule.Active = true
	created, err := f.rules.CreateRule(context.Background(), &rule)
	require.NoError(t, err)
	return created
}

// Friday 16:00 UTC, one business hour before close.
var fridayLate = time.Date(2024, time.March, 8, 16, 0, 0, 0, time.UTC)

func TestStartTrackingComputesBusinessHourDues(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    8,
		BusinessHoursOnly:  true,
	})

	clock, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: fridayLate,
	})
	require.NoError(t, err)

	// 1h remains on Friday; the rest lands on Monday from 09:00.
	assert.Equal(t, time.Date(2024, time.March, 11, 12, 0, 0, 0, time.UTC), clock.FirstResponseDueAt)
	assert.Equal(t, time.Date(2024, time.March, 11, 16, 0, 0, 0, time.UTC), clock.ResolutionDueAt)
	assert.Equal(t, domain.ClockStateRunning, clock.State)

	started := f.dispatcher.byType(events.EventClockStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "req-1", started[0].RequestID)
}

func TestStartTrackingWallClockDues(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityUrgent,
		FirstResponseHours: 1,
		ResolutionHours:    4,
	})

	clock, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityUrgent,
		CreatedAt: fridayLate,
	})
	require.NoError(t, err)

	// 24/7 rules ignore the calendar entirely.
	assert.Equal(t, fridayLate.Add(time.Hour), clock.FirstResponseDueAt)
	assert.Equal(t, fridayLate.Add(4*time.Hour), clock.ResolutionDueAt)
}

func TestStartTrackingFailsWithoutRule(t *testing.T) {
	f := newTrackerFixture(t)

	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: fridayLate,
	})
	require.Error(t, err)
	assert.Equal(t, "NO_MATCHING_RULE", apperrors.ToDomainError(err).Code)
}

func TestPauseShiftsEffectiveDue(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    24,
	})
	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: start,
	})
	require.NoError(t, err)

	_, err = f.tracker.Pause(context.Background(), "req-1", start.Add(2*time.Hour))
	require.NoError(t, err)
	clock, err := f.tracker.Resume(context.Background(), "req-1", start.Add(5*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Hour, clock.AccumulatedPause)
	assert.Equal(t, start.Add(24*time.Hour+3*time.Hour), clock.EffectiveResolutionDue(start.Add(6*time.Hour)))

	paused := f.dispatcher.byType(events.EventClockPaused)
	resumed := f.dispatcher.byType(events.EventClockResumed)
	require.Len(t, paused, 1)
	require.Len(t, resumed, 1)
}

func TestDuplicateTransitionsAreAbsorbed(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    24,
	})
	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: start,
	})
	require.NoError(t, err)

	_, err = f.tracker.Pause(context.Background(), "req-1", start.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.tracker.Pause(context.Background(), "req-1", start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.byType(events.EventClockPaused), 1)

	_, err = f.tracker.Resume(context.Background(), "req-1", start.Add(3*time.Hour))
	require.NoError(t, err)
	_, err = f.tracker.Resume(context.Background(), "req-1", start.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.byType(events.EventClockResumed), 1)

	_, err = f.tracker.MarkFirstResponse(context.Background(), "req-1", start.Add(time.Minute))
	require.NoError(t, err)
	clock, err := f.tracker.MarkFirstResponse(context.Background(), "req-1", start.Add(5*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, clock.FirstResponseMetAt)
	assert.Equal(t, start.Add(time.Minute), *clock.FirstResponseMetAt)
	assert.Len(t, f.dispatcher.byType(events.EventFirstResponse), 1)
}

func TestApplyStatusUsesMapping(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    24,
	})
	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: start,
	})
	require.NoError(t, err)

	clock, err := f.tracker.ApplyStatus(context.Background(), "req-1", domain.RequestStatusPendingUser, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ClockStatePaused, clock.State)

	clock, err = f.tracker.ApplyStatus(context.Background(), "req-1", domain.RequestStatusInProgress, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ClockStateRunning, clock.State)
	assert.Equal(t, time.Hour, clock.AccumulatedPause)

	// Unknown statuses leave the clock untouched.
	clock, err = f.tracker.ApplyStatus(context.Background(), "req-1", domain.RequestStatus("TRIAGED"), start.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ClockStateRunning, clock.State)

	clock, err = f.tracker.ApplyStatus(context.Background(), "req-1", domain.RequestStatusResolved, start.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ClockStateStopped, clock.State)
	assert.Len(t, f.dispatcher.byType(events.EventClockStopped), 1)
}

func TestStopFreezesClock(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    24,
	})
	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: start,
	})
	require.NoError(t, err)

	stopped, err := f.tracker.Stop(context.Background(), "req-1", start.Add(6*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, stopped.StoppedAt)

	// Post-stop transitions are no-ops, not errors.
	clock, err := f.tracker.Pause(context.Background(), "req-1", start.Add(7*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ClockStateStopped, clock.State)
	clock, err = f.tracker.Resume(context.Background(), "req-1", start.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ClockStateStopped, clock.State)
	assert.Len(t, f.dispatcher.byType(events.EventClockStopped), 1)
}

func TestIsBreachedDerivedFromDeadline(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    24,
	})
	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityHigh,
		CreatedAt: start,
	})
	require.NoError(t, err)

	breached, err := f.tracker.IsBreached(context.Background(), "req-1", start.Add(23*time.Hour))
	require.NoError(t, err)
	assert.False(t, breached)

	breached, err = f.tracker.IsBreached(context.Background(), "req-1", start.Add(25*time.Hour))
	require.NoError(t, err)
	assert.True(t, breached)

	// Resolving late does not rewrite history.
	_, err = f.tracker.Stop(context.Background(), "req-1", start.Add(26*time.Hour))
	require.NoError(t, err)
	breached, err = f.tracker.IsBreached(context.Background(), "req-1", start.Add(30*time.Hour))
	require.NoError(t, err)
	assert.True(t, breached)
}

func TestReresolveRecomputesFromCreation(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityMedium,
		FirstResponseHours: 8,
		ResolutionHours:    48,
	})
	urgentRule := f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityUrgent,
		FirstResponseHours: 1,
		ResolutionHours:    8,
	})

	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityMedium,
		CreatedAt: start,
	})
	require.NoError(t, err)

	_, err = f.tracker.Pause(context.Background(), "req-1", start.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.tracker.Resume(context.Background(), "req-1", start.Add(3*time.Hour))
	require.NoError(t, err)

	clock, err := f.tracker.Reresolve(context.Background(), "req-1", domain.Classification{
		Product:  "widget",
		Priority: domain.PriorityUrgent,
	})
	require.NoError(t, err)
	assert.Equal(t, urgentRule.ID, clock.RuleID)
	assert.Equal(t, domain.PriorityUrgent, clock.Priority)
	// Dues anchor to the original creation instant, pause credit survives.
	assert.Equal(t, start.Add(8*time.Hour), clock.ResolutionDueAt)
	assert.Equal(t, 2*time.Hour, clock.AccumulatedPause)
	assert.Equal(t, start.Add(10*time.Hour), clock.EffectiveResolutionDue(start.Add(4*time.Hour)))
}

func TestReresolveRejectsStoppedClock(t *testing.T) {
	f := newTrackerFixture(t)
	f.seedRule(t, domain.SLARule{
		ProductName:        "widget",
		Priority:           domain.PriorityMedium,
		FirstResponseHours: 8,
		ResolutionHours:    48,
	})

	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := f.tracker.StartTracking(context.Background(), StartInput{
		RequestID: "req-1",
		Product:   "widget",
		Priority:  domain.PriorityMedium,
		CreatedAt: start,
	})
	require.NoError(t, err)
	_, err = f.tracker.Stop(context.Background(), "req-1", start.Add(time.Hour))
	require.NoError(t, err)

	_, err = f.tracker.Reresolve(context.Background(), "req-1", domain.Classification{
		Product:  "widget",
		Priority: domain.PriorityMedium,
	})
	require.Error(t, err)
	assert.Equal(t, "CLOCK_STOPPED", apperrors.ToDomainError(err).Code)
}
