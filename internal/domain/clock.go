package domain

import "time"

// ClockState enumerates lifecycle states for SLA clocks.
type ClockState string

const (
	ClockStateRunning ClockState = "running"
	ClockStatePaused  ClockState = "paused"
	ClockStateStopped ClockState = "stopped"
)

// SLAClock tracks the response and resolution deadlines for one request.
// Due instants are computed once at creation against the business-hours
// calendar; pause periods shift them additively afterwards, so no calendar
// walk is needed on status changes.
type SLAClock struct {
	ID                 string
	RequestID          string
	RuleID             string
	Product            string
	SKU                *string
	Priority           Priority
	BusinessHoursOnly  bool
	CreatedAt          time.Time
	FirstResponseDueAt time.Time
	ResolutionDueAt    time.Time
	FirstResponseMetAt *time.Time
	State              ClockState
	PausedAt           *time.Time
	AccumulatedPause   time.Duration
	EscalatedAt        *time.Time
	StoppedAt          *time.Time
	UpdatedAt          time.Time
}

// MarkFirstResponse records the first substantive reply. Repeat calls are
// no-ops so duplicate events never overwrite the original instant.
func (c *SLAClock) MarkFirstResponse(at time.Time) bool {
	if c.State == ClockStateStopped || c.FirstResponseMetAt != nil {
		return false
	}
	t := at
	c.FirstResponseMetAt = &t
	return true
}

// Pause stops the clock from accruing SLA time. Pausing an already paused
// clock is a no-op, which absorbs duplicate status-change events.
func (c *SLAClock) Pause(at time.Time) bool {
	if c.State != ClockStateRunning {
		return false
	}
	t := at
	c.PausedAt = &t
	c.State = ClockStatePaused
	return true
}

// Resume restarts the clock, folding the elapsed pause span into
// AccumulatedPause. Resuming a running clock is a no-op.
func (c *SLAClock) Resume(at time.Time) bool {
	if c.State != ClockStatePaused || c.PausedAt == nil {
		return false
	}
	// AccumulatedPause is monotonically non-decreasing.
	if span := at.Sub(*c.PausedAt); span > 0 {
		c.AccumulatedPause += span
	}
	c.PausedAt = nil
	c.State = ClockStateRunning
	return true
}

// Stop terminates tracking. An outstanding pause span is folded in first so
// every field is frozen afterwards.
func (c *SLAClock) Stop(at time.Time) bool {
	switch c.State {
	case ClockStateRunning:
	case ClockStatePaused:
		if c.PausedAt != nil {
			if span := at.Sub(*c.PausedAt); span > 0 {
				c.AccumulatedPause += span
			}
			c.PausedAt = nil
		}
	default:
		return false
	}
	t := at
	c.StoppedAt = &t
	c.State = ClockStateStopped
	return true
}

// effectiveDue shifts a due instant forward by the pause time accrued so
// far; pausing must never count against the requester.
func (c *SLAClock) effectiveDue(due, at time.Time) time.Time {
	shifted := due.Add(c.AccumulatedPause)
	if c.State == ClockStatePaused && c.PausedAt != nil {
		if span := at.Sub(*c.PausedAt); span > 0 {
			shifted = shifted.Add(span)
		}
	}
	return shifted
}

// EffectiveFirstResponseDue returns the pause-adjusted first-response due instant.
func (c *SLAClock) EffectiveFirstResponseDue(at time.Time) time.Time {
	return c.effectiveDue(c.FirstResponseDueAt, at)
}

// EffectiveResolutionDue returns the pause-adjusted resolution due instant.
func (c *SLAClock) EffectiveResolutionDue(at time.Time) time.Time {
	return c.effectiveDue(c.ResolutionDueAt, at)
}

// RemainingBudget reports how much wall-clock time is left before the
// resolution deadline; negative values mean the clock is in breach.
func (c *SLAClock) RemainingBudget(at time.Time) time.Duration {
	return c.EffectiveResolutionDue(at).Sub(at)
}

// IsBreached derives the breach condition from stored fields. It is a pure
// predicate: stopping a clock freezes the due instants but never resets a
// breach that already occurred.
func (c *SLAClock) IsBreached(at time.Time) bool {
	return at.After(c.EffectiveResolutionDue(at))
}

// FirstResponseBreached reports whether the first-response deadline passed
// before a first response was recorded.
func (c *SLAClock) FirstResponseBreached(at time.Time) bool {
	if c.FirstResponseMetAt != nil {
		return c.FirstResponseMetAt.After(c.EffectiveFirstResponseDue(*c.FirstResponseMetAt))
	}
	return at.After(c.EffectiveFirstResponseDue(at))
}

// PauseAdjustedNow maps a wall-clock instant back onto the unpaused
// timeline, so elapsed business time excludes pause periods.
func (c *SLAClock) PauseAdjustedNow(at time.Time) time.Time {
	adjusted := at.Add(-c.AccumulatedPause)
	if c.State == ClockStatePaused && c.PausedAt != nil {
		if span := at.Sub(*c.PausedAt); span > 0 {
			adjusted = adjusted.Add(-span)
		}
	}
	if adjusted.Before(c.CreatedAt) {
		return c.CreatedAt
	}
	return adjusted
}
