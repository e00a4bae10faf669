package domain

// RequestStatus enumerates lifecycle states of the external ticket system.
type RequestStatus string

const (
	RequestStatusOpen        RequestStatus = "OPEN"
	RequestStatusInProgress  RequestStatus = "IN_PROGRESS"
	RequestStatusPendingUser RequestStatus = "PENDING_USER"
	RequestStatusResolved    RequestStatus = "RESOLVED"
	RequestStatusClosed      RequestStatus = "CLOSED"
	RequestStatusCancelled   RequestStatus = "CANCELLED"
)

// ClockAction is the effect a status change has on the SLA clock.
type ClockAction string

const (
	ClockActionNone   ClockAction = "none"
	ClockActionPause  ClockAction = "pause"
	ClockActionResume ClockAction = "resume"
	ClockActionStop   ClockAction = "stop"
)

// StatusMapping translates concrete request statuses into clock actions.
// The mapping is deliberately swappable configuration rather than logic:
// different ticket systems pause the clock on different statuses.
type StatusMapping map[RequestStatus]ClockAction

// DefaultStatusMapping pauses while waiting on the customer and stops on
// any terminal status.
func DefaultStatusMapping() StatusMapping {
	return StatusMapping{
		RequestStatusOpen:        ClockActionNone,
		RequestStatusInProgress:  ClockActionResume,
		RequestStatusPendingUser: ClockActionPause,
		RequestStatusResolved:    ClockActionStop,
		RequestStatusClosed:      ClockActionStop,
		RequestStatusCancelled:   ClockActionStop,
	}
}

// ActionFor returns the clock action for a status, defaulting to none for
// statuses the mapping does not know about.
func (m StatusMapping) ActionFor(status RequestStatus) ClockAction {
	if action, ok := m[status]; ok {
		return action
	}
	return ClockActionNone
}
