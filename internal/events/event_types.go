package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClockStarted  EventType = "sla_clock_started"
	EventClockPaused   EventType = "sla_clock_paused"
	EventClockResumed  EventType = "sla_clock_resumed"
	EventFirstResponse EventType = "sla_first_response"
	EventClockStopped  EventType = "sla_clock_stopped"
	EventEscalated     EventType = "sla_escalated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClockStartedPayload payload.
type ClockStartedPayload struct {
	RuleID             string          `json:"rule_id"`
	Priority           domain.Priority `json:"priority"`
	BusinessHoursOnly  bool            `json:"business_hours_only"`
	FirstResponseDueAt time.Time       `json:"first_response_due_at"`
	ResolutionDueAt    time.Time       `json:"resolution_due_at"`
}

// ClockPausedPayload payload.
type ClockPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
}

// ClockResumedPayload payload.
type ClockResumedPayload struct {
	ResumedAt        time.Time     `json:"resumed_at"`
	AccumulatedPause time.Duration `json:"accumulated_pause"`
}

// FirstResponsePayload payload.
type FirstResponsePayload struct {
	MetAt    time.Time `json:"met_at"`
	Breached bool      `json:"breached"`
}

// ClockStoppedPayload payload.
type ClockStoppedPayload struct {
	StoppedAt time.Time `json:"stopped_at"`
	Breached  bool      `json:"breached"`
}

// EscalatedPayload is the contract exposed to the notification collaborator.
type EscalatedPayload struct {
	RequestID        string    `json:"request_id"`
	EscalatedAt      time.Time `json:"escalated_at"`
	EscalationTarget string    `json:"escalation_target"`
}
