package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TrackRequestRequest registers a request for SLA tracking.
type TrackRequestRequest struct {
	RequestID string          `json:"request_id"`
	Product   string          `json:"product"`
	SKU       *string         `json:"sku,omitempty"`
	Priority  domain.Priority `json:"priority"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// RequestEventRequest carries a lifecycle event for a tracked request.
// Either an engine event type or a raw ticket status must be provided.
type RequestEventRequest struct {
	Type   string     `json:"type,omitempty"`   // opened|paused|resumed|first_response|closed
	Status string     `json:"status,omitempty"` // raw request status, mapped via configuration
	At     *time.Time `json:"at,omitempty"`
}

// ReresolveRequest carries updated classification fields.
type ReresolveRequest struct {
	Product  string          `json:"product"`
	SKU      *string         `json:"sku,omitempty"`
	Priority domain.Priority `json:"priority"`
}

// ClockResponse is the full clock view for dashboards.
type ClockResponse struct {
	RequestID                  string            `json:"request_id"`
	RuleID                     string            `json:"rule_id"`
	Product                    string            `json:"product"`
	SKU                        *string           `json:"sku,omitempty"`
	Priority                   domain.Priority   `json:"priority"`
	BusinessHoursOnly          bool              `json:"business_hours_only"`
	State                      domain.ClockState `json:"state"`
	CreatedAt                  time.Time         `json:"created_at"`
	FirstResponseDueAt         time.Time         `json:"first_response_due_at"`
	ResolutionDueAt            time.Time         `json:"resolution_due_at"`
	EffectiveFirstResponseDue  time.Time         `json:"effective_first_response_due"`
	EffectiveResolutionDue     time.Time         `json:"effective_resolution_due"`
	FirstResponseMetAt         *time.Time        `json:"first_response_met_at,omitempty"`
	PausedAt                   *time.Time        `json:"paused_at,omitempty"`
	AccumulatedPauseSeconds    int64             `json:"accumulated_pause_seconds"`
	RemainingResolutionSeconds int64             `json:"remaining_resolution_seconds"`
	EscalatedAt                *time.Time        `json:"escalated_at,omitempty"`
	StoppedAt                  *time.Time        `json:"stopped_at,omitempty"`
	Breached                   bool              `json:"breached"`
}

// BreachResponse answers the breach predicate.
type BreachResponse struct {
	RequestID string    `json:"request_id"`
	Breached  bool      `json:"breached"`
	At        time.Time `json:"at"`
}
