package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// RuleRequest payload for create and update.
type RuleRequest struct {
	ProductName          string          `json:"product_name"`
	SKU                  *string         `json:"sku,omitempty"`
	Priority             domain.Priority `json:"priority"`
	FirstResponseHours   int             `json:"first_response_hours"`
	ResolutionHours      int             `json:"resolution_hours"`
	BusinessHoursOnly    bool            `json:"business_hours_only"`
	EscalationAfterHours *int            `json:"escalation_after_hours,omitempty"`
	EscalationTarget     *string         `json:"escalation_target,omitempty"`
	Active               *bool           `json:"active,omitempty"`
}

// RuleResponse response.
type RuleResponse struct {
	ID                   string          `json:"id"`
	ProductName          string          `json:"product_name"`
	SKU                  *string         `json:"sku,omitempty"`
	Priority             domain.Priority `json:"priority"`
	FirstResponseHours   int             `json:"first_response_hours"`
	ResolutionHours      int             `json:"resolution_hours"`
	BusinessHoursOnly    bool            `json:"business_hours_only"`
	EscalationAfterHours *int            `json:"escalation_after_hours,omitempty"`
	EscalationTarget     *string         `json:"escalation_target,omitempty"`
	Active               bool            `json:"active"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
