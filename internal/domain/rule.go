package domain

import (
	"strings"
	"time"
)

// DefaultProduct is the sentinel product name matching any product.
const DefaultProduct = "DEFAULT"

// Priority enumerates SLA urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// SLARule is an admin-authored agreement definition. A rule is immutable
// once matched against a request; edits only affect future resolutions.
type SLARule struct {
	ID                   string
	ProductName          string
	SKU                  *string
	Priority             Priority
	FirstResponseHours   int
	ResolutionHours      int
	BusinessHoursOnly    bool
	EscalationAfterHours *int
	EscalationTarget     *string
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FirstResponseDuration returns the first-response budget.
func (r *SLARule) FirstResponseDuration() time.Duration {
	return time.Duration(r.FirstResponseHours) * time.Hour
}

// ResolutionDuration returns the resolution budget.
func (r *SLARule) ResolutionDuration() time.Duration {
	return time.Duration(r.ResolutionHours) * time.Hour
}

// EscalationAfter returns the escalation threshold, or false if the rule
// does not escalate.
func (r *SLARule) EscalationAfter() (time.Duration, bool) {
	if r.EscalationAfterHours == nil {
		return 0, false
	}
	return time.Duration(*r.EscalationAfterHours) * time.Hour, true
}

// IsDefault reports whether the rule uses the catch-all product sentinel.
func (r *SLARule) IsDefault() bool {
	return r.ProductName == DefaultProduct
}

// Validate checks rule invariants enforced at the write boundary.
func (r *SLARule) Validate() []string {
	var problems []string
	if strings.TrimSpace(r.ProductName) == "" {
		problems = append(problems, "product_name required")
	}
	if r.SKU != nil && strings.TrimSpace(*r.SKU) == "" {
		problems = append(problems, "sku must be omitted or non-empty")
	}
	if r.SKU != nil && r.IsDefault() {
		problems = append(problems, "sku overrides require a concrete product")
	}
	if !r.Priority.IsValid() {
		problems = append(problems, "priority must be one of low, medium, high, urgent")
	}
	if r.FirstResponseHours <= 0 {
		problems = append(problems, "first_response_hours must be positive")
	}
	if r.ResolutionHours <= 0 {
		problems = append(problems, "resolution_hours must be positive")
	}
	if r.EscalationAfterHours != nil && *r.EscalationAfterHours <= 0 {
		problems = append(problems, "escalation_after_hours must be positive when set")
	}
	if r.EscalationAfterHours != nil && (r.EscalationTarget == nil || strings.TrimSpace(*r.EscalationTarget) == "") {
		problems = append(problems, "escalation_target required when escalation_after_hours set")
	}
	if r.EscalationAfterHours == nil && r.EscalationTarget != nil {
		problems = append(problems, "escalation_target requires escalation_after_hours")
	}
	return problems
}

// Classification identifies which rule governs a request.
type Classification struct {
	Product  string
	SKU      *string
	Priority Priority
}

// Matches reports whether two rules occupy the same specificity slot.
func (r *SLARule) SameSlot(other *SLARule) bool {
	if r.ProductName != other.ProductName || r.Priority != other.Priority {
		return false
	}
	if (r.SKU == nil) != (other.SKU == nil) {
		return false
	}
	return r.SKU == nil || *r.SKU == *other.SKU
}
