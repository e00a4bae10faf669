package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validRule() *SLARule {
	return &SLARule{
		ProductName:        "ProductX",
		Priority:           PriorityHigh,
		FirstResponseHours: 4,
		ResolutionHours:    24,
		Active:             true,
	}
}

func TestValidateAcceptsWellFormedRule(t *testing.T) {
	assert.Empty(t, validRule().Validate())

	escalating := validRule()
	escalating.EscalationAfterHours = intPtr(8)
	escalating.EscalationTarget = strPtr("oncall-manager")
	assert.Empty(t, escalating.Validate())
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	rule := validRule()
	rule.FirstResponseHours = 0
	rule.ResolutionHours = -1
	problems := rule.Validate()
	require.Len(t, problems, 2)
}

func TestValidateRejectsEscalationWithoutTarget(t *testing.T) {
	rule := validRule()
	rule.EscalationAfterHours = intPtr(8)
	assert.NotEmpty(t, rule.Validate())

	rule.EscalationTarget = strPtr("  ")
	assert.NotEmpty(t, rule.Validate())
}

func TestValidateRejectsTargetWithoutEscalation(t *testing.T) {
	rule := validRule()
	rule.EscalationTarget = strPtr("oncall-manager")
	assert.NotEmpty(t, rule.Validate())
}

func TestValidateRejectsBadClassification(t *testing.T) {
	rule := validRule()
	rule.ProductName = "  "
	rule.Priority = "critical"
	assert.NotEmpty(t, rule.Validate())

	skuOnDefault := validRule()
	skuOnDefault.ProductName = DefaultProduct
	skuOnDefault.SKU = strPtr("SKU-9")
	assert.NotEmpty(t, skuOnDefault.Validate())
}

func TestDurationHelpers(t *testing.T) {
	rule := validRule()
	assert.Equal(t, 4*time.Hour, rule.FirstResponseDuration())
	assert.Equal(t, 24*time.Hour, rule.ResolutionDuration())

	_, ok := rule.EscalationAfter()
	assert.False(t, ok)

	rule.EscalationAfterHours = intPtr(8)
	threshold, ok := rule.EscalationAfter()
	require.True(t, ok)
	assert.Equal(t, 8*time.Hour, threshold)
}

func TestDefaultStatusMapping(t *testing.T) {
	mapping := DefaultStatusMapping()
	assert.Equal(t, ClockActionPause, mapping.ActionFor(RequestStatusPendingUser))
	assert.Equal(t, ClockActionResume, mapping.ActionFor(RequestStatusInProgress))
	assert.Equal(t, ClockActionStop, mapping.ActionFor(RequestStatusClosed))
	assert.Equal(t, ClockActionNone, mapping.ActionFor(RequestStatus("SOMETHING_ELSE")))
}
