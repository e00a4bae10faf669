package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// RuleService owns the rule store write boundary and the resolution read
// path. Invalid configuration is rejected here so the tracking path never
// observes it.
type RuleService struct {
	rules   repository.RuleRepository
	metrics *observability.Metrics
	logger  *zap.Logger
}

// RuleDependencies bundles collaborators for the rule service.
type RuleDependencies struct {
	RuleRepo repository.RuleRepository
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRuleService constructs the service.
func NewRuleService(deps RuleDependencies) *RuleService {
	return &RuleService{
		rules:   deps.RuleRepo,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

// CreateRule validates and stores a new rule.
func (s *RuleService) CreateRule(ctx context.Context, rule *domain.SLARule) (*domain.SLARule, error) {
	if problems := rule.Validate(); len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid sla rule", map[string]any{"problems": problems})
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlot) {
			return nil, apperrors.NewDuplicateRule(slotDetails(rule))
		}
		return nil, err
	}
	s.logger.Info("sla rule created",
		zap.String("rule_id", rule.ID),
		zap.String("product", rule.ProductName),
		zap.String("priority", string(rule.Priority)))
	return rule, nil
}

// UpdateRule validates and stores changes to an existing rule. Edits never
// touch clocks already resolved against the previous revision.
func (s *RuleService) UpdateRule(ctx context.Context, rule *domain.SLARule) (*domain.SLARule, error) {
	if problems := rule.Validate(); len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid sla rule", map[string]any{"problems": problems})
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlot) {
			return nil, apperrors.NewDuplicateRule(slotDetails(rule))
		}
		return nil, err
	}
	return rule, nil
}

// DeactivateRule retires a rule from future resolutions.
func (s *RuleService) DeactivateRule(ctx context.Context, id string) (*domain.SLARule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rule.Active {
		return rule, nil
	}
	rule.Active = false
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	s.logger.Info("sla rule deactivated", zap.String("rule_id", rule.ID))
	return rule, nil
}

// GetRule fetches a rule by ID.
func (s *RuleService) GetRule(ctx context.Context, id string) (*domain.SLARule, error) {
	return s.rules.GetByID(ctx, id)
}

// ListRules returns configured rules.
func (s *RuleService) ListRules(ctx context.Context, includeInactive bool, limit, offset int) ([]domain.SLARule, error) {
	return s.rules.List(ctx, includeInactive, limit, offset)
}

// Resolve picks the single governing rule for a classification, most
// specific first. It never falls back on its own; callers decide what a
// miss means.
func (s *RuleService) Resolve(ctx context.Context, cls domain.Classification) (*domain.SLARule, error) {
	candidates, err := s.rules.ListCandidates(ctx, cls.Product, cls.Priority)
	if err != nil {
		return nil, err
	}
	rule := pickRule(candidates, cls)
	s.metrics.RecordResolution(rule != nil)
	if rule == nil {
		return nil, apperrors.NewNoMatchingRule(map[string]any{
			"product":  cls.Product,
			"priority": cls.Priority,
		})
	}
	return rule, nil
}

// pickRule applies the precedence order over active candidates: exact
// product+sku, then product without sku, then the DEFAULT catch-all.
// Priority already matched in the candidate query. The store's uniqueness
// invariant makes ties impossible within a tier.
func pickRule(candidates []domain.SLARule, cls domain.Classification) *domain.SLARule {
	var productOnly, fallback *domain.SLARule
	for i := range candidates {
		rule := &candidates[i]
		if !rule.Active {
			continue
		}
		switch {
		case rule.ProductName == cls.Product && rule.SKU != nil:
			if cls.SKU != nil && *rule.SKU == *cls.SKU {
				return rule
			}
		case rule.ProductName == cls.Product && rule.SKU == nil:
			productOnly = rule
		case rule.IsDefault() && rule.SKU == nil:
			fallback = rule
		}
	}
	if productOnly != nil {
		return productOnly
	}
	return fallback
}

func slotDetails(rule *domain.SLARule) map[string]any {
	details := map[string]any{
		"product_name": rule.ProductName,
		"priority":     rule.Priority,
	}
	if rule.SKU != nil {
		details["sku"] = *rule.SKU
	}
	return details
}
