package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// RulesHandler manages the rule administration write boundary.
type RulesHandler struct {
	service *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(ruleService *service.RuleService) *RulesHandler {
	return &RulesHandler{service: ruleService}
}

// CreateRule POST /admin/rules.
func (h *RulesHandler) CreateRule(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule := ruleFromRequest(&req)
	created, err := h.service.CreateRule(c.Context(), rule)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ruleResponse(created)})
}

// ListRules GET /admin/rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	includeInactive := c.QueryBool("include_inactive", false)
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	rules, err := h.service.ListRules(c.Context(), includeInactive, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, ruleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRule GET /admin/rules/:id.
func (h *RulesHandler) GetRule(c *fiber.Ctx) error {
	rule, err := h.service.GetRule(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// UpdateRule PUT /admin/rules/:id.
func (h *RulesHandler) UpdateRule(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule := ruleFromRequest(&req)
	rule.ID = c.Params("id")
	updated, err := h.service.UpdateRule(c.Context(), rule)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(updated)})
}

// DeactivateRule DELETE /admin/rules/:id.
func (h *RulesHandler) DeactivateRule(c *fiber.Ctx) error {
	rule, err := h.service.DeactivateRule(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

func ruleFromRequest(req *dto.RuleRequest) *domain.SLARule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &domain.SLARule{
		ProductName:          req.ProductName,
		SKU:                  req.SKU,
		Priority:             req.Priority,
		FirstResponseHours:   req.FirstResponseHours,
		ResolutionHours:      req.ResolutionHours,
		BusinessHoursOnly:    req.BusinessHoursOnly,
		EscalationAfterHours: req.EscalationAfterHours,
		EscalationTarget:     req.EscalationTarget,
		Active:               active,
	}
}

func ruleResponse(rule *domain.SLARule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:                   rule.ID,
		ProductName:          rule.ProductName,
		SKU:                  rule.SKU,
		Priority:             rule.Priority,
		FirstResponseHours:   rule.FirstResponseHours,
		ResolutionHours:      rule.ResolutionHours,
		BusinessHoursOnly:    rule.BusinessHoursOnly,
		EscalationAfterHours: rule.EscalationAfterHours,
		EscalationTarget:     rule.EscalationTarget,
		Active:               rule.Active,
		CreatedAt:            rule.CreatedAt,
		UpdatedAt:            rule.UpdatedAt,
	}
}
