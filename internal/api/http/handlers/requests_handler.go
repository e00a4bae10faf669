package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// RequestsHandler ingests request lifecycle events and serves clock queries.
type RequestsHandler struct {
	tracker *service.TrackerService
	monitor *service.MonitorService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(tracker *service.TrackerService, monitor *service.MonitorService) *RequestsHandler {
	return &RequestsHandler{tracker: tracker, monitor: monitor}
}

// TrackRequest POST /requests.
func (h *RequestsHandler) TrackRequest(c *fiber.Ctx) error {
	var req dto.TrackRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequestID == "" || req.Product == "" {
		return apperrors.NewValidationError("request_id and product required", nil)
	}
	if !req.Priority.IsValid() {
		return apperrors.NewValidationError("priority must be one of low, medium, high, urgent", nil)
	}
	input := service.StartInput{
		RequestID: req.RequestID,
		Product:   req.Product,
		SKU:       req.SKU,
		Priority:  req.Priority,
	}
	if req.CreatedAt != nil {
		input.CreatedAt = *req.CreatedAt
	}
	clock, err := h.tracker.StartTracking(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": clockResponse(clock, time.Now())})
}

// ApplyEvent POST /requests/:id/events.
func (h *RequestsHandler) ApplyEvent(c *fiber.Ctx) error {
	var req dto.RequestEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	requestID := c.Params("id")
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	var (
		clock *domain.SLAClock
		err   error
	)
	switch {
	case req.Type != "":
		clock, err = h.applyEngineEvent(c, requestID, req.Type, at)
	case req.Status != "":
		clock, err = h.tracker.ApplyStatus(c.Context(), requestID, domain.RequestStatus(strings.ToUpper(req.Status)), at)
	default:
		return apperrors.NewValidationError("type or status required", nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clockResponse(clock, time.Now())})
}

func (h *RequestsHandler) applyEngineEvent(c *fiber.Ctx, requestID, eventType string, at time.Time) (*domain.SLAClock, error) {
	switch strings.ToLower(eventType) {
	case "opened", "resumed":
		return h.tracker.Resume(c.Context(), requestID, at)
	case "paused":
		return h.tracker.Pause(c.Context(), requestID, at)
	case "first_response":
		return h.tracker.MarkFirstResponse(c.Context(), requestID, at)
	case "closed":
		return h.tracker.Stop(c.Context(), requestID, at)
	default:
		return nil, apperrors.NewValidationError("unknown event type", map[string]any{"type": eventType})
	}
}

// Reresolve POST /requests/:id/reresolve.
func (h *RequestsHandler) Reresolve(c *fiber.Ctx) error {
	var req dto.ReresolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Product == "" || !req.Priority.IsValid() {
		return apperrors.NewValidationError("product and valid priority required", nil)
	}
	clock, err := h.tracker.Reresolve(c.Context(), c.Params("id"), domain.Classification{
		Product:  req.Product,
		SKU:      req.SKU,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clockResponse(clock, time.Now())})
}

// GetClock GET /requests/:id/clock.
func (h *RequestsHandler) GetClock(c *fiber.Ctx) error {
	clock, err := h.tracker.GetClock(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	at := time.Now()
	if queried := parseTime(c.Query("at")); queried != nil {
		at = *queried
	}
	return c.JSON(fiber.Map{"data": clockResponse(clock, at)})
}

// GetBreach GET /requests/:id/breach.
func (h *RequestsHandler) GetBreach(c *fiber.Ctx) error {
	at := time.Now()
	if queried := parseTime(c.Query("at")); queried != nil {
		at = *queried
	}
	requestID := c.Params("id")
	breached, err := h.tracker.IsBreached(c.Context(), requestID, at)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BreachResponse{
		RequestID: requestID,
		Breached:  breached,
		At:        at,
	}})
}

// ListBreached GET /breaches.
func (h *RequestsHandler) ListBreached(c *fiber.Ctx) error {
	at := time.Now()
	if queried := parseTime(c.Query("at")); queried != nil {
		at = *queried
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	clocks, err := h.monitor.ListBreached(c.Context(), at, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.ClockResponse, 0, len(clocks))
	for i := range clocks {
		items = append(items, clockResponse(&clocks[i], at))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func clockResponse(clock *domain.SLAClock, at time.Time) dto.ClockResponse {
	return dto.ClockResponse{
		RequestID:                  clock.RequestID,
		RuleID:                     clock.RuleID,
		Product:                    clock.Product,
		SKU:                        clock.SKU,
		Priority:                   clock.Priority,
		BusinessHoursOnly:          clock.BusinessHoursOnly,
		State:                      clock.State,
		CreatedAt:                  clock.CreatedAt,
		FirstResponseDueAt:         clock.FirstResponseDueAt,
		ResolutionDueAt:            clock.ResolutionDueAt,
		EffectiveFirstResponseDue:  clock.EffectiveFirstResponseDue(at),
		EffectiveResolutionDue:     clock.EffectiveResolutionDue(at),
		FirstResponseMetAt:         clock.FirstResponseMetAt,
		PausedAt:                   clock.PausedAt,
		AccumulatedPauseSeconds:    int64(clock.AccumulatedPause / time.Second),
		RemainingResolutionSeconds: int64(clock.RemainingBudget(at) / time.Second),
		EscalatedAt:                clock.EscalatedAt,
		StoppedAt:                  clock.StoppedAt,
		Breached:                   clock.IsBreached(at),
	}
}
