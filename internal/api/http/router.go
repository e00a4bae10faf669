package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Rules    *handlers.RulesHandler
	Requests *handlers.RequestsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	admin := app.Group("/admin")
	admin.Post("/rules", cfg.Rules.CreateRule)
	admin.Get("/rules", cfg.Rules.ListRules)
	admin.Get("/rules/:id", cfg.Rules.GetRule)
	admin.Put("/rules/:id", cfg.Rules.UpdateRule)
	admin.Delete("/rules/:id", cfg.Rules.DeactivateRule)

	requests := app.Group("/requests")
	requests.Post("/", cfg.Requests.TrackRequest)
	requests.Post("/:id/events", cfg.Requests.ApplyEvent)
	requests.Post("/:id/reresolve", cfg.Requests.Reresolve)
	requests.Get("/:id/clock", cfg.Requests.GetClock)
	requests.Get("/:id/breach", cfg.Requests.GetBreach)

	app.Get("/breaches", cfg.Requests.ListBreached)
}
