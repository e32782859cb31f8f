package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Metrics  *handlers.MetricsHandler
	Tickets  *handlers.TicketsHandler
	Classify *handlers.ClassifyHandler
}

// RegisterRoutes wires HTTP routes. Static ticket paths are registered
// before the :id route.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	tickets := app.Group("/api/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Post("/create", cfg.Tickets.CreateTicket)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/classify", cfg.Classify.Usage)
	tickets.Post("/classify", cfg.Classify.Classify)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
}
