package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	History        *handlers.HistoryHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	staffOnly := auth.RequireRole(domain.UserRoleAgent, domain.UserRoleAdmin)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/count", cfg.Tickets.CountTickets)
	tickets.Get("/export", staffOnly, cfg.Tickets.ExportTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", staffOnly, cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", staffOnly, cfg.Tickets.AssignTicket)
	tickets.Post("/:id/status", staffOnly, cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/priority", staffOnly, cfg.Tickets.ChangePriority)
	tickets.Post("/:id/category", staffOnly, cfg.Tickets.ChangeCategory)
	tickets.Post("/:id/documents/:documentId", cfg.Tickets.AddDocument)
	tickets.Delete("/:id/documents/:documentId", cfg.Tickets.RemoveDocument)
	tickets.Get("/:id/history", cfg.History.ListHistory)
	tickets.Post("/:id/history", cfg.History.AddComment)
	tickets.Delete("/:id/comments/:commentId", cfg.History.RemoveComment)

	app.Get("/notifications", cfg.AuthMiddleware.Handle, cfg.Notifications.List)
}
