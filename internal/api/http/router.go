package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/broadcast"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Hub            *broadcast.Hub
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/api/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", auth.RequirePermission(auth.ActionTicketCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", auth.RequirePermission(auth.ActionTicketList), cfg.Tickets.ListTickets)
	tickets.Get("/:id", auth.RequirePermission(auth.ActionTicketRead), cfg.Tickets.GetTicket)
	tickets.Put("/:id", auth.RequirePermission(auth.ActionTicketUpdate), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequirePermission(auth.ActionTicketDelete), cfg.Tickets.DeleteTicket)
	tickets.Put("/:id/assign", auth.RequirePermission(auth.ActionTicketAssign), cfg.Tickets.AssignTicket)
	tickets.Put("/:id/status", auth.RequirePermission(auth.ActionTicketSetStatus), cfg.Tickets.SetStatus)

	users := app.Group("/api/users", cfg.AuthMiddleware.Handle)
	users.Get("/profile", cfg.Users.GetProfile)
	users.Put("/role", auth.RequirePermission(auth.ActionUserUpdateRole), cfg.Users.UpdateRole)
	users.Get("/", auth.RequirePermission(auth.ActionUserList), cfg.Users.ListUsers)

	if cfg.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
			cfg.Hub.Register(conn)
		}))
	}
}
