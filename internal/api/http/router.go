package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dossier-service/internal/api/http/handlers"
	"github.com/spec-kit/dossier-service/internal/auth"
	"github.com/spec-kit/dossier-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Dossiers       *handlers.DossiersHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Impersonation  *auth.ImpersonationResolver
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Users.StaffLogin)

	// Anonymous intake and cancellation by contact identity.
	app.Post("/intake/dossiers", cfg.Dossiers.Intake)
	app.Post("/intake/dossiers/:id/cancel", cfg.Dossiers.Cancel)

	dossiers := app.Group("/dossiers",
		cfg.AuthMiddleware.Handle,
		auth.RequireAnyRole(),
		cfg.Impersonation.Middleware())
	dossiers.Post("", cfg.Dossiers.Create)
	dossiers.Get("", cfg.Dossiers.List)
	dossiers.Get("/:id", cfg.Dossiers.Get)
	dossiers.Patch("/:id", cfg.Dossiers.UpdateDetails)
	dossiers.Patch("/:id/status", cfg.Dossiers.UpdateStatus)
	dossiers.Post("/:id/cancel", cfg.Dossiers.Cancel)
	dossiers.Post("/:id/messages", cfg.Dossiers.SendMessage)
	dossiers.Post("/:id/presence", cfg.Dossiers.Heartbeat)
	dossiers.Put("/:id/team", cfg.Dossiers.UpdateTeam)
	dossiers.Put("/:id/leader", cfg.Dossiers.ChangeLeader)
	dossiers.Delete("/:id",
		auth.RequireStaffRole(domain.StaffRoleSuperadmin),
		cfg.Dossiers.Delete)

	notifications := app.Group("/notifications",
		cfg.AuthMiddleware.Handle,
		auth.RequireAnyRole())
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Put("/preferences", cfg.Notifications.SetPreference)
}
