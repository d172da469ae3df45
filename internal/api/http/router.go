package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/staff-account-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-account-service/internal/auth"
	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	StaffAccounts  *handlers.StaffAccountHandler
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

	v1 := app.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	accounts := v1.Group("/staff-accounts", cfg.AuthMiddleware.Handle, auth.RequireActive())
	manage := auth.RequirePermission(domain.PermissionStaffManage)
	accounts.Post("", manage, cfg.StaffAccounts.Register)
	accounts.Post("/:id/disable", manage, cfg.StaffAccounts.Disable)
	accounts.Post("/:id/enable", manage, cfg.StaffAccounts.Enable)
	accounts.Post("/:id/reset-password", manage, cfg.StaffAccounts.ResetPassword)
	accounts.Post("/:id/sessions/revoke", auth.RequirePermission(domain.PermissionStaffSessionsRevoke), cfg.StaffAccounts.RevokeSessions)
}
