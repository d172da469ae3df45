package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-account-service/internal/domain"
	apperrors "github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

// RequirePermission ensures the principal holds every listed permission code.
func RequirePermission(codes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, code := range codes {
			if !principal.HasPermission(code) {
				return apperrors.NewForbidden("insufficient permissions")
			}
		}
		return c.Next()
	}
}

// RequireActive rejects accounts that still have to replace a temporary
// password.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Status != domain.StatusActive {
			return apperrors.NewForbidden("password change required")
		}
		return c.Next()
	}
}
