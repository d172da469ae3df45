package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-account-service/internal/api/dto"
	"github.com/spec-kit/staff-account-service/internal/auth"
	apperrors "github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

func bindBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}
