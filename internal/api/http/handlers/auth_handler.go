package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-account-service/internal/api/dto"
	"github.com/spec-kit/staff-account-service/internal/service"
	apperrors "github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

// AccessTokenIssuer mints short-lived access tokens.
type AccessTokenIssuer interface {
	GenerateToken(staffAccountID string, permissions []string) (string, time.Time, error)
}

// AuthHandler exposes session endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	tokens AccessTokenIssuer
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth *service.AuthService, tokens AccessTokenIssuer) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), service.LoginCommand{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: c.IP(),
	})
	if err != nil {
		return err
	}
	return h.respondWithSession(c, session)
}

// Refresh handles POST /v1/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Refresh(c.UserContext(), service.RefreshCommand{
		RefreshToken: req.RefreshToken,
		IPAddress:    c.IP(),
	})
	if err != nil {
		return err
	}
	return h.respondWithSession(c, session)
}

// Logout handles POST /v1/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), service.LogoutCommand{RefreshToken: req.RefreshToken}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword handles POST /v1/auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	resp, err := h.auth.ChangePassword(c.UserContext(), service.ChangePasswordCommand{
		StaffAccountID:  p.StaffAccountID.String(),
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChangePasswordResponse{
		StaffAccountID:   resp.ID.String(),
		Status:           string(resp.Status),
		PasswordIssuedAt: resp.PasswordIssuedAtUTC,
		Version:          int64(resp.Version),
	}})
}

func (h *AuthHandler) respondWithSession(c *fiber.Ctx, session *service.LoginResponse) error {
	accessToken, accessExp, err := h.tokens.GenerateToken(session.ID.String(), session.PermissionCodes)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.SessionResponse{
		StaffAccountID:        session.ID.String(),
		Username:              session.Username,
		RequiresPasswordReset: session.RequiresPasswordReset,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          session.PlainRefreshToken,
		RefreshTokenExpiresAt: session.RefreshTokenExpiresAt,
		Permissions:           session.PermissionCodes,
		Version:               int64(session.Version),
	}})
}
