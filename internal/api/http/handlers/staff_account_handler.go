package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-account-service/internal/api/dto"
	"github.com/spec-kit/staff-account-service/internal/service"
)

// StaffAccountHandler exposes administrative staff account endpoints.
type StaffAccountHandler struct {
	staff *service.StaffAccountService
}

// NewStaffAccountHandler constructs handler.
func NewStaffAccountHandler(staff *service.StaffAccountService) *StaffAccountHandler {
	return &StaffAccountHandler{staff: staff}
}

// Register handles POST /v1/staff-accounts.
func (h *StaffAccountHandler) Register(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.RegisterStaffAccountRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	resp, err := h.staff.Register(c.UserContext(), service.RegisterCommand{
		Username:                    req.Username,
		Email:                       req.Email,
		OrderAccessDays:             req.OrderAccessDays,
		ModmailTranscriptAccessDays: req.ModmailTranscriptAccessDays,
		PermissionIDs:               req.PermissionIDs,
		RequestingStaffAccountID:    p.StaffAccountID.String(),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.RegisterStaffAccountResponse{
		ID:                resp.ID.String(),
		Username:          resp.Username,
		TemporaryPassword: resp.TemporaryPlaintextPassword,
		Status:            string(resp.Status),
		Version:           int64(resp.Version),
	}})
}

// Disable handles POST /v1/staff-accounts/:id/disable.
func (h *StaffAccountHandler) Disable(c *fiber.Ctx) error {
	return h.lifecycle(c, h.staff.Disable)
}

// Enable handles POST /v1/staff-accounts/:id/enable.
func (h *StaffAccountHandler) Enable(c *fiber.Ctx) error {
	return h.lifecycle(c, h.staff.Enable)
}

// ResetPassword handles POST /v1/staff-accounts/:id/reset-password.
func (h *StaffAccountHandler) ResetPassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	resp, err := h.staff.ResetPassword(c.UserContext(), service.ResetPasswordCommand{
		StaffAccountID:           c.Params("id"),
		RequestingStaffAccountID: p.StaffAccountID.String(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResetPasswordResponse{
		ID:                resp.ID.String(),
		TemporaryPassword: resp.TemporaryPlaintextPassword,
		Status:            string(resp.Status),
		PasswordIssuedAt:  resp.PasswordIssuedAtUTC,
		Version:           int64(resp.Version),
	}})
}

// RevokeSessions handles POST /v1/staff-accounts/:id/sessions/revoke.
func (h *StaffAccountHandler) RevokeSessions(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	resp, err := h.staff.RevokeAllSessions(c.UserContext(), service.RevokeSessionsCommand{
		StaffAccountID:           c.Params("id"),
		RequestingStaffAccountID: p.StaffAccountID.String(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RevokeSessionsResponse{
		ID:           resp.ID.String(),
		RevokedCount: resp.RevokedCount,
	}})
}

func (h *StaffAccountHandler) lifecycle(c *fiber.Ctx, run func(ctx context.Context, cmd service.LifecycleCommand) (*service.LifecycleResponse, error)) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	resp, err := run(c.UserContext(), service.LifecycleCommand{
		StaffAccountID:           c.Params("id"),
		RequestingStaffAccountID: p.StaffAccountID.String(),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LifecycleResponse{
		ID:      resp.ID.String(),
		Status:  string(resp.Status),
		ActedBy: resp.ActingStaffID.String(),
		Version: int64(resp.Version),
	}})
}
