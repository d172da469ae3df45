package service

import (
	"time"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// LoginCommand carries raw login input.
type LoginCommand struct {
	Username  string
	Password  string
	IPAddress string
}

// RefreshCommand presents a refresh token for rotation.
type RefreshCommand struct {
	RefreshToken string
	IPAddress    string
}

// LogoutCommand revokes the presented refresh token.
type LogoutCommand struct {
	RefreshToken string
}

// ChangePasswordCommand is issued by the account holder.
type ChangePasswordCommand struct {
	StaffAccountID  string
	CurrentPassword string
	NewPassword     string
}

// RegisterCommand creates a staff account on behalf of an administrator.
type RegisterCommand struct {
	Username                    string
	Email                       string
	OrderAccessDays             int
	ModmailTranscriptAccessDays int
	PermissionIDs               []string
	RequestingStaffAccountID    string
}

// LifecycleCommand enables or disables an account.
type LifecycleCommand struct {
	StaffAccountID           string
	RequestingStaffAccountID string
}

// ResetPasswordCommand issues a new temporary password.
type ResetPasswordCommand struct {
	StaffAccountID           string
	RequestingStaffAccountID string
}

// RevokeSessionsCommand revokes every active refresh token of an account.
type RevokeSessionsCommand struct {
	StaffAccountID           string
	RequestingStaffAccountID string
}

// BootstrapCommand names the administrator created on an empty store.
type BootstrapCommand struct {
	Username      string
	Email         string
	PermissionIDs []string
}

// LoginResponse is returned by Login and Refresh. The caller mints the access
// token from ID and PermissionCodes.
type LoginResponse struct {
	ID                    domain.StaffAccountID
	Username              string
	RequiresPasswordReset bool
	PlainRefreshToken     string
	RefreshTokenExpiresAt time.Time
	PermissionCodes       []string
	Version               domain.Version
}

// RefreshResponse has the same shape as LoginResponse.
type RefreshResponse = LoginResponse

type RegisterResponse struct {
	ID                         domain.StaffAccountID
	Username                   string
	TemporaryPlaintextPassword string
	Status                     domain.StaffAccountStatus
	Version                    domain.Version
}

type LifecycleResponse struct {
	ID            domain.StaffAccountID
	Status        domain.StaffAccountStatus
	ActingStaffID domain.StaffAccountID
	Version       domain.Version
}

type ResetPasswordResponse struct {
	ID                         domain.StaffAccountID
	TemporaryPlaintextPassword string
	Status                     domain.StaffAccountStatus
	PasswordIssuedAtUTC        time.Time
	Version                    domain.Version
}

type ChangePasswordResponse struct {
	ID                  domain.StaffAccountID
	Status              domain.StaffAccountStatus
	PasswordIssuedAtUTC time.Time
	Version             domain.Version
}

type RevokeSessionsResponse struct {
	ID           domain.StaffAccountID
	RevokedCount int
}
