package dto

import "time"

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest payload. Logout shares the shape.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest payload.
type LogoutRequest = RefreshRequest

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	StaffAccountID        string    `json:"staff_account_id"`
	Username              string    `json:"username"`
	RequiresPasswordReset bool      `json:"requires_password_reset"`
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	Permissions           []string  `json:"permissions"`
	Version               int64     `json:"version"`
}

// ChangePasswordResponse is returned after a password change.
type ChangePasswordResponse struct {
	StaffAccountID   string    `json:"staff_account_id"`
	Status           string    `json:"status"`
	PasswordIssuedAt time.Time `json:"password_issued_at"`
	Version          int64     `json:"version"`
}
