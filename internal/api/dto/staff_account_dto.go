package dto

import "time"

// RegisterStaffAccountRequest payload.
type RegisterStaffAccountRequest struct {
	Username                    string   `json:"username" validate:"required,max=64"`
	Email                       string   `json:"email" validate:"required,email,max=320"`
	OrderAccessDays             int      `json:"order_access_days" validate:"required,gte=1,lte=3650"`
	ModmailTranscriptAccessDays int      `json:"modmail_transcript_access_days" validate:"required,gte=1,lte=3650"`
	PermissionIDs               []string `json:"permission_ids" validate:"omitempty,dive,uuid"`
}

// RegisterStaffAccountResponse carries the one-time temporary password.
type RegisterStaffAccountResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	TemporaryPassword string `json:"temporary_password"`
	Status            string `json:"status"`
	Version           int64  `json:"version"`
}

// LifecycleResponse is returned by disable and enable.
type LifecycleResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	ActedBy string `json:"acted_by"`
	Version int64  `json:"version"`
}

// ResetPasswordResponse carries the one-time temporary password.
type ResetPasswordResponse struct {
	ID                string    `json:"id"`
	TemporaryPassword string    `json:"temporary_password"`
	Status            string    `json:"status"`
	PasswordIssuedAt  time.Time `json:"password_issued_at"`
	Version           int64     `json:"version"`
}

// RevokeSessionsResponse reports how many sessions were ended.
type RevokeSessionsResponse struct {
	ID           string `json:"id"`
	RevokedCount int    `json:"revoked_count"`
}
