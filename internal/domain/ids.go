package domain

import "github.com/google/uuid"

// StaffAccountID identifies a staff account.
type StaffAccountID uuid.UUID

// RefreshTokenID identifies a refresh token.
type RefreshTokenID uuid.UUID

// PermissionID identifies a permission in the catalog.
type PermissionID uuid.UUID

// NewStaffAccountID returns a random identifier.
func NewStaffAccountID() StaffAccountID { return StaffAccountID(uuid.New()) }

// NewRefreshTokenID returns a random identifier.
func NewRefreshTokenID() RefreshTokenID { return RefreshTokenID(uuid.New()) }

// NewPermissionID returns a random identifier.
func NewPermissionID() PermissionID { return PermissionID(uuid.New()) }

// ParseStaffAccountID validates the textual form of a staff account id.
func ParseStaffAccountID(s string) (StaffAccountID, error) {
	id, err := parseID("staff_account_id", s)
	return StaffAccountID(id), err
}

// ParseRefreshTokenID validates the textual form of a refresh token id.
func ParseRefreshTokenID(s string) (RefreshTokenID, error) {
	id, err := parseID("refresh_token_id", s)
	return RefreshTokenID(id), err
}

// ParsePermissionID validates the textual form of a permission id.
func ParsePermissionID(s string) (PermissionID, error) {
	id, err := parseID("permission_id", s)
	return PermissionID(id), err
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, validationError(field, "must be a valid UUID")
	}
	if id == uuid.Nil {
		return uuid.Nil, validationError(field, "must not be the nil UUID")
	}
	return id, nil
}

func (id StaffAccountID) String() string { return uuid.UUID(id).String() }
func (id RefreshTokenID) String() string { return uuid.UUID(id).String() }
func (id PermissionID) String() string   { return uuid.UUID(id).String() }

// IsZero reports whether the id was never assigned.
func (id StaffAccountID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// IsZero reports whether the id was never assigned.
func (id RefreshTokenID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText encodes the id in canonical UUID form.
func (id StaffAccountID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// MarshalText encodes the id in canonical UUID form.
func (id RefreshTokenID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// MarshalText encodes the id in canonical UUID form.
func (id PermissionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
