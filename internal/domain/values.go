package domain

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 20
	emailMaxLength    = 320

	maxAccessDurationDays = 3650
	permissionCodeMaxLen  = 100
)

var (
	usernamePattern       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	permissionCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

	reservedUsernames = map[string]struct{}{
		"admin":         {},
		"administrator": {},
		"root":          {},
		"system":        {},
		"support":       {},
		"moderator":     {},
		"staff":         {},
		"superuser":     {},
		"null":          {},
		"undefined":     {},
		"api":           {},
		"security":      {},
	}
)

// Username is the unique login name of a staff account.
type Username struct{ value string }

// NewUsername validates and builds a username.
func NewUsername(raw string) (Username, error) {
	value := strings.TrimSpace(raw)
	if err := validation.Validate(value,
		validation.Required,
		validation.Length(usernameMinLength, usernameMaxLength),
		validation.Match(usernamePattern),
	); err != nil {
		return Username{}, validationError("username", err.Error())
	}
	if strings.Contains(value, "__") {
		return Username{}, validationError("username", "must not contain consecutive underscores")
	}
	if strings.HasSuffix(value, "_") {
		return Username{}, validationError("username", "must not end with an underscore")
	}
	if _, reserved := reservedUsernames[strings.ToLower(value)]; reserved {
		return Username{}, validationError("username", "is reserved")
	}
	return Username{value: value}, nil
}

func (u Username) String() string { return u.value }

// Email is a validated, normalized e-mail address.
type Email struct{ value string }

// NewEmail validates and normalizes an e-mail address.
func NewEmail(raw string) (Email, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if err := validation.Validate(value,
		validation.Required,
		validation.Length(3, emailMaxLength),
		is.EmailFormat,
	); err != nil {
		return Email{}, validationError("email", err.Error())
	}
	return Email{value: value}, nil
}

func (e Email) String() string { return e.value }

// AccessDuration is a positive number of days bounding a data-retention window.
type AccessDuration struct{ days int }

// NewAccessDuration validates a day count.
func NewAccessDuration(field string, days int) (AccessDuration, error) {
	if days <= 0 {
		return AccessDuration{}, validationError(field, "must be a positive number of days")
	}
	if days > maxAccessDurationDays {
		return AccessDuration{}, validationError(field, "must not exceed 3650 days")
	}
	return AccessDuration{days: days}, nil
}

// Days returns the day count.
func (d AccessDuration) Days() int { return d.days }

// Version is the optimistic concurrency token of an aggregate.
type Version int64

// InitialVersion is assigned to freshly created aggregates.
const InitialVersion Version = 1

// NewVersion validates a stored version.
func NewVersion(v int64) (Version, error) {
	if v < int64(InitialVersion) {
		return 0, validationError("version", "must be a positive integer")
	}
	return Version(v), nil
}

// Next returns the following version.
func (v Version) Next() Version { return v + 1 }

// Int64 returns the raw value.
func (v Version) Int64() int64 { return int64(v) }

// PermissionCode is a dotted permission identifier, e.g. staff.manage.
type PermissionCode struct{ value string }

// NewPermissionCode validates a permission code.
func NewPermissionCode(raw string) (PermissionCode, error) {
	value := strings.TrimSpace(raw)
	if err := validation.Validate(value,
		validation.Required,
		validation.Length(1, permissionCodeMaxLen),
		validation.Match(permissionCodePattern),
	); err != nil {
		return PermissionCode{}, validationError("permission_code", err.Error())
	}
	return PermissionCode{value: value}, nil
}

func (c PermissionCode) String() string { return c.value }

// Permission is an entry of the permission catalog assigned to an account.
type Permission struct {
	ID   PermissionID
	Code PermissionCode
}

// Permission codes checked by the service itself.
const (
	PermissionStaffManage         = "staff.manage"
	PermissionStaffSessionsRevoke = "staff.sessions.revoke"
)
