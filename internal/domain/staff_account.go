package domain

import (
	"sort"
	"time"
)

// StaffAccountStatus enumerates the lifecycle states of a staff account.
type StaffAccountStatus string

const (
	StatusPendingPasswordChange StaffAccountStatus = "PENDING_PASSWORD_CHANGE"
	StatusActive                StaffAccountStatus = "ACTIVE"
	StatusDisabled              StaffAccountStatus = "DISABLED"
	StatusLocked                StaffAccountStatus = "LOCKED"
)

// MaxFailedLoginAttempts is the number of consecutive failures that locks an account.
const MaxFailedLoginAttempts = 5

// ParseStaffAccountStatus validates a stored status name.
func ParseStaffAccountStatus(s string) (StaffAccountStatus, error) {
	switch status := StaffAccountStatus(s); status {
	case StatusPendingPasswordChange, StatusActive, StatusDisabled, StatusLocked:
		return status, nil
	default:
		return "", validationError("status", "unknown staff account status")
	}
}

func (s StaffAccountStatus) String() string { return string(s) }

// StaffAccount is the aggregate root for back-office credentials, lockout
// state, lifecycle status and assigned permissions.
type StaffAccount struct {
	id                              StaffAccountID
	username                        Username
	email                           Email
	password                        PasswordHash
	passwordIssuedAt                time.Time
	orderAccessDuration             AccessDuration
	modmailTranscriptAccessDuration AccessDuration
	status                          StaffAccountStatus
	failedLoginAttempts             int
	lockedUntil                     *time.Time
	lastLoginAt                     *time.Time
	createdBy                       *StaffAccountID
	disabledBy                      *StaffAccountID
	enabledBy                       *StaffAccountID
	permissions                     []Permission
	createdAt                       time.Time

	version          Version
	persistedVersion Version
	events           []Event
}

// NewStaffAccountParams carries the validated inputs for registration.
type NewStaffAccountParams struct {
	ID                              StaffAccountID
	Username                        Username
	Email                           Email
	Password                        PasswordHash
	OrderAccessDuration             AccessDuration
	ModmailTranscriptAccessDuration AccessDuration
	Permissions                     []Permission
	CreatedBy                       StaffAccountID
	Now                             time.Time
}

// RegisterStaffAccount creates an account that must change its temporary
// password before it becomes ACTIVE.
func RegisterStaffAccount(p NewStaffAccountParams) (*StaffAccount, error) {
	if p.ID.IsZero() {
		return nil, validationError("id", "must be assigned")
	}
	if p.Username.String() == "" {
		return nil, validationError("username", "is required")
	}
	if p.Email.String() == "" {
		return nil, validationError("email", "is required")
	}
	if p.Password.String() == "" {
		return nil, validationError("password_hash", "is required")
	}
	if p.OrderAccessDuration.Days() == 0 {
		return nil, validationError("order_access_duration", "is required")
	}
	if p.ModmailTranscriptAccessDuration.Days() == 0 {
		return nil, validationError("modmail_transcript_access_duration", "is required")
	}
	permissions, err := uniquePermissions(p.Permissions)
	if err != nil {
		return nil, err
	}

	now := p.Now.UTC()
	a := &StaffAccount{
		id:                              p.ID,
		username:                        p.Username,
		email:                           p.Email,
		password:                        p.Password,
		passwordIssuedAt:                now,
		orderAccessDuration:             p.OrderAccessDuration,
		modmailTranscriptAccessDuration: p.ModmailTranscriptAccessDuration,
		status:                          StatusPendingPasswordChange,
		permissions:                     permissions,
		createdAt:                       now,
		version:                         InitialVersion,
	}
	if !p.CreatedBy.IsZero() {
		createdBy := p.CreatedBy
		a.createdBy = &createdBy
	}
	a.record(StaffAccountRegistered{
		StaffAccountID: a.id,
		Username:       a.username.String(),
		CreatedBy:      p.CreatedBy,
		At:             now,
	})
	return a, nil
}

// StaffAccountSnapshot is the persisted shape of a staff account.
type StaffAccountSnapshot struct {
	ID                              StaffAccountID
	Username                        Username
	Email                           Email
	Password                        PasswordHash
	PasswordIssuedAt                time.Time
	OrderAccessDuration             AccessDuration
	ModmailTranscriptAccessDuration AccessDuration
	Status                          StaffAccountStatus
	FailedLoginAttempts             int
	LockedUntil                     *time.Time
	LastLoginAt                     *time.Time
	CreatedBy                       *StaffAccountID
	DisabledBy                      *StaffAccountID
	EnabledBy                       *StaffAccountID
	Permissions                     []Permission
	CreatedAt                       time.Time
	Version                         Version
}

// RehydrateStaffAccount restores an account loaded from storage.
func RehydrateStaffAccount(s StaffAccountSnapshot) (*StaffAccount, error) {
	if s.ID.IsZero() {
		return nil, validationError("id", "must be assigned")
	}
	if s.FailedLoginAttempts < 0 || s.FailedLoginAttempts > MaxFailedLoginAttempts {
		return nil, validationError("failed_login_attempts", "out of range")
	}
	if _, err := ParseStaffAccountStatus(string(s.Status)); err != nil {
		return nil, err
	}
	if s.Status == StatusLocked && s.LockedUntil == nil {
		return nil, validationError("locked_until", "locked account without lock expiry")
	}
	if _, err := NewVersion(s.Version.Int64()); err != nil {
		return nil, err
	}
	permissions, err := uniquePermissions(s.Permissions)
	if err != nil {
		return nil, err
	}
	return &StaffAccount{
		id:                              s.ID,
		username:                        s.Username,
		email:                           s.Email,
		password:                        s.Password,
		passwordIssuedAt:                s.PasswordIssuedAt,
		orderAccessDuration:             s.OrderAccessDuration,
		modmailTranscriptAccessDuration: s.ModmailTranscriptAccessDuration,
		status:                          s.Status,
		failedLoginAttempts:             s.FailedLoginAttempts,
		lockedUntil:                     copyTime(s.LockedUntil),
		lastLoginAt:                     copyTime(s.LastLoginAt),
		createdBy:                       copyID(s.CreatedBy),
		disabledBy:                      copyID(s.DisabledBy),
		enabledBy:                       copyID(s.EnabledBy),
		permissions:                     permissions,
		createdAt:                       s.CreatedAt,
		version:                         s.Version,
		persistedVersion:                s.Version,
	}, nil
}

// Snapshot returns the persisted shape of the account.
func (a *StaffAccount) Snapshot() StaffAccountSnapshot {
	return StaffAccountSnapshot{
		ID:                              a.id,
		Username:                        a.username,
		Email:                           a.email,
		Password:                        a.password,
		PasswordIssuedAt:                a.passwordIssuedAt,
		OrderAccessDuration:             a.orderAccessDuration,
		ModmailTranscriptAccessDuration: a.modmailTranscriptAccessDuration,
		Status:                          a.status,
		FailedLoginAttempts:             a.failedLoginAttempts,
		LockedUntil:                     copyTime(a.lockedUntil),
		LastLoginAt:                     copyTime(a.lastLoginAt),
		CreatedBy:                       copyID(a.createdBy),
		DisabledBy:                      copyID(a.disabledBy),
		EnabledBy:                       copyID(a.enabledBy),
		Permissions:                     a.Permissions(),
		CreatedAt:                       a.createdAt,
		Version:                         a.version,
	}
}

func (a *StaffAccount) ID() StaffAccountID          { return a.id }
func (a *StaffAccount) Username() Username          { return a.username }
func (a *StaffAccount) Email() Email                { return a.email }
func (a *StaffAccount) Password() PasswordHash      { return a.password }
func (a *StaffAccount) PasswordIssuedAt() time.Time { return a.passwordIssuedAt }
func (a *StaffAccount) Status() StaffAccountStatus  { return a.status }
func (a *StaffAccount) FailedLoginAttempts() int    { return a.failedLoginAttempts }
func (a *StaffAccount) LockedUntil() *time.Time     { return copyTime(a.lockedUntil) }
func (a *StaffAccount) LastLoginAt() *time.Time     { return copyTime(a.lastLoginAt) }
func (a *StaffAccount) CreatedBy() *StaffAccountID  { return copyID(a.createdBy) }
func (a *StaffAccount) DisabledBy() *StaffAccountID { return copyID(a.disabledBy) }
func (a *StaffAccount) EnabledBy() *StaffAccountID  { return copyID(a.enabledBy) }
func (a *StaffAccount) CreatedAt() time.Time        { return a.createdAt }
func (a *StaffAccount) Version() Version            { return a.version }

// OrderAccessDuration bounds how far back order data is visible.
func (a *StaffAccount) OrderAccessDuration() AccessDuration { return a.orderAccessDuration }

// ModmailTranscriptAccessDuration bounds how far back modmail transcripts are visible.
func (a *StaffAccount) ModmailTranscriptAccessDuration() AccessDuration {
	return a.modmailTranscriptAccessDuration
}

// PersistedVersion is the version last read from or written to storage.
// Repositories use it as the compare-and-swap token.
func (a *StaffAccount) PersistedVersion() Version { return a.persistedVersion }

// MarkPersisted is called by repositories after a successful write.
func (a *StaffAccount) MarkPersisted() { a.persistedVersion = a.version }

// Permissions returns a copy of the assigned permissions.
func (a *StaffAccount) Permissions() []Permission {
	out := make([]Permission, len(a.permissions))
	copy(out, a.permissions)
	return out
}

// PermissionIDs returns the ids of the assigned permissions.
func (a *StaffAccount) PermissionIDs() []PermissionID {
	out := make([]PermissionID, 0, len(a.permissions))
	for _, p := range a.permissions {
		out = append(out, p.ID)
	}
	return out
}

// PermissionCodes returns the assigned permission codes in sorted order.
func (a *StaffAccount) PermissionCodes() []string {
	out := make([]string, 0, len(a.permissions))
	for _, p := range a.permissions {
		out = append(out, p.Code.String())
	}
	sort.Strings(out)
	return out
}

// HasPermission reports whether the code is assigned.
func (a *StaffAccount) HasPermission(code string) bool {
	for _, p := range a.permissions {
		if p.Code.String() == code {
			return true
		}
	}
	return false
}

// PullEvents drains the events recorded since the last call.
func (a *StaffAccount) PullEvents() []Event {
	events := a.events
	a.events = nil
	return events
}

// IsLockActive reports whether the account is locked at now.
func (a *StaffAccount) IsLockActive(now time.Time) bool {
	return a.status == StatusLocked && a.lockedUntil != nil && a.lockedUntil.After(now)
}

// RequiresPasswordReset reports whether the holder must set a new password,
// either because the current one is temporary or because it is older than maxAge.
func (a *StaffAccount) RequiresPasswordReset(now time.Time, maxAge time.Duration) bool {
	if a.status == StatusPendingPasswordChange {
		return true
	}
	return maxAge > 0 && now.Sub(a.passwordIssuedAt) > maxAge
}

// EnsureCanAuthenticate rejects disabled accounts and accounts with an
// unexpired lock. It never mutates the account.
func (a *StaffAccount) EnsureCanAuthenticate(now time.Time) error {
	if a.status == StatusDisabled {
		return ErrAccountDisabled
	}
	if a.IsLockActive(now) {
		return lockedError(*a.lockedUntil)
	}
	return nil
}

// RecordSuccessfulLogin resets the failure counter and stamps lastLoginAt.
// An expired lock is lifted first.
func (a *StaffAccount) RecordSuccessfulLogin(now time.Time) error {
	if err := a.EnsureCanAuthenticate(now); err != nil {
		return err
	}
	now = now.UTC()
	if a.status == StatusLocked {
		a.status = StatusActive
	}
	a.failedLoginAttempts = 0
	a.lockedUntil = nil
	a.lastLoginAt = &now
	a.bump()
	a.record(LoggedIn{StaffAccountID: a.id, At: now})
	return nil
}

// RecordFailedLogin counts a wrong password and locks the account when the
// counter reaches MaxFailedLoginAttempts.
func (a *StaffAccount) RecordFailedLogin(now time.Time, lockoutDuration time.Duration) error {
	if a.status == StatusDisabled {
		return ErrAccountDisabled
	}
	if a.IsLockActive(now) {
		return lockedError(*a.lockedUntil)
	}
	if lockoutDuration <= 0 {
		return validationError("lockout_duration", "must be positive")
	}
	now = now.UTC()
	if a.status == StatusLocked {
		// lock expired: start a new attempt window
		a.status = StatusActive
		a.failedLoginAttempts = 0
		a.lockedUntil = nil
	}
	if a.failedLoginAttempts >= MaxFailedLoginAttempts {
		return ErrMaxAttemptsReached
	}

	a.failedLoginAttempts++
	a.record(FailedLoginRecorded{StaffAccountID: a.id, FailedLoginAttempts: a.failedLoginAttempts, At: now})
	if a.failedLoginAttempts == MaxFailedLoginAttempts {
		until := now.Add(lockoutDuration)
		a.status = StatusLocked
		a.lockedUntil = &until
		a.record(AccountLocked{StaffAccountID: a.id, LockedUntil: until, At: now})
	}
	a.bump()
	return nil
}

// Disable moves the account to DISABLED.
func (a *StaffAccount) Disable(requestingStaffAccountID StaffAccountID, now time.Time) error {
	if a.status == StatusDisabled {
		return transitionError("staff account is already disabled")
	}
	if requestingStaffAccountID.IsZero() {
		return validationError("requesting_staff_account_id", "is required")
	}
	by := requestingStaffAccountID
	a.status = StatusDisabled
	a.disabledBy = &by
	a.enabledBy = nil
	a.bump()
	a.record(AccountDisabled{StaffAccountID: a.id, DisabledBy: by, At: now.UTC()})
	return nil
}

// Enable re-opens a disabled account; the holder must set a new password.
func (a *StaffAccount) Enable(requestingStaffAccountID StaffAccountID, now time.Time) error {
	if a.status != StatusDisabled {
		return transitionError("only disabled staff accounts can be enabled")
	}
	if requestingStaffAccountID.IsZero() {
		return validationError("requesting_staff_account_id", "is required")
	}
	by := requestingStaffAccountID
	a.status = StatusPendingPasswordChange
	a.enabledBy = &by
	a.disabledBy = nil
	a.lockedUntil = nil
	a.failedLoginAttempts = 0
	a.bump()
	a.record(AccountEnabled{StaffAccountID: a.id, EnabledBy: by, At: now.UTC()})
	return nil
}

// ResetPassword installs a temporary password. Disabled accounts must be
// enabled first.
func (a *StaffAccount) ResetPassword(newHash PasswordHash, now time.Time) error {
	if a.status == StatusDisabled {
		return ErrAccountDisabled
	}
	if newHash.String() == "" {
		return validationError("password_hash", "is required")
	}
	now = now.UTC()
	a.password = newHash
	a.passwordIssuedAt = now
	a.status = StatusPendingPasswordChange
	a.failedLoginAttempts = 0
	a.lockedUntil = nil
	a.bump()
	a.record(PasswordReset{StaffAccountID: a.id, At: now})
	return nil
}

// ChangePassword is performed by the holder and completes the
// PENDING_PASSWORD_CHANGE -> ACTIVE edge.
func (a *StaffAccount) ChangePassword(newHash PasswordHash, now time.Time) error {
	if err := a.EnsureCanAuthenticate(now); err != nil {
		return err
	}
	if newHash.String() == "" {
		return validationError("password_hash", "is required")
	}
	now = now.UTC()
	a.password = newHash
	a.passwordIssuedAt = now
	a.status = StatusActive
	a.failedLoginAttempts = 0
	a.lockedUntil = nil
	a.bump()
	a.record(PasswordChanged{StaffAccountID: a.id, At: now})
	return nil
}

func (a *StaffAccount) bump() { a.version = a.version.Next() }

func (a *StaffAccount) record(e Event) { a.events = append(a.events, e) }

func uniquePermissions(in []Permission) ([]Permission, error) {
	seen := make(map[PermissionID]struct{}, len(in))
	out := make([]Permission, 0, len(in))
	for _, p := range in {
		if _, dup := seen[p.ID]; dup {
			return nil, validationError("permissions", "duplicate permission "+p.ID.String())
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyID(id *StaffAccountID) *StaffAccountID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
