package domain

import "time"

// Event is a fact recorded by an aggregate. Aggregates only collect events;
// command handlers publish them after persistence.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

const (
	EventStaffAccountRegistered    = "staff_account.registered"
	EventLoggedIn                  = "staff_account.logged_in"
	EventFailedLoginRecorded       = "staff_account.failed_login_recorded"
	EventAccountLocked             = "staff_account.locked"
	EventAccountDisabled           = "staff_account.disabled"
	EventAccountEnabled            = "staff_account.enabled"
	EventPasswordReset             = "staff_account.password_reset"
	EventPasswordChanged           = "staff_account.password_changed"
	EventRefreshTokenIssued        = "refresh_token.issued"
	EventRefreshTokenRevoked       = "refresh_token.revoked"
	EventRefreshTokenReuseDetected = "refresh_token.reuse_detected"
)

// StaffAccountRegistered is raised when an account is created.
type StaffAccountRegistered struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	Username       string         `json:"username"`
	CreatedBy      StaffAccountID `json:"created_by"`
	At             time.Time      `json:"at"`
}

// LoggedIn is raised on a successful credential check.
type LoggedIn struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	At             time.Time      `json:"at"`
}

// FailedLoginRecorded is raised for every wrong password.
type FailedLoginRecorded struct {
	StaffAccountID      StaffAccountID `json:"staff_account_id"`
	FailedLoginAttempts int            `json:"failed_login_attempts"`
	At                  time.Time      `json:"at"`
}

// AccountLocked is raised when the failed-attempt threshold is reached.
type AccountLocked struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	LockedUntil    time.Time      `json:"locked_until"`
	At             time.Time      `json:"at"`
}

// AccountDisabled is raised by Disable.
type AccountDisabled struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	DisabledBy     StaffAccountID `json:"disabled_by"`
	At             time.Time      `json:"at"`
}

// AccountEnabled is raised by Enable.
type AccountEnabled struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	EnabledBy      StaffAccountID `json:"enabled_by"`
	At             time.Time      `json:"at"`
}

// PasswordReset is raised when a temporary password is issued.
type PasswordReset struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	At             time.Time      `json:"at"`
}

// PasswordChanged is raised when the account holder sets a new password.
type PasswordChanged struct {
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	At             time.Time      `json:"at"`
}

// RefreshTokenIssued is raised for every new refresh token.
type RefreshTokenIssued struct {
	RefreshTokenID RefreshTokenID `json:"refresh_token_id"`
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	ExpiresAt      time.Time      `json:"expires_at"`
	At             time.Time      `json:"at"`
}

// RefreshTokenRevoked is raised when a token is revoked, by rotation or otherwise.
type RefreshTokenRevoked struct {
	RefreshTokenID RefreshTokenID  `json:"refresh_token_id"`
	StaffAccountID StaffAccountID  `json:"staff_account_id"`
	ReplacedBy     *RefreshTokenID `json:"replaced_by,omitempty"`
	At             time.Time       `json:"at"`
}

// RefreshTokenReuseDetected is raised when a dead token is presented again.
type RefreshTokenReuseDetected struct {
	RefreshTokenID RefreshTokenID `json:"refresh_token_id"`
	StaffAccountID StaffAccountID `json:"staff_account_id"`
	RevokedCount   int            `json:"revoked_count"`
	At             time.Time      `json:"at"`
}

func (e StaffAccountRegistered) EventName() string     { return EventStaffAccountRegistered }
func (e StaffAccountRegistered) AggregateID() string   { return e.StaffAccountID.String() }
func (e StaffAccountRegistered) OccurredAt() time.Time { return e.At }

func (e LoggedIn) EventName() string     { return EventLoggedIn }
func (e LoggedIn) AggregateID() string   { return e.StaffAccountID.String() }
func (e LoggedIn) OccurredAt() time.Time { return e.At }

func (e FailedLoginRecorded) EventName() string     { return EventFailedLoginRecorded }
func (e FailedLoginRecorded) AggregateID() string   { return e.StaffAccountID.String() }
func (e FailedLoginRecorded) OccurredAt() time.Time { return e.At }

func (e AccountLocked) EventName() string     { return EventAccountLocked }
func (e AccountLocked) AggregateID() string   { return e.StaffAccountID.String() }
func (e AccountLocked) OccurredAt() time.Time { return e.At }

func (e AccountDisabled) EventName() string     { return EventAccountDisabled }
func (e AccountDisabled) AggregateID() string   { return e.StaffAccountID.String() }
func (e AccountDisabled) OccurredAt() time.Time { return e.At }

func (e AccountEnabled) EventName() string     { return EventAccountEnabled }
func (e AccountEnabled) AggregateID() string   { return e.StaffAccountID.String() }
func (e AccountEnabled) OccurredAt() time.Time { return e.At }

func (e PasswordReset) EventName() string     { return EventPasswordReset }
func (e PasswordReset) AggregateID() string   { return e.StaffAccountID.String() }
func (e PasswordReset) OccurredAt() time.Time { return e.At }

func (e PasswordChanged) EventName() string     { return EventPasswordChanged }
func (e PasswordChanged) AggregateID() string   { return e.StaffAccountID.String() }
func (e PasswordChanged) OccurredAt() time.Time { return e.At }

func (e RefreshTokenIssued) EventName() string     { return EventRefreshTokenIssued }
func (e RefreshTokenIssued) AggregateID() string   { return e.RefreshTokenID.String() }
func (e RefreshTokenIssued) OccurredAt() time.Time { return e.At }

func (e RefreshTokenRevoked) EventName() string     { return EventRefreshTokenRevoked }
func (e RefreshTokenRevoked) AggregateID() string   { return e.RefreshTokenID.String() }
func (e RefreshTokenRevoked) OccurredAt() time.Time { return e.At }

func (e RefreshTokenReuseDetected) EventName() string     { return EventRefreshTokenReuseDetected }
func (e RefreshTokenReuseDetected) AggregateID() string   { return e.RefreshTokenID.String() }
func (e RefreshTokenReuseDetected) OccurredAt() time.Time { return e.At }
