package domain

import (
	"fmt"
	"time"
)

// ErrorKind classifies domain failures.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAccountDisabled
	KindAccountLocked
	KindMaxAttemptsReached
	KindAlreadyRevoked
	KindInvalidTransition
	KindPasswordReused
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAccountDisabled:
		return "account_disabled"
	case KindAccountLocked:
		return "account_locked"
	case KindMaxAttemptsReached:
		return "max_attempts_reached"
	case KindAlreadyRevoked:
		return "already_revoked"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindPasswordReused:
		return "password_reused"
	default:
		return "unknown"
	}
}

// Error is the failure value returned by value objects and aggregates.
// Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind        ErrorKind
	Field       string
	Message     string
	LockedUntil *time.Time
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is reports kind equality so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrAccountDisabled    = &Error{Kind: KindAccountDisabled, Message: "staff account is disabled"}
	ErrAccountLocked      = &Error{Kind: KindAccountLocked, Message: "staff account is locked"}
	ErrMaxAttemptsReached = &Error{Kind: KindMaxAttemptsReached, Message: "maximum failed login attempts reached"}
	ErrAlreadyRevoked     = &Error{Kind: KindAlreadyRevoked, Message: "refresh token already revoked"}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition, Message: "invalid state transition"}
	ErrPasswordReused     = &Error{Kind: KindPasswordReused, Message: "password was used recently"}
)

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func transitionError(message string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: message}
}

func lockedError(until time.Time) *Error {
	u := until
	return &Error{Kind: KindAccountLocked, Message: ErrAccountLocked.Message, LockedUntil: &u}
}
