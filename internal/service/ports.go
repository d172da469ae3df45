package service

import (
	"context"
	"time"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// PasswordHasher hashes and verifies account passwords. Verify reports a
// mismatch as false with a nil error.
type PasswordHasher interface {
	Hash(ctx context.Context, password domain.PlainPassword) (domain.PasswordHash, error)
	Verify(ctx context.Context, plain string, hash domain.PasswordHash) (bool, error)
}

// TokenHasher derives the stored form of a refresh token.
type TokenHasher interface {
	Hash(token domain.PlainRefreshToken) domain.TokenHash
}

// Clock returns the current time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
