package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// BcryptHasher hashes staff passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to bcrypt's
// default for out-of-range values.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes a plaintext password with the configured cost.
func (h *BcryptHasher) Hash(ctx context.Context, password domain.PlainPassword) (domain.PasswordHash, error) {
	if err := ctx.Err(); err != nil {
		return domain.PasswordHash{}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password.String()), h.cost)
	if err != nil {
		return domain.PasswordHash{}, err
	}
	return domain.NewPasswordHash(string(hashed))
}

// Verify reports whether plain matches hash. A mismatch is not an error.
func (h *BcryptHasher) Verify(ctx context.Context, plain string, hash domain.PasswordHash) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash.String()), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, err
	}
}
