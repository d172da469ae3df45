package auth

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// SHA3TokenHasher derives the stored lookup key of a refresh token. Refresh
// tokens carry 256 bits of entropy, so an unsalted digest is sufficient.
type SHA3TokenHasher struct{}

func (SHA3TokenHasher) Hash(token domain.PlainRefreshToken) domain.TokenHash {
	sum := sha3.Sum256([]byte(token.String()))
	hash, _ := domain.NewTokenHash(hex.EncodeToString(sum[:]))
	return hash
}
