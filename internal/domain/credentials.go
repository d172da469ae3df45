package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

const (
	passwordMinLength = 8
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	passwordMaxBytes           = 72
	temporaryPasswordLength    = 16
	refreshTokenEntropyBytes   = 32
	plainRefreshTokenMinLength = 32
	plainRefreshTokenMaxLength = 512
)

const (
	upperChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars   = "abcdefghijkmnopqrstuvwxyz"
	digitChars   = "23456789"
	specialChars = "!@#$%^&*()-_=+[]{}?"
)

// PasswordHash is the opaque output of the password hasher.
type PasswordHash struct{ value string }

// NewPasswordHash wraps a stored hash.
func NewPasswordHash(raw string) (PasswordHash, error) {
	if strings.TrimSpace(raw) == "" {
		return PasswordHash{}, validationError("password_hash", "must not be empty")
	}
	return PasswordHash{value: raw}, nil
}

func (h PasswordHash) String() string { return h.value }

// PlainPassword is a plaintext password that satisfies the password policy.
// It is never persisted.
type PlainPassword struct{ value string }

// NewPlainPassword enforces the password policy.
func NewPlainPassword(raw string) (PlainPassword, error) {
	if len(raw) < passwordMinLength {
		return PlainPassword{}, validationError("password", fmt.Sprintf("must be at least %d characters", passwordMinLength))
	}
	if len(raw) > passwordMaxBytes {
		return PlainPassword{}, validationError("password", fmt.Sprintf("must be at most %d bytes", passwordMaxBytes))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			return PlainPassword{}, validationError("password", "must not contain whitespace")
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return PlainPassword{}, validationError("password", "must contain upper case, lower case, digit and special characters")
	}
	return PlainPassword{value: raw}, nil
}

func (p PlainPassword) String() string { return p.value }

// GenerateTemporaryPassword returns a random password that satisfies the policy.
func GenerateTemporaryPassword() (PlainPassword, error) {
	all := upperChars + lowerChars + digitChars + specialChars
	buf := make([]byte, 0, temporaryPasswordLength)
	for _, set := range []string{upperChars, lowerChars, digitChars, specialChars} {
		c, err := randomChar(set)
		if err != nil {
			return PlainPassword{}, err
		}
		buf = append(buf, c)
	}
	for len(buf) < temporaryPasswordLength {
		c, err := randomChar(all)
		if err != nil {
			return PlainPassword{}, err
		}
		buf = append(buf, c)
	}
	// Fisher-Yates so the guaranteed classes are not always in front.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return PlainPassword{}, fmt.Errorf("shuffle temporary password: %w", err)
		}
		buf[i], buf[j.Int64()] = buf[j.Int64()], buf[i]
	}
	return NewPlainPassword(string(buf))
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("generate temporary password: %w", err)
	}
	return set[n.Int64()], nil
}

// PlainRefreshToken is the bearer secret handed to the client once.
type PlainRefreshToken struct{ value string }

// NewPlainRefreshToken validates a presented refresh token.
func NewPlainRefreshToken(raw string) (PlainRefreshToken, error) {
	value := strings.TrimSpace(raw)
	if len(value) < plainRefreshTokenMinLength || len(value) > plainRefreshTokenMaxLength {
		return PlainRefreshToken{}, validationError("refresh_token", "malformed refresh token")
	}
	return PlainRefreshToken{value: value}, nil
}

// GeneratePlainRefreshToken returns a fresh random bearer secret.
func GeneratePlainRefreshToken() (PlainRefreshToken, error) {
	b := make([]byte, refreshTokenEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		return PlainRefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return PlainRefreshToken{value: base64.RawURLEncoding.EncodeToString(b)}, nil
}

func (t PlainRefreshToken) String() string { return t.value }

// TokenHash is the one-way hash under which a refresh token is stored.
type TokenHash struct{ value string }

// NewTokenHash wraps a stored token hash.
func NewTokenHash(raw string) (TokenHash, error) {
	if strings.TrimSpace(raw) == "" {
		return TokenHash{}, validationError("token_hash", "must not be empty")
	}
	return TokenHash{value: raw}, nil
}

func (h TokenHash) String() string { return h.value }
