package domain

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsername(t *testing.T) {
	valid := []string{"john_doe", "abc", "A1_b2", "staffer2026", "a2345678901234567890"}
	for _, raw := range valid {
		u, err := NewUsername(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, u.String())
	}

	invalid := []string{
		"",
		"ab",
		"a23456789012345678901",
		"1john",
		"_john",
		"john__doe",
		"john_",
		"john-doe",
		"john doe",
		"Admin",
		"root",
	}
	for _, raw := range invalid {
		_, err := NewUsername(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestNewEmail(t *testing.T) {
	e, err := NewEmail("  John_Doe@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "john_doe@example.com", e.String())

	for _, raw := range []string{"", "not-an-email", "a@", "@example.com", strings.Repeat("a", 320) + "@example.com"} {
		_, err := NewEmail(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestNewPlainPassword(t *testing.T) {
	_, err := NewPlainPassword("Str0ng!Pass")
	require.NoError(t, err)

	for _, raw := range []string{"Sh0rt!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSpecial12", "Has Space1!"} {
		_, err := NewPlainPassword(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestNewPlainPassword_ByteLimit(t *testing.T) {
	atLimit := "Aa1!" + strings.Repeat("x", 68)
	require.Len(t, atLimit, 72)
	_, err := NewPlainPassword(atLimit)
	assert.NoError(t, err)

	_, err = NewPlainPassword(atLimit + "x")
	assert.ErrorIs(t, err, ErrValidation)

	// 38 runes, 72 bytes
	multiByte := "Aa1!" + strings.Repeat("é", 34)
	require.Len(t, multiByte, 72)
	_, err = NewPlainPassword(multiByte + "é")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		p, err := GenerateTemporaryPassword()
		require.NoError(t, err)
		raw := p.String()
		assert.Len(t, raw, temporaryPasswordLength)
		assert.False(t, strings.IndexFunc(raw, unicode.IsSpace) >= 0)
		_, err = NewPlainPassword(raw)
		assert.NoError(t, err)
		seen[raw] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestPlainRefreshToken(t *testing.T) {
	token, err := GeneratePlainRefreshToken()
	require.NoError(t, err)
	assert.Len(t, token.String(), 43)

	parsed, err := NewPlainRefreshToken(token.String())
	require.NoError(t, err)
	assert.Equal(t, token, parsed)

	_, err = NewPlainRefreshToken("short")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewAccessDuration(t *testing.T) {
	d, err := NewAccessDuration("order_access_duration", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, d.Days())

	for _, days := range []int{0, -1, 3651} {
		_, err := NewAccessDuration("order_access_duration", days)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestIdentifiers(t *testing.T) {
	id := NewStaffAccountID()
	parsed, err := ParseStaffAccountID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseStaffAccountID("nope")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = ParseRefreshTokenID("00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrValidation)

	text, err := id.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, id.String(), string(text))
}

func TestNewPermissionCode(t *testing.T) {
	_, err := NewPermissionCode("staff.manage")
	require.NoError(t, err)
	for _, raw := range []string{"", "Staff.Manage", "staff..manage", ".staff"} {
		_, err := NewPermissionCode(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestVersion(t *testing.T) {
	v, err := NewVersion(3)
	require.NoError(t, err)
	assert.Equal(t, Version(4), v.Next())
	_, err = NewVersion(0)
	assert.ErrorIs(t, err, ErrValidation)
}
