package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestToken(t *testing.T, ttl time.Duration) *RefreshToken {
	t.Helper()
	hash, err := NewTokenHash("abc123")
	require.NoError(t, err)
	token, err := IssueRefreshToken(IssueRefreshTokenParams{
		ID:                  NewRefreshTokenID(),
		TokenHash:           hash,
		StaffAccountID:      NewStaffAccountID(),
		IssuedFromIPAddress: "10.0.0.1",
		ExpiresAt:           testNow.Add(ttl),
		Now:                 testNow,
	})
	require.NoError(t, err)
	token.MarkPersisted()
	token.PullEvents()
	return token
}

func TestIssueRefreshToken(t *testing.T) {
	hash, _ := NewTokenHash("abc")
	_, err := IssueRefreshToken(IssueRefreshTokenParams{
		ID:             NewRefreshTokenID(),
		TokenHash:      hash,
		StaffAccountID: NewStaffAccountID(),
		ExpiresAt:      testNow,
		Now:            testNow,
	})
	assert.ErrorIs(t, err, ErrValidation)

	token := newTestToken(t, time.Hour)
	assert.Equal(t, InitialVersion, token.Version())
	assert.True(t, token.IsActive(testNow))
	assert.False(t, token.IsActive(testNow.Add(time.Hour)))
	assert.True(t, token.IsExpired(testNow.Add(time.Hour)))
}

func TestRefreshTokenRevoke(t *testing.T) {
	token := newTestToken(t, time.Hour)

	require.NoError(t, token.Revoke(testNow))
	assert.True(t, token.IsRevoked())
	require.NotNil(t, token.RevokedAt())
	assert.Equal(t, testNow, *token.RevokedAt())
	assert.False(t, token.IsActive(testNow))
	assert.Equal(t, InitialVersion+1, token.Version())
	assert.Nil(t, token.ReplacedBy())

	assert.ErrorIs(t, token.Revoke(testNow.Add(time.Second)), ErrAlreadyRevoked)
	assert.Equal(t, testNow, *token.RevokedAt())
	assert.Equal(t, InitialVersion+1, token.Version())
}

func TestRefreshTokenMarkReplacedBy(t *testing.T) {
	token := newTestToken(t, time.Hour)
	next := NewRefreshTokenID()

	err := token.MarkReplacedBy(next)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, token.Revoke(testNow))
	require.NoError(t, token.MarkReplacedBy(next))
	require.NotNil(t, token.ReplacedBy())
	assert.Equal(t, next, *token.ReplacedBy())
	assert.Equal(t, InitialVersion+1, token.Version())

	assert.ErrorIs(t, token.MarkReplacedBy(NewRefreshTokenID()), ErrInvalidTransition)

	events := token.PullEvents()
	require.Len(t, events, 1)
	revoked, ok := events[0].(RefreshTokenRevoked)
	require.True(t, ok)
	require.NotNil(t, revoked.ReplacedBy)
	assert.Equal(t, next, *revoked.ReplacedBy)
}

func TestRefreshTokenMarkReplacedBy_OnlyInSameRotation(t *testing.T) {
	token := newTestToken(t, time.Hour)
	require.NoError(t, token.Revoke(testNow))
	token.MarkPersisted()

	assert.ErrorIs(t, token.MarkReplacedBy(NewRefreshTokenID()), ErrInvalidTransition)
}

func TestRehydrateRefreshToken_Invariants(t *testing.T) {
	token := newTestToken(t, time.Hour)

	snap := token.Snapshot()
	snap.IsRevoked = true
	_, err := RehydrateRefreshToken(snap)
	assert.ErrorIs(t, err, ErrValidation)

	snap = token.Snapshot()
	next := NewRefreshTokenID()
	snap.ReplacedBy = &next
	_, err = RehydrateRefreshToken(snap)
	assert.ErrorIs(t, err, ErrValidation)

	restored, err := RehydrateRefreshToken(token.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, token.Snapshot(), restored.Snapshot())
	assert.Equal(t, restored.Version(), restored.PersistedVersion())
}
