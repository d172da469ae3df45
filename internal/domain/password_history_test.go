package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaffAccountPasswordHistory(t *testing.T) {
	owner := NewStaffAccountID()
	first, err := NewPasswordHistoryEntry(owner, mustHash(t, "h1"), true, testNow)
	require.NoError(t, err)
	second, err := NewPasswordHistoryEntry(owner, mustHash(t, "h2"), false, testNow.Add(time.Hour))
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := NewStaffAccountPasswordHistory(nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("mixed owners", func(t *testing.T) {
		foreign, err := NewPasswordHistoryEntry(NewStaffAccountID(), mustHash(t, "h3"), false, testNow)
		require.NoError(t, err)
		_, err = NewStaffAccountPasswordHistory([]PasswordHistoryEntry{first, foreign})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("single owner", func(t *testing.T) {
		history, err := NewStaffAccountPasswordHistory([]PasswordHistoryEntry{first, second})
		require.NoError(t, err)
		assert.Equal(t, owner, history.StaffAccountID())
		assert.Equal(t, second, history.Latest())
		assert.Equal(t, []PasswordHistoryEntry{second}, history.Recent(1))
		assert.Len(t, history.Recent(10), 2)
		assert.Nil(t, history.Recent(0))
	})
}

func TestNewPasswordHistoryEntry_Validation(t *testing.T) {
	_, err := NewPasswordHistoryEntry(StaffAccountID{}, mustHash(t, "h"), false, testNow)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewPasswordHistoryEntry(NewStaffAccountID(), PasswordHash{}, false, testNow)
	assert.ErrorIs(t, err, ErrValidation)
}
