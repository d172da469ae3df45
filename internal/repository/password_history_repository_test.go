package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

func TestPasswordHistoryRepository_Append(t *testing.T) {
	mockPool := setupMockPool(t)
	repo := NewPasswordHistoryRepository(mockPool)

	owner := domain.NewStaffAccountID()
	hash, err := domain.NewPasswordHash("$2a$12$old")
	require.NoError(t, err)
	entry, err := domain.NewPasswordHistoryEntry(owner, hash, true, testNow)
	require.NoError(t, err)

	mockPool.ExpectExec(`INSERT INTO staff_account_password_history`).
		WithArgs(owner.String(), "$2a$12$old", true, testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Append(context.Background(), entry))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPasswordHistoryRepository_ListByStaffAccountID(t *testing.T) {
	mockPool := setupMockPool(t)
	repo := NewPasswordHistoryRepository(mockPool)
	ctx := context.Background()
	owner := domain.NewStaffAccountID()

	t.Run("NewestFirst", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM staff_account_password_history WHERE staff_account_id = \$1`).
			WithArgs(owner.String(), domain.PasswordHistoryDepth).
			WillReturnRows(mockPool.NewRows([]string{"password_hash", "is_temporary", "changed_at"}).
				AddRow("$2a$12$new", false, testNow).
				AddRow("$2a$12$old", true, testNow.Add(-time.Hour)))

		history, err := repo.ListByStaffAccountID(ctx, owner, 0)
		require.NoError(t, err)
		assert.Equal(t, owner, history.StaffAccountID())
		assert.Equal(t, "$2a$12$new", history.Latest().HashedPassword.String())
		assert.Len(t, history.Entries(), 2)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mockPool.ExpectQuery(`FROM staff_account_password_history`).
			WithArgs(owner.String(), 3).
			WillReturnRows(mockPool.NewRows([]string{"password_hash", "is_temporary", "changed_at"}))

		_, err := repo.ListByStaffAccountID(ctx, owner, 3)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPermissionRepository_GetByIDs(t *testing.T) {
	mockPool := setupMockPool(t)
	repo := NewPermissionRepository(mockPool)
	ctx := context.Background()

	manage := domain.NewPermissionID()
	unknown := domain.NewPermissionID()

	mockPool.ExpectQuery(`SELECT id, code FROM permissions WHERE id = ANY\(\$1\)`).
		WithArgs([]string{manage.String(), unknown.String()}).
		WillReturnRows(mockPool.NewRows([]string{"id", "code"}).AddRow(manage.String(), "staff.manage"))

	permissions, err := repo.GetByIDs(ctx, []domain.PermissionID{manage, unknown})
	require.NoError(t, err)
	require.Len(t, permissions, 1)
	assert.Equal(t, manage, permissions[0].ID)
	assert.Equal(t, "staff.manage", permissions[0].Code.String())

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
