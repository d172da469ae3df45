package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, username string, permissions ...domain.Permission) *domain.StaffAccount {
	t.Helper()
	u, err := domain.NewUsername(username)
	require.NoError(t, err)
	email, err := domain.NewEmail(username + "@example.com")
	require.NoError(t, err)
	hash, err := domain.NewPasswordHash("hash-" + username)
	require.NoError(t, err)
	days, err := domain.NewAccessDuration("order_access_duration", 30)
	require.NoError(t, err)
	account, err := domain.RegisterStaffAccount(domain.NewStaffAccountParams{
		ID:                              domain.NewStaffAccountID(),
		Username:                        u,
		Email:                           email,
		Password:                        hash,
		OrderAccessDuration:             days,
		ModmailTranscriptAccessDuration: days,
		Permissions:                     permissions,
		Now:                             testNow,
	})
	require.NoError(t, err)
	return account
}

func newToken(t *testing.T, owner domain.StaffAccountID, hash string) *domain.RefreshToken {
	t.Helper()
	h, err := domain.NewTokenHash(hash)
	require.NoError(t, err)
	token, err := domain.IssueRefreshToken(domain.IssueRefreshTokenParams{
		ID:             domain.NewRefreshTokenID(),
		TokenHash:      h,
		StaffAccountID: owner,
		ExpiresAt:      testNow.Add(time.Hour),
		Now:            testNow,
	})
	require.NoError(t, err)
	return token
}

func TestStaffAccountRepository(t *testing.T) {
	store := NewStore(DefaultPermissions()...)
	repo := NewStaffAccountRepository(store)
	ctx := context.Background()

	account := newAccount(t, "jane_doe", DefaultPermissions()[0])
	require.NoError(t, repo.Create(ctx, account))
	assert.Equal(t, account.Version(), account.PersistedVersion())

	t.Run("username is unique case-insensitively", func(t *testing.T) {
		err := repo.Create(ctx, newAccount(t, "Jane_Doe"))
		assert.ErrorIs(t, err, repository.ErrDuplicate)
	})

	t.Run("lookups return independent copies", func(t *testing.T) {
		username, _ := domain.NewUsername("JANE_DOE")
		loaded, err := repo.GetByUsername(ctx, username)
		require.NoError(t, err)
		assert.Equal(t, account.ID(), loaded.ID())
		assert.Equal(t, []string{domain.PermissionStaffManage}, loaded.PermissionCodes())

		require.NoError(t, loaded.RecordFailedLogin(testNow, time.Minute))
		again, err := repo.GetByID(ctx, account.ID())
		require.NoError(t, err)
		assert.Equal(t, 0, again.FailedLoginAttempts())
	})

	t.Run("stale writer loses", func(t *testing.T) {
		first, err := repo.GetByID(ctx, account.ID())
		require.NoError(t, err)
		second, err := repo.GetByID(ctx, account.ID())
		require.NoError(t, err)

		require.NoError(t, first.RecordFailedLogin(testNow, time.Minute))
		require.NoError(t, second.RecordFailedLogin(testNow, time.Minute))

		require.NoError(t, repo.Update(ctx, first))
		assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrVersionConflict)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, domain.NewStaffAccountID())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUnitOfWork_RollbackRestoresState(t *testing.T) {
	store := NewStore()
	uow := NewUnitOfWork(store)
	accounts := NewStaffAccountRepository(store)
	tokens := NewRefreshTokenRepository(store)
	history := NewPasswordHistoryRepository(store)
	ctx := context.Background()

	account := newAccount(t, "jane_doe")
	require.NoError(t, accounts.Create(ctx, account))

	txCtx, tx, err := uow.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, account.RecordFailedLogin(testNow, time.Minute))
	require.NoError(t, accounts.Update(txCtx, account))
	require.NoError(t, tokens.Create(txCtx, newToken(t, account.ID(), "hash-1")))
	entry, err := domain.NewPasswordHistoryEntry(account.ID(), account.Password(), true, testNow)
	require.NoError(t, err)
	require.NoError(t, history.Append(txCtx, entry))

	_, _, err = uow.Begin(txCtx)
	assert.Error(t, err)

	require.NoError(t, tx.Rollback(txCtx))
	assert.NoError(t, tx.Rollback(txCtx))

	loaded, err := accounts.GetByID(ctx, account.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.InitialVersion, loaded.Version())
	active, err := tokens.GetActiveTokensByStaffAccountID(ctx, account.ID(), testNow)
	require.NoError(t, err)
	assert.Empty(t, active)
	_, err = history.ListByStaffAccountID(ctx, account.ID(), 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUnitOfWork_BeginHonoursContext(t *testing.T) {
	store := NewStore()
	uow := NewUnitOfWork(store)

	txCtx, tx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = uow.Begin(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Commit(txCtx))
	_, next, err := uow.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, next.Commit(context.Background()))
}

func TestRefreshTokenRepository_UpdateAllIsAtomic(t *testing.T) {
	store := NewStore()
	accounts := NewStaffAccountRepository(store)
	repo := NewRefreshTokenRepository(store)
	ctx := context.Background()

	account := newAccount(t, "jane_doe")
	require.NoError(t, accounts.Create(ctx, account))

	first := newToken(t, account.ID(), "hash-1")
	second := newToken(t, account.ID(), "hash-2")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	stale, err := repo.GetByTokenHash(ctx, second.TokenHash())
	require.NoError(t, err)
	require.NoError(t, second.Revoke(testNow))
	require.NoError(t, repo.Update(ctx, second))

	require.NoError(t, first.Revoke(testNow))
	require.NoError(t, stale.Revoke(testNow))
	err = repo.UpdateAll(ctx, []*domain.RefreshToken{first, stale})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	reloaded, err := repo.GetByTokenHash(ctx, first.TokenHash())
	require.NoError(t, err)
	assert.False(t, reloaded.IsRevoked())

	active, err := repo.GetActiveTokensByStaffAccountID(ctx, account.ID(), testNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID(), active[0].ID())

	assert.ErrorIs(t, repo.Create(ctx, newToken(t, account.ID(), "hash-1")), repository.ErrDuplicate)
}

func TestPasswordHistoryRepository_ListLimitsNewestFirst(t *testing.T) {
	store := NewStore()
	repo := NewPasswordHistoryRepository(store)
	ctx := context.Background()
	owner := domain.NewStaffAccountID()

	for i := 0; i < 7; i++ {
		hash, err := domain.NewPasswordHash(string(rune('a' + i)))
		require.NoError(t, err)
		entry, err := domain.NewPasswordHistoryEntry(owner, hash, i == 0, testNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, entry))
	}

	history, err := repo.ListByStaffAccountID(ctx, owner, domain.PasswordHistoryDepth)
	require.NoError(t, err)
	entries := history.Entries()
	require.Len(t, entries, domain.PasswordHistoryDepth)
	assert.Equal(t, "g", entries[0].HashedPassword.String())
	assert.Equal(t, "c", entries[4].HashedPassword.String())
}

func TestPermissionRepository_GetByIDs(t *testing.T) {
	catalog := DefaultPermissions()
	repo := NewPermissionRepository(NewStore(catalog...))

	found, err := repo.GetByIDs(context.Background(), []domain.PermissionID{catalog[1].ID, catalog[0].ID, catalog[0].ID, domain.NewPermissionID()})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, domain.PermissionStaffManage, found[0].Code.String())
	assert.Equal(t, domain.PermissionStaffSessionsRevoke, found[1].Code.String())
}
