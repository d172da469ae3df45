package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-account-service/internal/auth"
	"github.com/spec-kit/staff-account-service/internal/config"
	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/internal/repository/memory"
	"github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testPassword        = "Str0ng!Pass"
	staffManageID       = "6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a01"
	sessionsRevokeID    = "6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a02"
	ordersReadID        = "6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a03"
	unknownPermissionID = "6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0aff"
)

var testAuthConfig = config.AuthConfig{
	RefreshTokenTTLDays: 30,
	LockoutMinutes:      15,
	PasswordMaxAgeDays:  90,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// prefixHasher keeps tests fast; bcrypt is covered in the auth package.
type prefixHasher struct{}

func (prefixHasher) Hash(_ context.Context, password domain.PlainPassword) (domain.PasswordHash, error) {
	return domain.NewPasswordHash("hashed:" + password.String())
}

func (prefixHasher) Verify(_ context.Context, plain string, hash domain.PasswordHash) (bool, error) {
	return hash.String() == "hashed:"+plain, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) PublishAll(_ context.Context, evs []domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evs...)
	return nil
}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.EventName())
	}
	return names
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishAll(ctx context.Context, evs []domain.Event) error {
	args := m.Called(ctx, evs)
	return args.Error(0)
}

type testEnv struct {
	clock    *fakeClock
	store    *memory.Store
	accounts repository.StaffAccountRepository
	tokens   repository.RefreshTokenRepository
	history  repository.PasswordHistoryRepository
	bus      *recordingBus
	auth     *AuthService
	staff    *StaffAccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithBus(t, nil)
}

// newTestEnvWithBus wires the services over the in-memory store. A nil bus
// selects a recording bus.
func newTestEnvWithBus(t *testing.T, bus events.Bus) *testEnv {
	t.Helper()
	env := &testEnv{
		clock: &fakeClock{now: testNow},
		store: memory.NewStore(memory.DefaultPermissions()...),
		bus:   &recordingBus{},
	}
	if bus == nil {
		bus = env.bus
	}
	env.accounts = memory.NewStaffAccountRepository(env.store)
	env.tokens = memory.NewRefreshTokenRepository(env.store)
	env.history = memory.NewPasswordHistoryRepository(env.store)
	uow := memory.NewUnitOfWork(env.store)
	clock := Clock(env.clock.Now)
	revocation := NewRevocationService(env.tokens, bus, clock)

	env.auth = NewAuthService(testAuthConfig, AuthDependencies{
		UnitOfWork:      uow,
		StaffAccounts:   env.accounts,
		RefreshTokens:   env.tokens,
		PasswordHistory: env.history,
		Revocation:      revocation,
		Passwords:       prefixHasher{},
		TokenHasher:     auth.SHA3TokenHasher{},
		Bus:             bus,
		Clock:           clock,
	})
	env.staff = NewStaffAccountService(StaffAccountDependencies{
		UnitOfWork:      uow,
		StaffAccounts:   env.accounts,
		PasswordHistory: env.history,
		Permissions:     memory.NewPermissionRepository(env.store),
		Revocation:      revocation,
		Passwords:       prefixHasher{},
		Bus:             bus,
		Clock:           clock,
	})
	return env
}

// seedActiveAccount stores an ACTIVE account whose password is testPassword.
func (e *testEnv) seedActiveAccount(t *testing.T, username string, permissionIDs ...string) *domain.StaffAccount {
	t.Helper()
	ctx := context.Background()

	u, err := domain.NewUsername(username)
	require.NoError(t, err)
	email, err := domain.NewEmail(username + "@example.com")
	require.NoError(t, err)
	days, err := domain.NewAccessDuration("order_access_days", 30)
	require.NoError(t, err)
	hash, err := prefixHasher{}.Hash(ctx, mustPlainPassword(t, testPassword))
	require.NoError(t, err)

	var permissions []domain.Permission
	if len(permissionIDs) > 0 {
		ids, err := parsePermissionIDs(permissionIDs)
		require.NoError(t, err)
		permissions, err = memory.NewPermissionRepository(e.store).GetByIDs(ctx, ids)
		require.NoError(t, err)
	}

	account, err := domain.RegisterStaffAccount(domain.NewStaffAccountParams{
		ID:                              domain.NewStaffAccountID(),
		Username:                        u,
		Email:                           email,
		Password:                        hash,
		OrderAccessDuration:             days,
		ModmailTranscriptAccessDuration: days,
		Permissions:                     permissions,
		Now:                             e.clock.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, account.ChangePassword(hash, e.clock.Now()))
	account.PullEvents()
	require.NoError(t, e.accounts.Create(ctx, account))

	entry, err := domain.NewPasswordHistoryEntry(account.ID(), hash, false, e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.history.Append(ctx, entry))
	return account
}

func (e *testEnv) reload(t *testing.T, id domain.StaffAccountID) *domain.StaffAccount {
	t.Helper()
	account, err := e.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func (e *testEnv) tokenByPlain(t *testing.T, plain string) *domain.RefreshToken {
	t.Helper()
	p, err := domain.NewPlainRefreshToken(plain)
	require.NoError(t, err)
	token, err := e.tokens.GetByTokenHash(context.Background(), auth.SHA3TokenHasher{}.Hash(p))
	require.NoError(t, err)
	return token
}

func (e *testEnv) activeTokens(t *testing.T, id domain.StaffAccountID) []*domain.RefreshToken {
	t.Helper()
	tokens, err := e.tokens.GetActiveTokensByStaffAccountID(context.Background(), id, e.clock.Now())
	require.NoError(t, err)
	return tokens
}

func (e *testEnv) login(t *testing.T, username, password string) *LoginResponse {
	t.Helper()
	resp, err := e.auth.Login(context.Background(), LoginCommand{Username: username, Password: password, IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	return resp
}

func mustPlainPassword(t *testing.T, raw string) domain.PlainPassword {
	t.Helper()
	p, err := domain.NewPlainPassword(raw)
	require.NoError(t, err)
	return p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, errorutil.ToAppError(err).Code, err.Error())
}
