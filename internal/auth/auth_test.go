package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository/memory"
	apperrors "github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	ctx := context.Background()

	plain, err := domain.NewPlainPassword("Str0ng!Pass")
	require.NoError(t, err)
	hash, err := h.Hash(ctx, plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain.String(), hash.String())

	ok, err := h.Verify(ctx, "Str0ng!Pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "Wr0ng!Pass", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Verify(ctx, "Str0ng!Pass"+strings.Repeat("x", 90), hash)
	require.NoError(t, err)
	assert.False(t, ok)

	garbage, _ := domain.NewPasswordHash("not-a-bcrypt-hash")
	_, err = h.Verify(ctx, "Str0ng!Pass", garbage)
	assert.Error(t, err)

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}

func TestSHA3TokenHasher(t *testing.T) {
	token, err := domain.GeneratePlainRefreshToken()
	require.NoError(t, err)
	other, err := domain.GeneratePlainRefreshToken()
	require.NoError(t, err)

	var h SHA3TokenHasher
	assert.Equal(t, h.Hash(token), h.Hash(token))
	assert.NotEqual(t, h.Hash(token), h.Hash(other))
	assert.Len(t, h.Hash(token).String(), 64)
	assert.NotContains(t, h.Hash(token).String(), token.String())
}

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	tm.now = func() time.Time { return testNow }

	signed, expiresAt, err := tm.GenerateToken("b7e6c7a4-2f0e-4c83-9b1f-0c3e5f8f2d11", []string{"staff.manage"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(15*time.Minute), expiresAt)

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "b7e6c7a4-2f0e-4c83-9b1f-0c3e5f8f2d11", claims.Subject)
	assert.Equal(t, []string{"staff.manage"}, claims.Permissions)

	other := NewTokenManager("other-secret", 15)
	other.now = tm.now
	_, err = other.ParseToken(signed)
	assert.Error(t, err)

	tm.now = func() time.Time { return testNow.Add(time.Hour) }
	_, err = tm.ParseToken(signed)
	assert.Error(t, err)
}

type authFixture struct {
	app     *fiber.App
	tokens  *TokenManager
	active  *domain.StaffAccount
	pending *domain.StaffAccount
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	catalog := memory.DefaultPermissions()
	store := memory.NewStore(catalog...)
	accounts := memory.NewStaffAccountRepository(store)

	register := func(name string, permissions ...domain.Permission) *domain.StaffAccount {
		username, err := domain.NewUsername(name)
		require.NoError(t, err)
		email, err := domain.NewEmail(name + "@example.com")
		require.NoError(t, err)
		hash, err := domain.NewPasswordHash("hash")
		require.NoError(t, err)
		days, err := domain.NewAccessDuration("order_access_duration", 30)
		require.NoError(t, err)
		account, err := domain.RegisterStaffAccount(domain.NewStaffAccountParams{
			ID: domain.NewStaffAccountID(), Username: username, Email: email, Password: hash,
			OrderAccessDuration: days, ModmailTranscriptAccessDuration: days,
			Permissions: permissions, Now: testNow,
		})
		require.NoError(t, err)
		require.NoError(t, accounts.Create(context.Background(), account))
		return account
	}

	active := register("active_admin", catalog[0])
	newHash, _ := domain.NewPasswordHash("hash2")
	require.NoError(t, active.ChangePassword(newHash, testNow))
	require.NoError(t, accounts.Update(context.Background(), active))
	pending := register("pending_user")

	tokens := NewTokenManager("secret", 15)
	middleware := NewAuthMiddleware(tokens, accounts)
	middleware.now = func() time.Time { return testNow }

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		appErr := apperrors.ToAppError(err)
		return c.Status(appErr.HTTPStatus).SendString(appErr.Code)
	}})
	app.Get("/me", middleware.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.SendString(principal.Username)
	})
	app.Get("/admin", middleware.Handle, RequireActive(), RequirePermission(domain.PermissionStaffManage), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	return authFixture{app: app, tokens: tokens, active: active, pending: pending}
}

func (f authFixture) do(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	f := newAuthFixture(t)

	activeToken, _, err := f.tokens.GenerateToken(f.active.ID().String(), nil)
	require.NoError(t, err)
	pendingToken, _, err := f.tokens.GenerateToken(f.pending.ID().String(), nil)
	require.NoError(t, err)
	unknownToken, _, err := f.tokens.GenerateToken(domain.NewStaffAccountID().String(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, "/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "/me", "garbage").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, "/me", unknownToken).StatusCode)
	assert.Equal(t, http.StatusOK, f.do(t, "/me", pendingToken).StatusCode)

	assert.Equal(t, http.StatusNoContent, f.do(t, "/admin", activeToken).StatusCode)
	assert.Equal(t, http.StatusForbidden, f.do(t, "/admin", pendingToken).StatusCode)
}
