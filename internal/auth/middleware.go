package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
	apperrors "github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated staff account. Permissions come from
// storage, not from the token, so revocations apply immediately.
type Principal struct {
	StaffAccountID domain.StaffAccountID
	Username       string
	Status         domain.StaffAccountStatus
	Permissions    map[string]struct{}
}

// HasPermission reports whether the principal holds code.
func (p *Principal) HasPermission(code string) bool {
	_, ok := p.Permissions[code]
	return ok
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.StaffAccountRepository
	now      func() time.Time
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.StaffAccountRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts, now: time.Now}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	id, err := domain.ParseStaffAccountID(claims.Subject)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("staff account not found")
		}
		return apperrors.NewInternalError(err)
	}
	if err := account.EnsureCanAuthenticate(m.now()); err != nil {
		return apperrors.NewAccountUnavailable(err)
	}

	permissions := make(map[string]struct{})
	for _, code := range account.PermissionCodes() {
		permissions[code] = struct{}{}
	}
	c.Locals(principalKey, &Principal{
		StaffAccountID: account.ID(),
		Username:       account.Username().String(),
		Status:         account.Status(),
		Permissions:    permissions,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated staff account.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
