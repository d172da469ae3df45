package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-account-service/internal/config"
	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/observability"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

// AuthService coordinates login, token rotation and password changes.
type AuthService struct {
	runner      *commandRunner
	accounts    repository.StaffAccountRepository
	tokens      repository.RefreshTokenRepository
	history     repository.PasswordHistoryRepository
	revocation  *RevocationService
	passwords   PasswordHasher
	tokenHasher TokenHasher
	clock       Clock
	logger      *zap.Logger

	refreshTTL     time.Duration
	lockout        time.Duration
	passwordMaxAge time.Duration
}

// AuthDependencies encapsulates the collaborators of the auth service.
type AuthDependencies struct {
	UnitOfWork      repository.UnitOfWork
	StaffAccounts   repository.StaffAccountRepository
	RefreshTokens   repository.RefreshTokenRepository
	PasswordHistory repository.PasswordHistoryRepository
	Revocation      *RevocationService
	Passwords       PasswordHasher
	TokenHasher     TokenHasher
	Bus             events.Bus
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Clock           Clock
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	runner := newCommandRunner(deps.UnitOfWork, deps.Bus, deps.Logger, deps.Metrics)
	revocation := deps.Revocation
	if revocation == nil {
		revocation = NewRevocationService(deps.RefreshTokens, runner.bus, deps.Clock)
	}
	return &AuthService{
		runner:         runner,
		accounts:       deps.StaffAccounts,
		tokens:         deps.RefreshTokens,
		history:        deps.PasswordHistory,
		revocation:     revocation,
		passwords:      deps.Passwords,
		tokenHasher:    deps.TokenHasher,
		clock:          deps.Clock,
		logger:         runner.logger,
		refreshTTL:     cfg.RefreshTokenTTL(),
		lockout:        cfg.LockoutDuration(),
		passwordMaxAge: cfg.PasswordMaxAge(),
	}
}

// Login verifies credentials and issues a refresh token. A wrong password is
// recorded and committed before the call fails.
func (s *AuthService) Login(ctx context.Context, cmd LoginCommand) (*LoginResponse, error) {
	var resp *LoginResponse
	err := s.runner.execute(ctx, "login", func(ctx context.Context) error {
		username, err := domain.NewUsername(cmd.Username)
		if err != nil {
			return errorutil.NewInvalidCredentials(err)
		}
		if cmd.Password == "" {
			return errorutil.NewInvalidCredentials(errors.New("empty password"))
		}

		account, err := s.accounts.GetByUsername(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			return errorutil.NewInvalidCredentials(err)
		}
		if err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}

		now := s.clock.now()
		if err := account.EnsureCanAuthenticate(now); err != nil {
			return errorutil.NewAccountUnavailable(err)
		}

		ok, err := s.passwords.Verify(ctx, cmd.Password, account.Password())
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("verify password: %w", err))
		}
		if !ok {
			if err := account.RecordFailedLogin(now, s.lockout); err != nil {
				return mapDomainError(err)
			}
			if err := s.accounts.Update(ctx, account); err != nil {
				return mapRepositoryError(err, resourceStaffAccount)
			}
			if err := s.runner.publish(ctx, account); err != nil {
				return err
			}
			return failAfterCommit(errorutil.NewInvalidCredentials(
				fmt.Errorf("password mismatch for %s, attempt %d", account.ID(), account.FailedLoginAttempts())))
		}

		if err := account.RecordSuccessfulLogin(now); err != nil {
			return mapDomainError(err)
		}
		token, plain, err := s.issueRefreshToken(domain.NewRefreshTokenID(), account.ID(), cmd.IPAddress, now)
		if err != nil {
			return err
		}
		if err := s.accounts.Update(ctx, account); err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if err := s.tokens.Create(ctx, token); err != nil {
			return mapRepositoryError(err, resourceRefreshToken)
		}
		if err := s.runner.publish(ctx, account, token); err != nil {
			return err
		}

		resp = s.sessionResponse(account, token, plain, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Refresh rotates a refresh token. Presenting a revoked or expired token is
// treated as reuse: every active token of the owner is revoked.
func (s *AuthService) Refresh(ctx context.Context, cmd RefreshCommand) (*RefreshResponse, error) {
	var resp *RefreshResponse
	err := s.runner.execute(ctx, "refresh", func(ctx context.Context) error {
		presented, err := s.lookupToken(ctx, cmd.RefreshToken)
		if err != nil {
			return err
		}

		now := s.clock.now()
		if !presented.IsActive(now) {
			return s.handleReuse(ctx, presented, cmd.IPAddress, now)
		}

		account, err := s.accounts.GetByID(ctx, presented.StaffAccountID())
		if err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if err := presented.Revoke(now); err != nil {
			return mapDomainError(err)
		}

		// the presented token is consumed even when the owner may no longer sign in
		if err := account.EnsureCanAuthenticate(now); err != nil {
			if err := s.consumeRefreshToken(ctx, presented); err != nil {
				return err
			}
			if err := s.runner.publish(ctx, presented); err != nil {
				return err
			}
			return failAfterCommit(errorutil.NewAccountUnavailable(err))
		}

		nextID := domain.NewRefreshTokenID()
		if err := presented.MarkReplacedBy(nextID); err != nil {
			return mapDomainError(err)
		}
		next, plain, err := s.issueRefreshToken(nextID, account.ID(), presented.IssuedFromIPAddress(), now)
		if err != nil {
			return err
		}
		if err := s.tokens.Create(ctx, next); err != nil {
			return mapRepositoryError(err, resourceRefreshToken)
		}
		if err := s.consumeRefreshToken(ctx, presented); err != nil {
			return err
		}
		if err := s.runner.publish(ctx, presented, next); err != nil {
			return err
		}

		resp = s.sessionResponse(account, next, plain, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// consumeRefreshToken persists the revoked presented token. Losing the race
// to a concurrent rotation means the token was already spent.
func (s *AuthService) consumeRefreshToken(ctx context.Context, presented *domain.RefreshToken) error {
	err := s.tokens.Update(ctx, presented)
	if errors.Is(err, repository.ErrVersionConflict) {
		return errorutil.NewInvalidRefreshToken(err)
	}
	if err != nil {
		return mapRepositoryError(err, resourceRefreshToken)
	}
	return nil
}

// Logout revokes exactly the presented token.
func (s *AuthService) Logout(ctx context.Context, cmd LogoutCommand) error {
	return s.runner.execute(ctx, "logout", func(ctx context.Context) error {
		presented, err := s.lookupToken(ctx, cmd.RefreshToken)
		if err != nil {
			return err
		}
		now := s.clock.now()
		if !presented.IsActive(now) {
			return errorutil.NewInvalidRefreshToken(errors.New("refresh token is not active"))
		}
		if err := presented.Revoke(now); err != nil {
			return mapDomainError(err)
		}
		if err := s.tokens.Update(ctx, presented); err != nil {
			return mapRepositoryError(err, resourceRefreshToken)
		}
		return s.runner.publish(ctx, presented)
	})
}

// ChangePassword replaces the holder's password after checking the current
// one and the recent password history.
func (s *AuthService) ChangePassword(ctx context.Context, cmd ChangePasswordCommand) (*ChangePasswordResponse, error) {
	var resp *ChangePasswordResponse
	err := s.runner.execute(ctx, "change_password", func(ctx context.Context) error {
		id, err := domain.ParseStaffAccountID(cmd.StaffAccountID)
		if err != nil {
			return mapDomainError(err)
		}
		newPassword, err := domain.NewPlainPassword(cmd.NewPassword)
		if err != nil {
			return mapDomainError(err)
		}

		account, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		now := s.clock.now()
		if err := account.EnsureCanAuthenticate(now); err != nil {
			return errorutil.NewAccountUnavailable(err)
		}

		ok, err := s.passwords.Verify(ctx, cmd.CurrentPassword, account.Password())
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("verify password: %w", err))
		}
		if !ok {
			return errorutil.NewInvalidCredentials(errors.New("current password mismatch"))
		}
		if err := s.ensureNotReused(ctx, account.ID(), newPassword); err != nil {
			return err
		}

		hash, err := s.passwords.Hash(ctx, newPassword)
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("hash password: %w", err))
		}
		if err := account.ChangePassword(hash, now); err != nil {
			return mapDomainError(err)
		}
		entry, err := domain.NewPasswordHistoryEntry(account.ID(), hash, false, now)
		if err != nil {
			return mapDomainError(err)
		}
		if err := s.accounts.Update(ctx, account); err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return mapRepositoryError(err, "password history")
		}
		if err := s.runner.publish(ctx, account); err != nil {
			return err
		}

		resp = &ChangePasswordResponse{
			ID:                  account.ID(),
			Status:              account.Status(),
			PasswordIssuedAtUTC: account.PasswordIssuedAt(),
			Version:             account.Version(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *AuthService) lookupToken(ctx context.Context, raw string) (*domain.RefreshToken, error) {
	plain, err := domain.NewPlainRefreshToken(raw)
	if err != nil {
		return nil, errorutil.NewInvalidRefreshToken(err)
	}
	token, err := s.tokens.GetByTokenHash(ctx, s.tokenHasher.Hash(plain))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorutil.NewInvalidRefreshToken(err)
	}
	if err != nil {
		return nil, mapRepositoryError(err, resourceRefreshToken)
	}
	return token, nil
}

func (s *AuthService) handleReuse(ctx context.Context, presented *domain.RefreshToken, ipAddress string, now time.Time) error {
	revoked, err := s.revocation.RevokeAllTokensForStaffAccount(ctx, presented.StaffAccountID())
	if err != nil {
		return err
	}
	detected := domain.RefreshTokenReuseDetected{
		RefreshTokenID: presented.ID(),
		StaffAccountID: presented.StaffAccountID(),
		RevokedCount:   revoked,
		At:             now,
	}
	if err := publishEvents(ctx, s.runner.bus, detected); err != nil {
		return err
	}
	s.logger.Warn("refresh token reuse detected",
		zap.String("refresh_token_id", presented.ID().String()),
		zap.String("staff_account_id", presented.StaffAccountID().String()),
		zap.String("ip_address", ipAddress),
		zap.Int("revoked_count", revoked))
	return failAfterCommit(errorutil.NewInvalidRefreshToken(errors.New("refresh token reuse detected")))
}

func (s *AuthService) ensureNotReused(ctx context.Context, id domain.StaffAccountID, password domain.PlainPassword) error {
	history, err := s.history.ListByStaffAccountID(ctx, id, domain.PasswordHistoryDepth)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapRepositoryError(err, "password history")
	}
	for _, entry := range history.Entries() {
		match, err := s.passwords.Verify(ctx, password.String(), entry.HashedPassword)
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("verify password history: %w", err))
		}
		if match {
			return mapDomainError(domain.ErrPasswordReused)
		}
	}
	return nil
}

func (s *AuthService) issueRefreshToken(id domain.RefreshTokenID, owner domain.StaffAccountID, ipAddress string, now time.Time) (*domain.RefreshToken, domain.PlainRefreshToken, error) {
	plain, err := domain.GeneratePlainRefreshToken()
	if err != nil {
		return nil, domain.PlainRefreshToken{}, errorutil.NewInternalError(fmt.Errorf("generate refresh token: %w", err))
	}
	token, err := domain.IssueRefreshToken(domain.IssueRefreshTokenParams{
		ID:                  id,
		TokenHash:           s.tokenHasher.Hash(plain),
		StaffAccountID:      owner,
		IssuedFromIPAddress: ipAddress,
		ExpiresAt:           now.Add(s.refreshTTL),
		Now:                 now,
	})
	if err != nil {
		return nil, domain.PlainRefreshToken{}, mapDomainError(err)
	}
	return token, plain, nil
}

func (s *AuthService) sessionResponse(account *domain.StaffAccount, token *domain.RefreshToken, plain domain.PlainRefreshToken, now time.Time) *LoginResponse {
	return &LoginResponse{
		ID:                    account.ID(),
		Username:              account.Username().String(),
		RequiresPasswordReset: account.RequiresPasswordReset(now, s.passwordMaxAge),
		PlainRefreshToken:     plain.String(),
		RefreshTokenExpiresAt: token.ExpiresAt(),
		PermissionCodes:       account.PermissionCodes(),
		Version:               account.Version(),
	}
}
