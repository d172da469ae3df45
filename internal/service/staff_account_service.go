package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/observability"
	"github.com/spec-kit/staff-account-service/internal/repository"
	"github.com/spec-kit/staff-account-service/pkg/util/errorutil"
)

// StaffAccountService handles administrative account commands.
type StaffAccountService struct {
	runner      *commandRunner
	accounts    repository.StaffAccountRepository
	history     repository.PasswordHistoryRepository
	permissions repository.PermissionRepository
	revocation  *RevocationService
	passwords   PasswordHasher
	clock       Clock
}

// StaffAccountDependencies bundles the collaborators of StaffAccountService.
type StaffAccountDependencies struct {
	UnitOfWork      repository.UnitOfWork
	StaffAccounts   repository.StaffAccountRepository
	PasswordHistory repository.PasswordHistoryRepository
	Permissions     repository.PermissionRepository
	Revocation      *RevocationService
	Passwords       PasswordHasher
	Bus             events.Bus
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Clock           Clock
}

// NewStaffAccountService constructs the service.
func NewStaffAccountService(deps StaffAccountDependencies) *StaffAccountService {
	runner := newCommandRunner(deps.UnitOfWork, deps.Bus, deps.Logger, deps.Metrics)
	return &StaffAccountService{
		runner:      runner,
		accounts:    deps.StaffAccounts,
		history:     deps.PasswordHistory,
		permissions: deps.Permissions,
		revocation:  deps.Revocation,
		passwords:   deps.Passwords,
		clock:       deps.Clock,
	}
}

// Register creates an account with a generated temporary password.
func (s *StaffAccountService) Register(ctx context.Context, cmd RegisterCommand) (*RegisterResponse, error) {
	var resp *RegisterResponse
	err := s.runner.execute(ctx, "register", func(ctx context.Context) error {
		requester, err := domain.ParseStaffAccountID(cmd.RequestingStaffAccountID)
		if err != nil {
			return mapDomainError(err)
		}
		account, temporary, err := s.register(ctx, cmd.Username, cmd.Email, cmd.OrderAccessDays, cmd.ModmailTranscriptAccessDays, cmd.PermissionIDs, requester)
		if err != nil {
			return err
		}
		resp = &RegisterResponse{
			ID:                         account.ID(),
			Username:                   account.Username().String(),
			TemporaryPlaintextPassword: temporary.String(),
			Status:                     account.Status(),
			Version:                    account.Version(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Bootstrap registers the first administrator when no account holds the
// configured username. It reports false when nothing was created.
func (s *StaffAccountService) Bootstrap(ctx context.Context, cmd BootstrapCommand) (*RegisterResponse, bool, error) {
	if cmd.Username == "" {
		return nil, false, nil
	}
	var resp *RegisterResponse
	err := s.runner.execute(ctx, "bootstrap", func(ctx context.Context) error {
		username, err := domain.NewUsername(cmd.Username)
		if err != nil {
			return mapDomainError(err)
		}
		if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
			return nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return mapRepositoryError(err, resourceStaffAccount)
		}

		account, temporary, err := s.register(ctx, cmd.Username, cmd.Email, bootstrapAccessDays, bootstrapAccessDays, cmd.PermissionIDs, domain.StaffAccountID{})
		if err != nil {
			return err
		}
		resp = &RegisterResponse{
			ID:                         account.ID(),
			Username:                   account.Username().String(),
			TemporaryPlaintextPassword: temporary.String(),
			Status:                     account.Status(),
			Version:                    account.Version(),
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return resp, resp != nil, nil
}

const bootstrapAccessDays = 365

func (s *StaffAccountService) register(ctx context.Context, rawUsername, rawEmail string, orderDays, modmailDays int, rawPermissionIDs []string, requester domain.StaffAccountID) (*domain.StaffAccount, domain.PlainPassword, error) {
	var none domain.PlainPassword

	username, err := domain.NewUsername(rawUsername)
	if err != nil {
		return nil, none, mapDomainError(err)
	}
	email, err := domain.NewEmail(rawEmail)
	if err != nil {
		return nil, none, mapDomainError(err)
	}
	orderAccess, err := domain.NewAccessDuration("order_access_days", orderDays)
	if err != nil {
		return nil, none, mapDomainError(err)
	}
	modmailAccess, err := domain.NewAccessDuration("modmail_transcript_access_days", modmailDays)
	if err != nil {
		return nil, none, mapDomainError(err)
	}
	permissionIDs, err := parsePermissionIDs(rawPermissionIDs)
	if err != nil {
		return nil, none, err
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, none, errorutil.NewConflict(errorutil.CodeUsernameTaken, "username is already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, none, mapRepositoryError(err, resourceStaffAccount)
	}

	var permissions []domain.Permission
	if len(permissionIDs) > 0 {
		permissions, err = s.permissions.GetByIDs(ctx, permissionIDs)
		if err != nil {
			return nil, none, mapRepositoryError(err, resourcePermission)
		}
		if len(permissions) != len(permissionIDs) {
			return nil, none, errorutil.NewValidationError("unknown permission id", map[string]any{"field": "permission_ids"})
		}
	}

	temporary, err := domain.GenerateTemporaryPassword()
	if err != nil {
		return nil, none, errorutil.NewInternalError(fmt.Errorf("generate temporary password: %w", err))
	}
	hash, err := s.passwords.Hash(ctx, temporary)
	if err != nil {
		return nil, none, errorutil.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	now := s.clock.now()
	account, err := domain.RegisterStaffAccount(domain.NewStaffAccountParams{
		ID:                              domain.NewStaffAccountID(),
		Username:                        username,
		Email:                           email,
		Password:                        hash,
		OrderAccessDuration:             orderAccess,
		ModmailTranscriptAccessDuration: modmailAccess,
		Permissions:                     permissions,
		CreatedBy:                       requester,
		Now:                             now,
	})
	if err != nil {
		return nil, none, mapDomainError(err)
	}
	entry, err := domain.NewPasswordHistoryEntry(account.ID(), hash, true, now)
	if err != nil {
		return nil, none, mapDomainError(err)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, none, errorutil.NewConflict(errorutil.CodeUsernameTaken, "username is already taken")
		}
		return nil, none, mapRepositoryError(err, resourceStaffAccount)
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return nil, none, mapRepositoryError(err, "password history")
	}
	if err := s.runner.publish(ctx, account); err != nil {
		return nil, none, err
	}
	return account, temporary, nil
}

// Disable moves the account to DISABLED. Existing refresh tokens stop
// rotating because the owner can no longer authenticate.
func (s *StaffAccountService) Disable(ctx context.Context, cmd LifecycleCommand) (*LifecycleResponse, error) {
	return s.lifecycle(ctx, "disable", cmd, func(account *domain.StaffAccount, requester domain.StaffAccountID) error {
		return account.Disable(requester, s.clock.now())
	})
}

// Enable re-opens a disabled account.
func (s *StaffAccountService) Enable(ctx context.Context, cmd LifecycleCommand) (*LifecycleResponse, error) {
	return s.lifecycle(ctx, "enable", cmd, func(account *domain.StaffAccount, requester domain.StaffAccountID) error {
		return account.Enable(requester, s.clock.now())
	})
}

func (s *StaffAccountService) lifecycle(ctx context.Context, command string, cmd LifecycleCommand, transition func(*domain.StaffAccount, domain.StaffAccountID) error) (*LifecycleResponse, error) {
	var resp *LifecycleResponse
	err := s.runner.execute(ctx, command, func(ctx context.Context) error {
		id, requester, err := parseTargetAndRequester(cmd.StaffAccountID, cmd.RequestingStaffAccountID)
		if err != nil {
			return err
		}
		account, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if err := transition(account, requester); err != nil {
			return mapDomainError(err)
		}
		if err := s.accounts.Update(ctx, account); err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if err := s.runner.publish(ctx, account); err != nil {
			return err
		}
		resp = &LifecycleResponse{
			ID:            account.ID(),
			Status:        account.Status(),
			ActingStaffID: requester,
			Version:       account.Version(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ResetPassword issues a new temporary password and revokes the account's
// sessions. Disabled accounts are rejected and must be enabled first.
func (s *StaffAccountService) ResetPassword(ctx context.Context, cmd ResetPasswordCommand) (*ResetPasswordResponse, error) {
	var resp *ResetPasswordResponse
	err := s.runner.execute(ctx, "reset_password", func(ctx context.Context) error {
		id, _, err := parseTargetAndRequester(cmd.StaffAccountID, cmd.RequestingStaffAccountID)
		if err != nil {
			return err
		}
		account, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if account.Status() == domain.StatusDisabled {
			return errorutil.Wrap(errorutil.CodeInvalidTransition, "disabled staff accounts must be enabled before a password reset", domain.ErrAccountDisabled)
		}

		temporary, err := domain.GenerateTemporaryPassword()
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("generate temporary password: %w", err))
		}
		hash, err := s.passwords.Hash(ctx, temporary)
		if err != nil {
			return errorutil.NewInternalError(fmt.Errorf("hash password: %w", err))
		}
		now := s.clock.now()
		if err := account.ResetPassword(hash, now); err != nil {
			return mapDomainError(err)
		}
		entry, err := domain.NewPasswordHistoryEntry(account.ID(), hash, true, now)
		if err != nil {
			return mapDomainError(err)
		}
		if err := s.accounts.Update(ctx, account); err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return mapRepositoryError(err, "password history")
		}
		if _, err := s.revocation.RevokeAllTokensForStaffAccount(ctx, account.ID()); err != nil {
			return err
		}
		if err := s.runner.publish(ctx, account); err != nil {
			return err
		}

		resp = &ResetPasswordResponse{
			ID:                         account.ID(),
			TemporaryPlaintextPassword: temporary.String(),
			Status:                     account.Status(),
			PasswordIssuedAtUTC:        account.PasswordIssuedAt(),
			Version:                    account.Version(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RevokeAllSessions logs the account out everywhere.
func (s *StaffAccountService) RevokeAllSessions(ctx context.Context, cmd RevokeSessionsCommand) (*RevokeSessionsResponse, error) {
	var resp *RevokeSessionsResponse
	err := s.runner.execute(ctx, "revoke_sessions", func(ctx context.Context) error {
		id, _, err := parseTargetAndRequester(cmd.StaffAccountID, cmd.RequestingStaffAccountID)
		if err != nil {
			return err
		}
		if _, err := s.accounts.GetByID(ctx, id); err != nil {
			return mapRepositoryError(err, resourceStaffAccount)
		}
		revoked, err := s.revocation.RevokeAllTokensForStaffAccount(ctx, id)
		if err != nil {
			return err
		}
		resp = &RevokeSessionsResponse{ID: id, RevokedCount: revoked}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func parseTargetAndRequester(target, requester string) (domain.StaffAccountID, domain.StaffAccountID, error) {
	id, err := domain.ParseStaffAccountID(target)
	if err != nil {
		return domain.StaffAccountID{}, domain.StaffAccountID{}, mapDomainError(err)
	}
	by, err := domain.ParseStaffAccountID(requester)
	if err != nil {
		return domain.StaffAccountID{}, domain.StaffAccountID{}, mapDomainError(err)
	}
	return id, by, nil
}

func parsePermissionIDs(raw []string) ([]domain.PermissionID, error) {
	seen := make(map[domain.PermissionID]struct{}, len(raw))
	ids := make([]domain.PermissionID, 0, len(raw))
	for _, r := range raw {
		id, err := domain.ParsePermissionID(r)
		if err != nil {
			return nil, mapDomainError(err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
