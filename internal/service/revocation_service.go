package service

import (
	"context"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/events"
	"github.com/spec-kit/staff-account-service/internal/repository"
)

// RevocationService revokes every active refresh token of an account. It runs
// inside the caller's unit of work, so the batch commits or rolls back with it.
type RevocationService struct {
	tokens repository.RefreshTokenRepository
	bus    events.Bus
	clock  Clock
}

// NewRevocationService constructs the service.
func NewRevocationService(tokens repository.RefreshTokenRepository, bus events.Bus, clock Clock) *RevocationService {
	if bus == nil {
		bus = events.Fanout(nil)
	}
	return &RevocationService{tokens: tokens, bus: bus, clock: clock}
}

// RevokeAllTokensForStaffAccount revokes the active tokens with one timestamp,
// persists them as a batch and publishes their revocation events. It returns
// how many tokens were revoked.
func (s *RevocationService) RevokeAllTokensForStaffAccount(ctx context.Context, staffAccountID domain.StaffAccountID) (int, error) {
	now := s.clock.now()
	active, err := s.tokens.GetActiveTokensByStaffAccountID(ctx, staffAccountID, now)
	if err != nil {
		return 0, mapRepositoryError(err, resourceRefreshToken)
	}
	if len(active) == 0 {
		return 0, nil
	}

	sources := make([]eventSource, 0, len(active))
	for _, token := range active {
		if err := token.Revoke(now); err != nil {
			return 0, mapDomainError(err)
		}
		sources = append(sources, token)
	}
	if err := s.tokens.UpdateAll(ctx, active); err != nil {
		return 0, mapRepositoryError(err, resourceRefreshToken)
	}
	if err := publishDrained(ctx, s.bus, sources...); err != nil {
		return 0, err
	}
	return len(active), nil
}
