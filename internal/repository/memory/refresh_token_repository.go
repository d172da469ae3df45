package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
)

type refreshTokenRepository struct {
	store *Store
}

// NewRefreshTokenRepository returns an in-memory RefreshTokenRepository.
func NewRefreshTokenRepository(store *Store) repository.RefreshTokenRepository {
	return &refreshTokenRepository{store: store}
}

func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, hash domain.TokenHash) (*domain.RefreshToken, error) {
	_, leave, err := r.store.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	id, ok := r.store.tokenByHash[hash.String()]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return domain.RehydrateRefreshToken(r.store.tokens[id])
}

func (r *refreshTokenRepository) GetActiveTokensByStaffAccountID(ctx context.Context, staffAccountID domain.StaffAccountID, now time.Time) ([]*domain.RefreshToken, error) {
	_, leave, err := r.store.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	var tokens []*domain.RefreshToken
	for _, snapshot := range r.store.tokens {
		if snapshot.StaffAccountID != staffAccountID || snapshot.IsRevoked || !snapshot.ExpiresAt.After(now) {
			continue
		}
		token, err := domain.RehydrateRefreshToken(snapshot)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt().Before(tokens[j].CreatedAt())
	})
	return tokens, nil
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	tx, leave, err := r.store.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	snapshot := token.Snapshot()
	if _, exists := r.store.tokens[snapshot.ID]; exists {
		return fmt.Errorf("insert refresh token: %w", repository.ErrDuplicate)
	}
	if _, exists := r.store.tokenByHash[snapshot.TokenHash.String()]; exists {
		return fmt.Errorf("insert refresh token: %w", repository.ErrDuplicate)
	}
	if _, exists := r.store.accounts[snapshot.StaffAccountID]; !exists {
		return fmt.Errorf("insert refresh token: unknown staff account %s", snapshot.StaffAccountID)
	}

	r.store.tokens[snapshot.ID] = snapshot
	r.store.tokenByHash[snapshot.TokenHash.String()] = snapshot.ID
	tx.onRollback(func() {
		delete(r.store.tokens, snapshot.ID)
		delete(r.store.tokenByHash, snapshot.TokenHash.String())
	})
	token.MarkPersisted()
	return nil
}

func (r *refreshTokenRepository) Update(ctx context.Context, token *domain.RefreshToken) error {
	return r.UpdateAll(ctx, []*domain.RefreshToken{token})
}

func (r *refreshTokenRepository) UpdateAll(ctx context.Context, tokens []*domain.RefreshToken) error {
	if len(tokens) == 0 {
		return nil
	}
	tx, leave, err := r.store.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	previous := make([]domain.RefreshTokenSnapshot, 0, len(tokens))
	for _, token := range tokens {
		stored, ok := r.store.tokens[token.ID()]
		if !ok || stored.Version != token.PersistedVersion() {
			return repository.ErrVersionConflict
		}
		previous = append(previous, stored)
	}
	for _, token := range tokens {
		r.store.tokens[token.ID()] = token.Snapshot()
		token.MarkPersisted()
	}
	tx.onRollback(func() {
		for _, snapshot := range previous {
			r.store.tokens[snapshot.ID] = snapshot
		}
	})
	return nil
}
