package memory

import (
	"context"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
)

type passwordHistoryRepository struct {
	store *Store
}

// NewPasswordHistoryRepository returns an in-memory PasswordHistoryRepository.
func NewPasswordHistoryRepository(store *Store) repository.PasswordHistoryRepository {
	return &passwordHistoryRepository{store: store}
}

func (r *passwordHistoryRepository) Append(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	tx, leave, err := r.store.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	owner := entry.StaffAccountID
	previous := r.store.history[owner]
	r.store.history[owner] = append(previous[:len(previous):len(previous)], entry)
	tx.onRollback(func() {
		if len(previous) == 0 {
			delete(r.store.history, owner)
			return
		}
		r.store.history[owner] = previous
	})
	return nil
}

func (r *passwordHistoryRepository) ListByStaffAccountID(ctx context.Context, staffAccountID domain.StaffAccountID, limit int) (*domain.StaffAccountPasswordHistory, error) {
	_, leave, err := r.store.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	stored := r.store.history[staffAccountID]
	if len(stored) == 0 {
		return nil, repository.ErrNotFound
	}
	if limit <= 0 {
		limit = domain.PasswordHistoryDepth
	}
	// newest appended first so equal timestamps keep append order
	entries := make([]domain.PasswordHistoryEntry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		entries = append(entries, stored[i])
	}
	history, err := domain.NewStaffAccountPasswordHistory(entries)
	if err != nil {
		return nil, err
	}
	return domain.NewStaffAccountPasswordHistory(history.Recent(limit))
}
