package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
)

type staffAccountRepository struct {
	store *Store
}

// NewStaffAccountRepository returns an in-memory StaffAccountRepository.
func NewStaffAccountRepository(store *Store) repository.StaffAccountRepository {
	return &staffAccountRepository{store: store}
}

func (r *staffAccountRepository) GetByID(ctx context.Context, id domain.StaffAccountID) (*domain.StaffAccount, error) {
	_, leave, err := r.store.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	snapshot, ok := r.store.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return domain.RehydrateStaffAccount(snapshot)
}

func (r *staffAccountRepository) GetByUsername(ctx context.Context, username domain.Username) (*domain.StaffAccount, error) {
	_, leave, err := r.store.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	for _, snapshot := range r.store.accounts {
		if strings.EqualFold(snapshot.Username.String(), username.String()) {
			return domain.RehydrateStaffAccount(snapshot)
		}
	}
	return nil, repository.ErrNotFound
}

func (r *staffAccountRepository) Create(ctx context.Context, account *domain.StaffAccount) error {
	tx, leave, err := r.store.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	snapshot := account.Snapshot()
	if _, exists := r.store.accounts[snapshot.ID]; exists {
		return fmt.Errorf("insert staff account: %w", repository.ErrDuplicate)
	}
	for _, other := range r.store.accounts {
		if strings.EqualFold(other.Username.String(), snapshot.Username.String()) {
			return fmt.Errorf("insert staff account: %w", repository.ErrDuplicate)
		}
	}
	for _, p := range snapshot.Permissions {
		if _, ok := r.store.permissions[p.ID]; !ok {
			return fmt.Errorf("insert staff account permission: unknown permission %s", p.ID)
		}
	}

	r.store.accounts[snapshot.ID] = snapshot
	tx.onRollback(func() { delete(r.store.accounts, snapshot.ID) })
	account.MarkPersisted()
	return nil
}

func (r *staffAccountRepository) Update(ctx context.Context, account *domain.StaffAccount) error {
	tx, leave, err := r.store.enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	previous, ok := r.store.accounts[account.ID()]
	if !ok || previous.Version != account.PersistedVersion() {
		return repository.ErrVersionConflict
	}
	r.store.accounts[account.ID()] = account.Snapshot()
	tx.onRollback(func() { r.store.accounts[previous.ID] = previous })
	account.MarkPersisted()
	return nil
}
