// Package memory holds in-process repositories used when no database is
// configured and by service tests.
package memory

import (
	"context"
	"errors"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/persistence"
)

// Store is the shared state behind the in-memory repositories. Transactions
// are serialized: one unit of work holds the store until it commits or rolls
// back, and calls outside a unit of work run as single-statement transactions.
// A unit of work must not be shared between goroutines.
type Store struct {
	sem chan struct{}

	accounts    map[domain.StaffAccountID]domain.StaffAccountSnapshot
	tokens      map[domain.RefreshTokenID]domain.RefreshTokenSnapshot
	tokenByHash map[string]domain.RefreshTokenID
	history     map[domain.StaffAccountID][]domain.PasswordHistoryEntry
	permissions map[domain.PermissionID]domain.Permission
}

// NewStore returns an empty store whose permission catalog holds permissions.
func NewStore(permissions ...domain.Permission) *Store {
	s := &Store{
		sem:         make(chan struct{}, 1),
		accounts:    make(map[domain.StaffAccountID]domain.StaffAccountSnapshot),
		tokens:      make(map[domain.RefreshTokenID]domain.RefreshTokenSnapshot),
		tokenByHash: make(map[string]domain.RefreshTokenID),
		history:     make(map[domain.StaffAccountID][]domain.PasswordHistoryEntry),
		permissions: make(map[domain.PermissionID]domain.Permission, len(permissions)),
	}
	for _, p := range permissions {
		s.permissions[p.ID] = p
	}
	return s
}

type txKey struct{}

type transaction struct {
	store *Store
	undo  []func()
	done  bool
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.sem }

func (s *Store) activeTx(ctx context.Context) *transaction {
	tx, ok := ctx.Value(txKey{}).(*transaction)
	if !ok || tx.store != s || tx.done {
		return nil
	}
	return tx
}

// enter grants access to the store for one repository call.
func (s *Store) enter(ctx context.Context) (*transaction, func(), error) {
	if tx := s.activeTx(ctx); tx != nil {
		return tx, func() {}, nil
	}
	if err := s.acquire(ctx); err != nil {
		return nil, nil, err
	}
	return nil, s.release, nil
}

func (tx *transaction) onRollback(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// UnitOfWork opens serialized transactions over a Store.
type UnitOfWork struct {
	store *Store
}

// NewUnitOfWork returns a unit of work for store.
func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

// Begin waits for the store and opens a transaction.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, persistence.Transaction, error) {
	if u.store.activeTx(ctx) != nil {
		return nil, nil, errors.New("nested unit of work")
	}
	if err := u.store.acquire(ctx); err != nil {
		return nil, nil, err
	}
	tx := &transaction{store: u.store}
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

func (tx *transaction) Commit(context.Context) error {
	if tx.done {
		return errors.New("transaction already closed")
	}
	tx.done = true
	tx.undo = nil
	tx.store.release()
	return nil
}

func (tx *transaction) Rollback(context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.store.release()
	return nil
}
