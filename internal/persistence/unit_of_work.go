package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a Querier that can open transactions. *pgxpool.Pool satisfies it.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transaction is one open unit of work.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWork opens transactions. The returned context carries the
// transaction so repositories called with it join the same unit of work.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, Transaction, error)
}

type txKey struct{}

// ContextWithTx stores tx in ctx.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok && tx != nil
}

// QuerierFrom returns the transaction in ctx or the fallback.
func QuerierFrom(ctx context.Context, fallback Querier) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}

// InTx runs fn inside the transaction carried by ctx, or inside a short
// transaction of its own when ctx carries none.
func InTx(ctx context.Context, pool Pool, fn func(q Querier) error) (err error) {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(tx)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PgxUnitOfWork opens pgx transactions at read-committed isolation; lost
// updates are prevented by version checks on write.
type PgxUnitOfWork struct {
	pool Pool
}

// NewPgxUnitOfWork builds a unit of work on top of pool.
func NewPgxUnitOfWork(pool Pool) *PgxUnitOfWork {
	return &PgxUnitOfWork{pool: pool}
}

// Begin opens a transaction.
func (u *PgxUnitOfWork) Begin(ctx context.Context) (context.Context, Transaction, error) {
	if _, ok := TxFromContext(ctx); ok {
		return nil, nil, errors.New("nested unit of work")
	}
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return ContextWithTx(ctx, tx), &pgxTransaction{tx: tx}, nil
}

type pgxTransaction struct {
	tx   pgx.Tx
	done bool
}

func (t *pgxTransaction) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	return t.tx.Commit(ctx)
}

// Rollback is a no-op once the transaction has been committed, so callers
// can defer it unconditionally.
func (t *pgxTransaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback(ctx)
}
