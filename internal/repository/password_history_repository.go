package repository

import (
	"context"
	"time"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/persistence"
)

// PasswordHistoryRepository stores the append-only password history.
type PasswordHistoryRepository interface {
	Append(ctx context.Context, entry domain.PasswordHistoryEntry) error
	// ListByStaffAccountID returns up to limit newest entries. An account
	// without history yields ErrNotFound.
	ListByStaffAccountID(ctx context.Context, staffAccountID domain.StaffAccountID, limit int) (*domain.StaffAccountPasswordHistory, error)
}

type passwordHistoryRepository struct {
	pool persistence.Pool
}

// NewPasswordHistoryRepository returns a Postgres-backed implementation.
func NewPasswordHistoryRepository(pool persistence.Pool) PasswordHistoryRepository {
	return &passwordHistoryRepository{pool: pool}
}

func (r *passwordHistoryRepository) Append(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	const query = `
        INSERT INTO staff_account_password_history (staff_account_id, password_hash, is_temporary, changed_at)
        VALUES ($1, $2, $3, $4)`

	_, err := persistence.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		entry.StaffAccountID.String(),
		entry.HashedPassword.String(),
		entry.IsTemporary,
		entry.ChangedAt,
	)
	return translate(err, "append password history")
}

func (r *passwordHistoryRepository) ListByStaffAccountID(ctx context.Context, staffAccountID domain.StaffAccountID, limit int) (*domain.StaffAccountPasswordHistory, error) {
	const query = `
        SELECT password_hash, is_temporary, changed_at
        FROM staff_account_password_history
        WHERE staff_account_id = $1
        ORDER BY changed_at DESC, id DESC
        LIMIT $2`

	if limit <= 0 {
		limit = domain.PasswordHistoryDepth
	}
	rows, err := persistence.QuerierFrom(ctx, r.pool).Query(ctx, query, staffAccountID.String(), limit)
	if err != nil {
		return nil, translate(err, "list password history")
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var (
			hash      string
			temporary bool
			changedAt time.Time
		)
		if err := rows.Scan(&hash, &temporary, &changedAt); err != nil {
			return nil, translate(err, "scan password history")
		}
		passwordHash, err := domain.NewPasswordHash(hash)
		if err != nil {
			return nil, corrupt("staff_account_password_history", err)
		}
		entry, err := domain.NewPasswordHistoryEntry(staffAccountID, passwordHash, temporary, changedAt)
		if err != nil {
			return nil, corrupt("staff_account_password_history", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list password history")
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return domain.NewStaffAccountPasswordHistory(entries)
}
