package repository

import (
	"context"
	"time"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/persistence"
)

// RefreshTokenRepository persists refresh tokens.
type RefreshTokenRepository interface {
	GetByTokenHash(ctx context.Context, hash domain.TokenHash) (*domain.RefreshToken, error)
	GetActiveTokensByStaffAccountID(ctx context.Context, staffAccountID domain.StaffAccountID, now time.Time) ([]*domain.RefreshToken, error)
	Create(ctx context.Context, token *domain.RefreshToken) error
	Update(ctx context.Context, token *domain.RefreshToken) error
	// UpdateAll writes every token or none of them.
	UpdateAll(ctx context.Context, tokens []*domain.RefreshToken) error
}

type refreshTokenRepository struct {
	pool persistence.Pool
}

// NewRefreshTokenRepository returns a Postgres-backed implementation.
func NewRefreshTokenRepository(pool persistence.Pool) RefreshTokenRepository {
	return &refreshTokenRepository{pool: pool}
}

const refreshTokenColumns = `id, token_hash, staff_account_id, issued_from_ip_address, expires_at, is_revoked, revoked_at, replaced_by, created_at, version`

func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, hash domain.TokenHash) (*domain.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	row, err := scanRefreshToken(persistence.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, hash.String()))
	if err != nil {
		return nil, translate(err, "get refresh token")
	}
	return row.toDomain()
}

func (r *refreshTokenRepository) GetActiveTokensByStaffAccountID(ctx context.Context, staffAccountID domain.StaffAccountID, now time.Time) ([]*domain.RefreshToken, error) {
	const query = `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE staff_account_id = $1 AND is_revoked = FALSE AND expires_at > $2 ORDER BY created_at`

	rows, err := persistence.QuerierFrom(ctx, r.pool).Query(ctx, query, staffAccountID.String(), now)
	if err != nil {
		return nil, translate(err, "list active refresh tokens")
	}
	defer rows.Close()

	var tokens []*domain.RefreshToken
	for rows.Next() {
		row, err := scanRefreshToken(rows)
		if err != nil {
			return nil, translate(err, "scan refresh token")
		}
		token, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, translate(rows.Err(), "list active refresh tokens")
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (` + refreshTokenColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	s := token.Snapshot()
	if _, err := persistence.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		s.ID.String(),
		s.TokenHash.String(),
		s.StaffAccountID.String(),
		s.IssuedFromIPAddress,
		s.ExpiresAt,
		s.IsRevoked,
		s.RevokedAt,
		tokenIDString(s.ReplacedBy),
		s.CreatedAt,
		s.Version.Int64(),
	); err != nil {
		return translate(err, "insert refresh token")
	}
	token.MarkPersisted()
	return nil
}

func (r *refreshTokenRepository) Update(ctx context.Context, token *domain.RefreshToken) error {
	if err := updateRefreshToken(ctx, persistence.QuerierFrom(ctx, r.pool), token); err != nil {
		return err
	}
	token.MarkPersisted()
	return nil
}

func (r *refreshTokenRepository) UpdateAll(ctx context.Context, tokens []*domain.RefreshToken) error {
	if len(tokens) == 0 {
		return nil
	}
	err := persistence.InTx(ctx, r.pool, func(q persistence.Querier) error {
		for _, token := range tokens {
			if err := updateRefreshToken(ctx, q, token); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, token := range tokens {
		token.MarkPersisted()
	}
	return nil
}

func updateRefreshToken(ctx context.Context, q persistence.Querier, token *domain.RefreshToken) error {
	const query = `
        UPDATE refresh_tokens SET is_revoked=$1, revoked_at=$2, replaced_by=$3, version=$4
        WHERE id=$5 AND version=$6`

	s := token.Snapshot()
	cmd, err := q.Exec(ctx, query,
		s.IsRevoked,
		s.RevokedAt,
		tokenIDString(s.ReplacedBy),
		s.Version.Int64(),
		s.ID.String(),
		token.PersistedVersion().Int64(),
	)
	if err != nil {
		return translate(err, "update refresh token")
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type refreshTokenRow struct {
	id                  string
	tokenHash           string
	staffAccountID      string
	issuedFromIPAddress string
	expiresAt           time.Time
	isRevoked           bool
	revokedAt           *time.Time
	replacedBy          *string
	createdAt           time.Time
	version             int64
}

func scanRefreshToken(s rowScanner) (refreshTokenRow, error) {
	var row refreshTokenRow
	err := s.Scan(
		&row.id,
		&row.tokenHash,
		&row.staffAccountID,
		&row.issuedFromIPAddress,
		&row.expiresAt,
		&row.isRevoked,
		&row.revokedAt,
		&row.replacedBy,
		&row.createdAt,
		&row.version,
	)
	return row, err
}

func (row refreshTokenRow) toDomain() (*domain.RefreshToken, error) {
	id, err := domain.ParseRefreshTokenID(row.id)
	if err != nil {
		return nil, corrupt("refresh_tokens", err)
	}
	hash, err := domain.NewTokenHash(row.tokenHash)
	if err != nil {
		return nil, corrupt("refresh_tokens", err)
	}
	owner, err := domain.ParseStaffAccountID(row.staffAccountID)
	if err != nil {
		return nil, corrupt("refresh_tokens", err)
	}
	var replacedBy *domain.RefreshTokenID
	if row.replacedBy != nil {
		next, err := domain.ParseRefreshTokenID(*row.replacedBy)
		if err != nil {
			return nil, corrupt("refresh_tokens", err)
		}
		replacedBy = &next
	}
	token, err := domain.RehydrateRefreshToken(domain.RefreshTokenSnapshot{
		ID:                  id,
		TokenHash:           hash,
		StaffAccountID:      owner,
		IssuedFromIPAddress: row.issuedFromIPAddress,
		ExpiresAt:           row.expiresAt,
		IsRevoked:           row.isRevoked,
		RevokedAt:           row.revokedAt,
		ReplacedBy:          replacedBy,
		CreatedAt:           row.createdAt,
		Version:             domain.Version(row.version),
	})
	if err != nil {
		return nil, corrupt("refresh_tokens", err)
	}
	return token, nil
}

func tokenIDString(id *domain.RefreshTokenID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
