package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/persistence"
)

// StaffAccountRepository persists the StaffAccount aggregate.
type StaffAccountRepository interface {
	GetByID(ctx context.Context, id domain.StaffAccountID) (*domain.StaffAccount, error)
	GetByUsername(ctx context.Context, username domain.Username) (*domain.StaffAccount, error)
	Create(ctx context.Context, account *domain.StaffAccount) error
	Update(ctx context.Context, account *domain.StaffAccount) error
}

type staffAccountRepository struct {
	pool persistence.Pool
}

// NewStaffAccountRepository returns a Postgres-backed implementation.
func NewStaffAccountRepository(pool persistence.Pool) StaffAccountRepository {
	return &staffAccountRepository{pool: pool}
}

const staffAccountColumns = `id, username, email, password_hash, password_issued_at, order_access_days, modmail_transcript_access_days, status, failed_login_attempts, locked_until, last_login_at, created_by, disabled_by, enabled_by, created_at, version`

func (r *staffAccountRepository) GetByID(ctx context.Context, id domain.StaffAccountID) (*domain.StaffAccount, error) {
	const query = `SELECT ` + staffAccountColumns + ` FROM staff_accounts WHERE id = $1`
	return r.get(ctx, query, id.String())
}

func (r *staffAccountRepository) GetByUsername(ctx context.Context, username domain.Username) (*domain.StaffAccount, error) {
	const query = `SELECT ` + staffAccountColumns + ` FROM staff_accounts WHERE LOWER(username) = LOWER($1)`
	return r.get(ctx, query, username.String())
}

func (r *staffAccountRepository) get(ctx context.Context, query string, arg any) (*domain.StaffAccount, error) {
	q := persistence.QuerierFrom(ctx, r.pool)

	var row staffAccountRow
	if err := q.QueryRow(ctx, query, arg).Scan(
		&row.id,
		&row.username,
		&row.email,
		&row.passwordHash,
		&row.passwordIssuedAt,
		&row.orderAccessDays,
		&row.modmailAccessDays,
		&row.status,
		&row.failedLoginAttempts,
		&row.lockedUntil,
		&row.lastLoginAt,
		&row.createdBy,
		&row.disabledBy,
		&row.enabledBy,
		&row.createdAt,
		&row.version,
	); err != nil {
		return nil, translate(err, "get staff account")
	}

	permissions, err := r.permissions(ctx, q, row.id)
	if err != nil {
		return nil, err
	}
	return row.toDomain(permissions)
}

func (r *staffAccountRepository) permissions(ctx context.Context, q persistence.Querier, staffAccountID string) ([]domain.Permission, error) {
	const query = `
        SELECT p.id, p.code
        FROM permissions p
        JOIN staff_account_permissions sap ON sap.permission_id = p.id
        WHERE sap.staff_account_id = $1
        ORDER BY p.code`

	rows, err := q.Query(ctx, query, staffAccountID)
	if err != nil {
		return nil, translate(err, "list staff account permissions")
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var id, code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, translate(err, "scan staff account permission")
		}
		permission, err := toPermission(id, code)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, permission)
	}
	return permissions, translate(rows.Err(), "list staff account permissions")
}

func (r *staffAccountRepository) Create(ctx context.Context, account *domain.StaffAccount) error {
	const insertAccount = `
        INSERT INTO staff_accounts (` + staffAccountColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	const insertPermission = `
        INSERT INTO staff_account_permissions (staff_account_id, permission_id)
        VALUES ($1, $2)`

	s := account.Snapshot()
	err := persistence.InTx(ctx, r.pool, func(q persistence.Querier) error {
		if _, err := q.Exec(ctx, insertAccount,
			s.ID.String(),
			s.Username.String(),
			s.Email.String(),
			s.Password.String(),
			s.PasswordIssuedAt,
			s.OrderAccessDuration.Days(),
			s.ModmailTranscriptAccessDuration.Days(),
			s.Status.String(),
			s.FailedLoginAttempts,
			s.LockedUntil,
			s.LastLoginAt,
			idString(s.CreatedBy),
			idString(s.DisabledBy),
			idString(s.EnabledBy),
			s.CreatedAt,
			s.Version.Int64(),
		); err != nil {
			return translate(err, "insert staff account")
		}
		for _, permission := range s.Permissions {
			if _, err := q.Exec(ctx, insertPermission, s.ID.String(), permission.ID.String()); err != nil {
				return translate(err, "insert staff account permission")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	account.MarkPersisted()
	return nil
}

func (r *staffAccountRepository) Update(ctx context.Context, account *domain.StaffAccount) error {
	const query = `
        UPDATE staff_accounts SET
            email=$1, password_hash=$2, password_issued_at=$3, status=$4,
            failed_login_attempts=$5, locked_until=$6, last_login_at=$7,
            disabled_by=$8, enabled_by=$9, version=$10, updated_at=NOW()
        WHERE id=$11 AND version=$12`

	s := account.Snapshot()
	cmd, err := persistence.QuerierFrom(ctx, r.pool).Exec(ctx, query,
		s.Email.String(),
		s.Password.String(),
		s.PasswordIssuedAt,
		s.Status.String(),
		s.FailedLoginAttempts,
		s.LockedUntil,
		s.LastLoginAt,
		idString(s.DisabledBy),
		idString(s.EnabledBy),
		s.Version.Int64(),
		s.ID.String(),
		account.PersistedVersion().Int64(),
	)
	if err != nil {
		return translate(err, "update staff account")
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	account.MarkPersisted()
	return nil
}

type staffAccountRow struct {
	id                  string
	username            string
	email               string
	passwordHash        string
	passwordIssuedAt    time.Time
	orderAccessDays     int
	modmailAccessDays   int
	status              string
	failedLoginAttempts int
	lockedUntil         *time.Time
	lastLoginAt         *time.Time
	createdBy           *string
	disabledBy          *string
	enabledBy           *string
	createdAt           time.Time
	version             int64
}

func (row staffAccountRow) toDomain(permissions []domain.Permission) (*domain.StaffAccount, error) {
	id, err := domain.ParseStaffAccountID(row.id)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	username, err := domain.NewUsername(row.username)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	email, err := domain.NewEmail(row.email)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	hash, err := domain.NewPasswordHash(row.passwordHash)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	orderAccess, err := domain.NewAccessDuration("order_access_duration", row.orderAccessDays)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	modmailAccess, err := domain.NewAccessDuration("modmail_transcript_access_duration", row.modmailAccessDays)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	status, err := domain.ParseStaffAccountStatus(row.status)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	createdBy, err := parseOptionalStaffID(row.createdBy)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	disabledBy, err := parseOptionalStaffID(row.disabledBy)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	enabledBy, err := parseOptionalStaffID(row.enabledBy)
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}

	account, err := domain.RehydrateStaffAccount(domain.StaffAccountSnapshot{
		ID:                              id,
		Username:                        username,
		Email:                           email,
		Password:                        hash,
		PasswordIssuedAt:                row.passwordIssuedAt,
		OrderAccessDuration:             orderAccess,
		ModmailTranscriptAccessDuration: modmailAccess,
		Status:                          status,
		FailedLoginAttempts:             row.failedLoginAttempts,
		LockedUntil:                     row.lockedUntil,
		LastLoginAt:                     row.lastLoginAt,
		CreatedBy:                       createdBy,
		DisabledBy:                      disabledBy,
		EnabledBy:                       enabledBy,
		Permissions:                     permissions,
		CreatedAt:                       row.createdAt,
		Version:                         domain.Version(row.version),
	})
	if err != nil {
		return nil, corrupt("staff_accounts", err)
	}
	return account, nil
}

func toPermission(id, code string) (domain.Permission, error) {
	permissionID, err := domain.ParsePermissionID(id)
	if err != nil {
		return domain.Permission{}, corrupt("permissions", err)
	}
	permissionCode, err := domain.NewPermissionCode(code)
	if err != nil {
		return domain.Permission{}, corrupt("permissions", err)
	}
	return domain.Permission{ID: permissionID, Code: permissionCode}, nil
}

func parseOptionalStaffID(s *string) (*domain.StaffAccountID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := domain.ParseStaffAccountID(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func idString(id *domain.StaffAccountID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func corrupt(table string, err error) error {
	return fmt.Errorf("corrupt %s row: %w", table, err)
}
