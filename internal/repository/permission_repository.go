package repository

import (
	"context"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/persistence"
)

// PermissionRepository reads the permission catalog.
type PermissionRepository interface {
	// GetByIDs returns the permissions that exist among ids, ordered by code.
	// Callers compare lengths to detect unknown ids.
	GetByIDs(ctx context.Context, ids []domain.PermissionID) ([]domain.Permission, error)
}

type permissionRepository struct {
	pool persistence.Pool
}

// NewPermissionRepository returns a Postgres-backed implementation.
func NewPermissionRepository(pool persistence.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

func (r *permissionRepository) GetByIDs(ctx context.Context, ids []domain.PermissionID) ([]domain.Permission, error) {
	const query = `SELECT id, code FROM permissions WHERE id = ANY($1) ORDER BY code`

	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.String())
	}

	rows, err := persistence.QuerierFrom(ctx, r.pool).Query(ctx, query, args)
	if err != nil {
		return nil, translate(err, "get permissions")
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var id, code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, translate(err, "scan permission")
		}
		permission, err := toPermission(id, code)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, permission)
	}
	return permissions, translate(rows.Err(), "get permissions")
}
