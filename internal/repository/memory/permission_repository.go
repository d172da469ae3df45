package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/staff-account-service/internal/domain"
	"github.com/spec-kit/staff-account-service/internal/repository"
)

type permissionRepository struct {
	store *Store
}

// NewPermissionRepository returns a read-only view of the store's catalog.
func NewPermissionRepository(store *Store) repository.PermissionRepository {
	return &permissionRepository{store: store}
}

func (r *permissionRepository) GetByIDs(ctx context.Context, ids []domain.PermissionID) ([]domain.Permission, error) {
	_, leave, err := r.store.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	seen := make(map[domain.PermissionID]struct{}, len(ids))
	var permissions []domain.Permission
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.store.permissions[id]; ok {
			permissions = append(permissions, p)
		}
	}
	sort.Slice(permissions, func(i, j int) bool {
		return permissions[i].Code.String() < permissions[j].Code.String()
	})
	return permissions, nil
}
