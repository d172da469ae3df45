package memory

import (
	"github.com/google/uuid"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// DefaultPermissions mirrors the catalog seeded by migrations/0003_seed_permissions.sql.
func DefaultPermissions() []domain.Permission {
	seed := []struct{ id, code string }{
		{"6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a01", domain.PermissionStaffManage},
		{"6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a02", domain.PermissionStaffSessionsRevoke},
		{"6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a03", "orders.read"},
		{"6f1c1a52-5c1e-4c47-9a55-1f3d2b7c0a04", "modmail.read"},
	}
	permissions := make([]domain.Permission, 0, len(seed))
	for _, s := range seed {
		code, err := domain.NewPermissionCode(s.code)
		if err != nil {
			panic(err)
		}
		permissions = append(permissions, domain.Permission{
			ID:   domain.PermissionID(uuid.MustParse(s.id)),
			Code: code,
		})
	}
	return permissions
}
