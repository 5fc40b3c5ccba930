package usecase

import (
	"context"

	"sopmaker/internal/domain/entity"
)

// AdminUsecase backs the admin area.
type AdminUsecase interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*entity.UserWithRole, error)

	// SetRole writes role to both stores.
	SetRole(ctx context.Context, userID string, role entity.Role) (*entity.RoleSyncResult, error)
}
