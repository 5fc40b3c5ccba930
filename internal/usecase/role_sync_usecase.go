package usecase

import (
	"context"

	"sopmaker/internal/domain/entity"
)

// SyncRoleInput selects the user, the role and where it is written.
// A nil Role means the role is resolved from both stores first.
type SyncRoleInput struct {
	UserID    string
	Role      *entity.Role
	Direction entity.SyncDirection
}

// RoleSyncUsecase keeps the role consistent between the identity provider and the session store.
type RoleSyncUsecase interface {
	// SyncRole returns *errors.RoleSyncError when a store could not be written.
	SyncRole(ctx context.Context, input *SyncRoleInput) (*entity.RoleSyncResult, error)

	// GetRole reads the session store's roles table, defaulting to viewer.
	GetRole(ctx context.Context, userID string) (entity.Role, error)
}
