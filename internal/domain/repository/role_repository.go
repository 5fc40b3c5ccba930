package repository

import (
	"context"

	"sopmaker/internal/domain/entity"
	"sopmaker/internal/errors"
)

// ErrRoleNotFound is returned when the roles table has no row for a user.
var ErrRoleNotFound = errors.New("role not found")

// RoleRepository persists the session store's copy of each user's role.
type RoleRepository interface {
	// FindByUserID returns ErrRoleNotFound when no row exists.
	FindByUserID(ctx context.Context, userID string) (*entity.UserRole, error)

	// FindByUserIDs returns the stored roles keyed by user id.
	FindByUserIDs(ctx context.Context, userIDs []string) (map[string]entity.Role, error)

	// Upsert inserts or replaces the row for userID.
	Upsert(ctx context.Context, userID string, role entity.Role) error
}
