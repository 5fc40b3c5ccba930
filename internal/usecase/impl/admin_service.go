package impl

import (
	"context"
	"log/slog"

	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"go.uber.org/fx"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

type adminService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	roleSync usecase.RoleSyncUsecase
	logger   *slog.Logger
}

// AdminServiceParams holds dependencies for AdminService, injected by Fx.
type AdminServiceParams struct {
	fx.In

	UserRepo repository.UserRepository
	RoleRepo repository.RoleRepository
	RoleSync usecase.RoleSyncUsecase
	Logger   *slog.Logger
}

// NewAdminService is the constructor for adminService.
func NewAdminService(params AdminServiceParams) usecase.AdminUsecase {
	return &adminService{
		userRepo: params.UserRepo,
		roleRepo: params.RoleRepo,
		roleSync: params.RoleSync,
		logger:   params.Logger,
	}
}

func (srv *adminService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListUsers pages through users with the role stored for each; users without a row are viewers.
func (srv *adminService) ListUsers(ctx context.Context, limit, offset int) ([]*entity.UserWithRole, error) {
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	limit = min(limit, maxUserPageSize)
	offset = max(offset, 0)

	users, err := srv.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	ids := make([]string, len(users))
	for i, user := range users {
		ids[i] = user.ID
	}

	roles, err := srv.roleRepo.FindByUserIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stored roles")
	}

	result := make([]*entity.UserWithRole, len(users))
	for i, user := range users {
		role, ok := roles[user.ID]
		if !ok || !role.IsValid() {
			role = entity.RoleViewer
		}
		result[i] = &entity.UserWithRole{User: user, Role: role}
	}

	return result, nil
}

// SetRole assigns role in both stores.
func (srv *adminService) SetRole(ctx context.Context, userID string, role entity.Role) (*entity.RoleSyncResult, error) {
	if !role.IsValid() {
		return nil, domainerrors.ErrInvalidRole.WithDetails(role.String())
	}

	if _, err := srv.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	srv.log(ctx).Info("Setting user role", slog.String("userID", userID), slog.String("role", role.String()))

	return srv.roleSync.SyncRole(ctx, &usecase.SyncRoleInput{
		UserID:    userID,
		Role:      &role,
		Direction: entity.SyncBoth,
	})
}
