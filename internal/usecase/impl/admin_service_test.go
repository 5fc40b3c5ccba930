package impl

import (
	"context"
	"testing"

	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	mockUsecase "sopmaker/internal/mocks/usecase"
	"sopmaker/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAdminService(deps *serviceDeps, roleSync usecase.RoleSyncUsecase) *adminService {
	return NewAdminService(AdminServiceParams{
		UserRepo: deps.users,
		RoleRepo: deps.roles,
		RoleSync: roleSync,
		Logger:   newDiscardLogger(),
	}).(*adminService)
}

func TestAdminService_ListUsers_DefaultsMissingRolesToViewer(t *testing.T) {
	deps := newServiceDeps(t)
	srv := newTestAdminService(deps, mockUsecase.NewMockRoleSyncUsecase(t))

	users := []*entity.User{{ID: "uid-1"}, {ID: "uid-2"}}
	deps.users.On("List", mock.Anything, defaultUserPageSize, 0).Return(users, nil)
	deps.roles.On("FindByUserIDs", mock.Anything, []string{"uid-1", "uid-2"}).
		Return(map[string]entity.Role{"uid-1": entity.RoleAdmin}, nil)

	result, err := srv.ListUsers(context.Background(), 0, -5)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, entity.RoleAdmin, result[0].Role)
	assert.Equal(t, entity.RoleViewer, result[1].Role)
}

func TestAdminService_ListUsers_CapsPageSize(t *testing.T) {
	deps := newServiceDeps(t)
	srv := newTestAdminService(deps, mockUsecase.NewMockRoleSyncUsecase(t))

	deps.users.On("List", mock.Anything, maxUserPageSize, 10).Return([]*entity.User{}, nil)
	deps.roles.On("FindByUserIDs", mock.Anything, []string{}).Return(map[string]entity.Role{}, nil)

	result, err := srv.ListUsers(context.Background(), 10_000, 10)

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAdminService_SetRole_SyncsBothStores(t *testing.T) {
	deps := newServiceDeps(t)
	roleSync := mockUsecase.NewMockRoleSyncUsecase(t)
	srv := newTestAdminService(deps, roleSync)

	expected := &entity.RoleSyncResult{UserID: "uid-1", Role: entity.RoleEditor, Direction: entity.SyncBoth}
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(&entity.User{ID: "uid-1"}, nil)
	roleSync.On("SyncRole", mock.Anything, mock.MatchedBy(func(in *usecase.SyncRoleInput) bool {
		return in.UserID == "uid-1" && in.Direction == entity.SyncBoth && in.Role != nil && *in.Role == entity.RoleEditor
	})).Return(expected, nil)

	result, err := srv.SetRole(context.Background(), "uid-1", entity.RoleEditor)

	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestAdminService_SetRole_Errors(t *testing.T) {
	deps := newServiceDeps(t)
	srv := newTestAdminService(deps, mockUsecase.NewMockRoleSyncUsecase(t))

	_, err := srv.SetRole(context.Background(), "uid-1", "root")
	require.ErrorIs(t, err, domainerrors.ErrInvalidRole)

	deps.users.On("FindByID", mock.Anything, "uid-missing").Return(nil, repository.ErrUserNotFound)
	_, err = srv.SetRole(context.Background(), "uid-missing", entity.RoleViewer)
	require.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}
