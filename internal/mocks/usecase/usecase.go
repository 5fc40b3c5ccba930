// Package usecase provides testify mocks of the usecase interfaces.
package usecase

import (
	"context"
	"testing"

	"sopmaker/internal/domain/entity"
	"sopmaker/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSessionUsecase is a mock of usecase.SessionUsecase.
type MockSessionUsecase struct {
	mock.Mock
}

func NewMockSessionUsecase(t *testing.T) *MockSessionUsecase {
	m := &MockSessionUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockSessionUsecase) EstablishSession(ctx context.Context, user *entity.User, role entity.Role, client entity.ClientInfo) (*entity.SessionTokens, error) {
	args := m.Called(ctx, user, role, client)
	tokens, _ := args.Get(0).(*entity.SessionTokens)

	return tokens, args.Error(1)
}

func (m *MockSessionUsecase) CurrentUser(ctx context.Context, accessToken, refreshToken string, client entity.ClientInfo) (*entity.SessionState, error) {
	args := m.Called(ctx, accessToken, refreshToken, client)
	state, _ := args.Get(0).(*entity.SessionState)

	return state, args.Error(1)
}

func (m *MockSessionUsecase) RefreshIfNeeded(ctx context.Context, refreshToken string, client entity.ClientInfo) (*entity.SessionState, error) {
	args := m.Called(ctx, refreshToken, client)
	state, _ := args.Get(0).(*entity.SessionState)

	return state, args.Error(1)
}

func (m *MockSessionUsecase) DestroySession(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockSessionUsecase) ListSessions(ctx context.Context, userID string) ([]*entity.SessionInfo, error) {
	args := m.Called(ctx, userID)
	sessions, _ := args.Get(0).([]*entity.SessionInfo)

	return sessions, args.Error(1)
}

func (m *MockSessionUsecase) RevokeAllSessions(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockSessionUsecase) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	deleted, _ := args.Get(0).(int64)

	return deleted, args.Error(1)
}

// MockAuthUsecase is a mock of usecase.AuthUsecase.
type MockAuthUsecase struct {
	mock.Mock
}

func NewMockAuthUsecase(t *testing.T) *MockAuthUsecase {
	m := &MockAuthUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockAuthUsecase) ExchangeToken(ctx context.Context, input *usecase.ExchangeTokenInput) (*usecase.AuthOutput, error) {
	args := m.Called(ctx, input)
	output, _ := args.Get(0).(*usecase.AuthOutput)

	return output, args.Error(1)
}

func (m *MockAuthUsecase) SignUp(ctx context.Context, input *usecase.SignUpInput) (*usecase.AuthOutput, error) {
	args := m.Called(ctx, input)
	output, _ := args.Get(0).(*usecase.AuthOutput)

	return output, args.Error(1)
}

func (m *MockAuthUsecase) SignIn(ctx context.Context, input *usecase.SignInInput) (*usecase.AuthOutput, error) {
	args := m.Called(ctx, input)
	output, _ := args.Get(0).(*usecase.AuthOutput)

	return output, args.Error(1)
}

func (m *MockAuthUsecase) Status(ctx context.Context, state *entity.SessionState) (*usecase.StatusOutput, error) {
	args := m.Called(ctx, state)
	output, _ := args.Get(0).(*usecase.StatusOutput)

	return output, args.Error(1)
}

func (m *MockAuthUsecase) Authenticate(ctx context.Context, idToken string) (*entity.SessionState, error) {
	args := m.Called(ctx, idToken)
	state, _ := args.Get(0).(*entity.SessionState)

	return state, args.Error(1)
}

// MockRoleSyncUsecase is a mock of usecase.RoleSyncUsecase.
type MockRoleSyncUsecase struct {
	mock.Mock
}

func NewMockRoleSyncUsecase(t *testing.T) *MockRoleSyncUsecase {
	m := &MockRoleSyncUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRoleSyncUsecase) SyncRole(ctx context.Context, input *usecase.SyncRoleInput) (*entity.RoleSyncResult, error) {
	args := m.Called(ctx, input)
	result, _ := args.Get(0).(*entity.RoleSyncResult)

	return result, args.Error(1)
}

func (m *MockRoleSyncUsecase) GetRole(ctx context.Context, userID string) (entity.Role, error) {
	args := m.Called(ctx, userID)
	role, _ := args.Get(0).(entity.Role)

	return role, args.Error(1)
}

// MockAdminUsecase is a mock of usecase.AdminUsecase.
type MockAdminUsecase struct {
	mock.Mock
}

func NewMockAdminUsecase(t *testing.T) *MockAdminUsecase {
	m := &MockAdminUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockAdminUsecase) ListUsers(ctx context.Context, limit, offset int) ([]*entity.UserWithRole, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]*entity.UserWithRole)

	return users, args.Error(1)
}

func (m *MockAdminUsecase) SetRole(ctx context.Context, userID string, role entity.Role) (*entity.RoleSyncResult, error) {
	args := m.Called(ctx, userID, role)
	result, _ := args.Get(0).(*entity.RoleSyncResult)

	return result, args.Error(1)
}

// MockSOPUsecase is a mock of usecase.SOPUsecase.
type MockSOPUsecase struct {
	mock.Mock
}

func NewMockSOPUsecase(t *testing.T) *MockSOPUsecase {
	m := &MockSOPUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockSOPUsecase) Create(ctx context.Context, actor *entity.SessionState, input *usecase.CreateSOPInput) (*entity.SOP, error) {
	args := m.Called(ctx, actor, input)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}

func (m *MockSOPUsecase) List(ctx context.Context, actor *entity.SessionState) ([]*entity.SOP, error) {
	args := m.Called(ctx, actor)
	sops, _ := args.Get(0).([]*entity.SOP)

	return sops, args.Error(1)
}

func (m *MockSOPUsecase) Get(ctx context.Context, actor *entity.SessionState, id uuid.UUID) (*entity.SOP, error) {
	args := m.Called(ctx, actor, id)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}

func (m *MockSOPUsecase) Update(ctx context.Context, actor *entity.SessionState, id uuid.UUID, input *usecase.UpdateSOPInput) (*entity.SOP, error) {
	args := m.Called(ctx, actor, id, input)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}

func (m *MockSOPUsecase) Delete(ctx context.Context, actor *entity.SessionState, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockSOPUsecase) AddStep(ctx context.Context, actor *entity.SessionState, id uuid.UUID, input *usecase.AddStepInput) (*entity.Step, error) {
	args := m.Called(ctx, actor, id, input)
	step, _ := args.Get(0).(*entity.Step)

	return step, args.Error(1)
}

func (m *MockSOPUsecase) ReorderSteps(ctx context.Context, actor *entity.SessionState, id uuid.UUID, order []uuid.UUID) (*entity.SOP, error) {
	args := m.Called(ctx, actor, id, order)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}

func (m *MockSOPUsecase) Share(ctx context.Context, actor *entity.SessionState, id uuid.UUID) (string, error) {
	args := m.Called(ctx, actor, id)

	return args.String(0), args.Error(1)
}

func (m *MockSOPUsecase) ShareQRCode(ctx context.Context, actor *entity.SessionState, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, actor, id)
	png, _ := args.Get(0).([]byte)

	return png, args.Error(1)
}

func (m *MockSOPUsecase) GetShared(ctx context.Context, token string) (*entity.SOP, error) {
	args := m.Called(ctx, token)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}
