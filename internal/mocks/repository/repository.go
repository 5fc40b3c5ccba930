// Package repository provides testify mocks of the persistence interfaces.
package repository

import (
	"context"
	"testing"

	"sopmaker/internal/domain/entity"
	"sopmaker/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// TransactionManager runs the callback against Factory without a database.
type TransactionManager struct {
	Factory  repository.RepositoryFactory
	BeginErr error
	Calls    int
}

func (m *TransactionManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	m.Calls++
	if m.BeginErr != nil {
		return m.BeginErr
	}

	return fn(m.Factory)
}

// RepositoryFactory hands out the configured repositories.
type RepositoryFactory struct {
	Users         repository.UserRepository
	Auths         repository.AuthRepository
	Roles         repository.RoleRepository
	RefreshTokens repository.RefreshTokenRepository
	SOPs          repository.SOPRepository
}

func (f *RepositoryFactory) NewUserRepository() repository.UserRepository { return f.Users }
func (f *RepositoryFactory) NewAuthRepository() repository.AuthRepository { return f.Auths }
func (f *RepositoryFactory) NewRoleRepository() repository.RoleRepository { return f.Roles }
func (f *RepositoryFactory) NewRefreshTokenRepository() repository.RefreshTokenRepository {
	return f.RefreshTokens
}
func (f *RepositoryFactory) NewSOPRepository() repository.SOPRepository { return f.SOPs }

// MockUserRepository is a mock of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock whose expectations are asserted on cleanup.
func NewMockUserRepository(t *testing.T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*entity.User)

	return user, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*entity.User)

	return user, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]*entity.User)

	return users, args.Error(1)
}

// MockAuthRepository is a mock of repository.AuthRepository.
type MockAuthRepository struct {
	mock.Mock
}

func NewMockAuthRepository(t *testing.T) *MockAuthRepository {
	m := &MockAuthRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockAuthRepository) CreateAuthentication(ctx context.Context, auth *entity.Authentication) error {
	return m.Called(ctx, auth).Error(0)
}

func (m *MockAuthRepository) FindAuthentication(ctx context.Context, provider, providerUserID string) (*entity.Authentication, error) {
	args := m.Called(ctx, provider, providerUserID)
	auth, _ := args.Get(0).(*entity.Authentication)

	return auth, args.Error(1)
}

// MockRoleRepository is a mock of repository.RoleRepository.
type MockRoleRepository struct {
	mock.Mock
}

func NewMockRoleRepository(t *testing.T) *MockRoleRepository {
	m := &MockRoleRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRoleRepository) FindByUserID(ctx context.Context, userID string) (*entity.UserRole, error) {
	args := m.Called(ctx, userID)
	role, _ := args.Get(0).(*entity.UserRole)

	return role, args.Error(1)
}

func (m *MockRoleRepository) FindByUserIDs(ctx context.Context, userIDs []string) (map[string]entity.Role, error) {
	args := m.Called(ctx, userIDs)
	roles, _ := args.Get(0).(map[string]entity.Role)

	return roles, args.Error(1)
}

func (m *MockRoleRepository) Upsert(ctx context.Context, userID string, role entity.Role) error {
	return m.Called(ctx, userID, role).Error(0)
}

// MockRefreshTokenRepository is a mock of repository.RefreshTokenRepository.
type MockRefreshTokenRepository struct {
	mock.Mock
}

func NewMockRefreshTokenRepository(t *testing.T) *MockRefreshTokenRepository {
	m := &MockRefreshTokenRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRefreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockRefreshTokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	token, _ := args.Get(0).(*entity.RefreshToken)

	return token, args.Error(1)
}

func (m *MockRefreshTokenRepository) FindRefreshTokensByUserID(ctx context.Context, userID string) ([]*entity.RefreshToken, error) {
	args := m.Called(ctx, userID)
	tokens, _ := args.Get(0).([]*entity.RefreshToken)

	return tokens, args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteRefreshToken(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteRefreshTokensByUserID(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	deleted, _ := args.Get(0).(int64)

	return deleted, args.Error(1)
}

// MockSOPRepository is a mock of repository.SOPRepository.
type MockSOPRepository struct {
	mock.Mock
}

func NewMockSOPRepository(t *testing.T) *MockSOPRepository {
	m := &MockSOPRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockSOPRepository) Create(ctx context.Context, sop *entity.SOP) error {
	return m.Called(ctx, sop).Error(0)
}

func (m *MockSOPRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SOP, error) {
	args := m.Called(ctx, id)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}

func (m *MockSOPRepository) FindByShareToken(ctx context.Context, token string) (*entity.SOP, error) {
	args := m.Called(ctx, token)
	sop, _ := args.Get(0).(*entity.SOP)

	return sop, args.Error(1)
}

func (m *MockSOPRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.SOP, error) {
	args := m.Called(ctx, ownerID)
	sops, _ := args.Get(0).([]*entity.SOP)

	return sops, args.Error(1)
}

func (m *MockSOPRepository) Update(ctx context.Context, sop *entity.SOP) error {
	return m.Called(ctx, sop).Error(0)
}

func (m *MockSOPRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSOPRepository) CreateStep(ctx context.Context, step *entity.Step) error {
	return m.Called(ctx, step).Error(0)
}

func (m *MockSOPRepository) UpdateStepPositions(ctx context.Context, sopID uuid.UUID, positions map[uuid.UUID]int) error {
	return m.Called(ctx, sopID, positions).Error(0)
}
