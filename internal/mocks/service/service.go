// Package service provides testify mocks of the domain service interfaces.
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"sopmaker/internal/domain/entity"
	"sopmaker/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTokenService is a mock of service.TokenService.
type MockTokenService struct {
	mock.Mock
}

func NewMockTokenService(t *testing.T) *MockTokenService {
	m := &MockTokenService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockTokenService) GenerateTokens(user *entity.User, role entity.Role, sessionID uuid.UUID) (*entity.SessionTokens, error) {
	args := m.Called(user, role, sessionID)
	tokens, _ := args.Get(0).(*entity.SessionTokens)

	return tokens, args.Error(1)
}

func (m *MockTokenService) ValidateToken(tokenString, tokenType string) (*service.Claims, error) {
	args := m.Called(tokenString, tokenType)
	claims, _ := args.Get(0).(*service.Claims)

	return claims, args.Error(1)
}

// HashToken is deterministic so tests can predict stored hashes.
func (m *MockTokenService) HashToken(token string) string {
	return "hash:" + token
}

func (m *MockTokenService) GetAccessTokenDuration() time.Duration {
	return 15 * time.Minute
}

func (m *MockTokenService) GetRefreshTokenDuration() time.Duration {
	return 7 * 24 * time.Hour
}

// MockIdentityVerifier is a mock of service.IdentityVerifier.
type MockIdentityVerifier struct {
	mock.Mock
}

func NewMockIdentityVerifier(t *testing.T) *MockIdentityVerifier {
	m := &MockIdentityVerifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockIdentityVerifier) VerifyIDToken(ctx context.Context, idToken string) (*entity.IdentityClaims, error) {
	args := m.Called(ctx, idToken)
	claims, _ := args.Get(0).(*entity.IdentityClaims)

	return claims, args.Error(1)
}

// MockIdentityAdmin is a mock of service.IdentityAdmin.
type MockIdentityAdmin struct {
	mock.Mock
}

func NewMockIdentityAdmin(t *testing.T) *MockIdentityAdmin {
	m := &MockIdentityAdmin{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockIdentityAdmin) GetUser(ctx context.Context, subjectID string) (*entity.IdentityUser, error) {
	args := m.Called(ctx, subjectID)
	user, _ := args.Get(0).(*entity.IdentityUser)

	return user, args.Error(1)
}

func (m *MockIdentityAdmin) SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error {
	return m.Called(ctx, subjectID, claims).Error(0)
}

// MockPasswordHasher is a mock of service.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

func NewMockPasswordHasher(t *testing.T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)

	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Check(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

// MockQRCodeService is a mock of service.QRCodeService.
type MockQRCodeService struct {
	mock.Mock
}

func NewMockQRCodeService(t *testing.T) *MockQRCodeService {
	m := &MockQRCodeService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockQRCodeService) GenerateShareQR(shareURL string) ([]byte, error) {
	args := m.Called(shareURL)
	png, _ := args.Get(0).([]byte)

	return png, args.Error(1)
}

// EventRecorder collects published events and fails with Err when set.
type EventRecorder struct {
	mu     sync.Mutex
	Err    error
	Events []*service.AuthEvent
}

func (r *EventRecorder) PublishAuthEvent(_ context.Context, event *service.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Events = append(r.Events, event)

	return r.Err
}

func (r *EventRecorder) Close() error {
	return nil
}

// Types returns the recorded event types in publish order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, len(r.Events))
	for i, event := range r.Events {
		types[i] = event.Type
	}

	return types
}

// MetricsRecorder counts reported outcomes by "name:label..." keys.
type MetricsRecorder struct {
	mu     sync.Mutex
	Counts map[string]int
}

func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{Counts: map[string]int{}}
}

func (r *MetricsRecorder) inc(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Counts[key]++
}

// Count returns how often key was recorded.
func (r *MetricsRecorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Counts[key]
}

func (r *MetricsRecorder) RecordGuardDecision(class, decision string) {
	r.inc("guard:" + class + ":" + decision)
}

func (r *MetricsRecorder) RecordTokenExchange(outcome string) {
	r.inc("exchange:" + outcome)
}

func (r *MetricsRecorder) RecordSessionRefresh(outcome string) {
	r.inc("refresh:" + outcome)
}

func (r *MetricsRecorder) RecordRoleSync(direction, outcome string) {
	r.inc("sync:" + direction + ":" + outcome)
}
