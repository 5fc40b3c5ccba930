package impl

import (
	"io"
	"log/slog"
	"testing"

	"sopmaker/config"
	mockRepo "sopmaker/internal/mocks/repository"
	mockService "sopmaker/internal/mocks/service"
	"sopmaker/internal/usecase"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(maxActiveSessions int) *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:        12,
			MaxActiveSessions: maxActiveSessions,
			AutoCreateUsers:   true,
		},
	}
	cfg.App.BaseURL = "https://sop.example.com/"

	return cfg
}

// serviceDeps wires one set of mocks; transaction-bound repositories are the same mocks.
type serviceDeps struct {
	users    *mockRepo.MockUserRepository
	auths    *mockRepo.MockAuthRepository
	roles    *mockRepo.MockRoleRepository
	refresh  *mockRepo.MockRefreshTokenRepository
	sops     *mockRepo.MockSOPRepository
	tx       *mockRepo.TransactionManager
	tokens   *mockService.MockTokenService
	verifier *mockService.MockIdentityVerifier
	admin    *mockService.MockIdentityAdmin
	hasher   *mockService.MockPasswordHasher
	qr       *mockService.MockQRCodeService
	events   *mockService.EventRecorder
	metrics  *mockService.MetricsRecorder
}

func newServiceDeps(t *testing.T) *serviceDeps {
	d := &serviceDeps{
		users:    mockRepo.NewMockUserRepository(t),
		auths:    mockRepo.NewMockAuthRepository(t),
		roles:    mockRepo.NewMockRoleRepository(t),
		refresh:  mockRepo.NewMockRefreshTokenRepository(t),
		sops:     mockRepo.NewMockSOPRepository(t),
		tokens:   mockService.NewMockTokenService(t),
		verifier: mockService.NewMockIdentityVerifier(t),
		admin:    mockService.NewMockIdentityAdmin(t),
		hasher:   mockService.NewMockPasswordHasher(t),
		qr:       mockService.NewMockQRCodeService(t),
		events:   &mockService.EventRecorder{},
		metrics:  mockService.NewMetricsRecorder(),
	}
	d.tx = &mockRepo.TransactionManager{Factory: &mockRepo.RepositoryFactory{
		Users:         d.users,
		Auths:         d.auths,
		Roles:         d.roles,
		RefreshTokens: d.refresh,
		SOPs:          d.sops,
	}}

	return d
}

func (d *serviceDeps) sessionService(cfg *config.Config) *sessionService {
	return NewSessionService(SessionServiceParams{
		TxManager:        d.tx,
		RefreshTokenRepo: d.refresh,
		TokenService:     d.tokens,
		Metrics:          d.metrics,
		Config:           cfg,
		Logger:           newDiscardLogger(),
	}).(*sessionService)
}

func (d *serviceDeps) authService(cfg *config.Config, sessions usecase.SessionUsecase) *authService {
	return NewAuthService(AuthServiceParams{
		TxManager: d.tx,
		UserRepo:  d.users,
		RoleRepo:  d.roles,
		Verifier:  d.verifier,
		Hasher:    d.hasher,
		Sessions:  sessions,
		Publisher: d.events,
		Metrics:   d.metrics,
		Config:    cfg,
		Logger:    newDiscardLogger(),
	}).(*authService)
}

func (d *serviceDeps) roleSyncService() *roleSyncService {
	return NewRoleSyncService(RoleSyncServiceParams{
		RoleRepo:      d.roles,
		IdentityAdmin: d.admin,
		Publisher:     d.events,
		Metrics:       d.metrics,
		Config:        newTestConfig(0),
		Logger:        newDiscardLogger(),
	}).(*roleSyncService)
}

func (d *serviceDeps) sopService() *sopService {
	return NewSOPService(SOPServiceParams{
		TxManager: d.tx,
		SOPRepo:   d.sops,
		QRService: d.qr,
		Config:    newTestConfig(0),
		Logger:    newDiscardLogger(),
	}).(*sopService)
}
