package impl

import (
	"context"
	"log/slog"

	"sopmaker/config"
	deliverycontext "sopmaker/internal/delivery/context"
	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"
	"sopmaker/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// Session refresh outcomes reported to metrics.
const (
	refreshOutcomeRotated  = "rotated"
	refreshOutcomeRejected = "rejected"
	refreshOutcomeError    = "error"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager         repository.TransactionManager
	refreshTokenRepo  repository.RefreshTokenRepository
	tokenService      service.TokenService
	metrics           service.MetricsRecorder
	maxActiveSessions int
	logger            *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	RefreshTokenRepo repository.RefreshTokenRepository
	TokenService     service.TokenService
	Metrics          service.MetricsRecorder
	Config           *config.Config
	Logger           *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	maxActiveSessions := 0
	if params.Config != nil && params.Config.Auth != nil {
		maxActiveSessions = params.Config.Auth.MaxActiveSessions
	}

	return &sessionService{
		txManager:         params.TxManager,
		refreshTokenRepo:  params.RefreshTokenRepo,
		tokenService:      params.TokenService,
		metrics:           params.Metrics,
		maxActiveSessions: maxActiveSessions,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// EstablishSession signs a new token pair and stores the refresh token hash.
func (srv *sessionService) EstablishSession(ctx context.Context, user *entity.User, role entity.Role, client entity.ClientInfo) (*entity.SessionTokens, error) {
	tokens, err := srv.tokenService.GenerateTokens(user, role, uuid.New())
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate session tokens")
	}

	record := srv.newRefreshRecord(user.ID, tokens, client)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.NewRefreshTokenRepository()

		if err := srv.enforceSessionLimit(ctx, refreshRepo, user.ID); err != nil {
			return err
		}

		return errors.Wrap(refreshRepo.CreateRefreshToken(ctx, record), "failed to store refresh token")
	})
	if err != nil {
		srv.log(ctx).Error("Failed to persist session", slog.String("userID", user.ID), slog.Any("error", err))

		return nil, &domainerrors.SessionWriteError{Err: err}
	}

	srv.log(ctx).Debug("Session established", slog.String("userID", user.ID), slog.Any("sessionID", tokens.SessionID))

	return tokens, nil
}

// enforceSessionLimit deletes the oldest sessions so one more fits under the limit.
func (srv *sessionService) enforceSessionLimit(ctx context.Context, refreshRepo repository.RefreshTokenRepository, userID string) error {
	if srv.maxActiveSessions <= 0 {
		return nil
	}

	active, err := refreshRepo.FindRefreshTokensByUserID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to list active sessions")
	}

	excess := len(active) - srv.maxActiveSessions + 1
	for i := 0; i < excess; i++ {
		if err := refreshRepo.DeleteRefreshToken(ctx, active[i].ID); err != nil {
			return errors.Wrap(err, "failed to evict oldest session")
		}
		srv.log(ctx).Info("Evicted session over limit", slog.String("userID", userID), slog.Any("sessionID", active[i].ID))
	}

	return nil
}

func (srv *sessionService) newRefreshRecord(userID string, tokens *entity.SessionTokens, client entity.ClientInfo) *entity.RefreshToken {
	return &entity.RefreshToken{
		ID:        tokens.SessionID,
		UserID:    userID,
		TokenHash: srv.tokenService.HashToken(tokens.RefreshToken),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: tokens.RefreshExpiresAt,
	}
}

// CurrentUser trusts a valid access token without a database read and falls back to a refresh.
func (srv *sessionService) CurrentUser(ctx context.Context, accessToken, refreshToken string, client entity.ClientInfo) (*entity.SessionState, error) {
	if accessToken != "" {
		claims, err := srv.tokenService.ValidateToken(accessToken, service.TokenTypeAccess)
		if err == nil {
			return stateFromClaims(claims), nil
		}
		srv.log(ctx).Debug("Access token rejected", slog.Any("error", err))
	}

	if refreshToken == "" {
		return nil, nil
	}

	return srv.RefreshIfNeeded(ctx, refreshToken, client)
}

func stateFromClaims(claims *service.Claims) *entity.SessionState {
	role, ok := entity.ParseRole(claims.Role)
	if !ok {
		role = entity.RoleViewer
	}

	return &entity.SessionState{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	}
}

// RefreshIfNeeded makes one rotation attempt. The old refresh row is deleted and a new one
// inserted in the same transaction, with the role re-read from the roles table.
func (srv *sessionService) RefreshIfNeeded(ctx context.Context, refreshToken string, client entity.ClientInfo) (*entity.SessionState, error) {
	claims, err := srv.tokenService.ValidateToken(refreshToken, service.TokenTypeRefresh)
	if err != nil {
		srv.log(ctx).Debug("Refresh token rejected", slog.Any("error", err))
		srv.metrics.RecordSessionRefresh(refreshOutcomeRejected)

		return nil, nil
	}

	var state *entity.SessionState
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var rotateErr error
		state, rotateErr = srv.rotate(ctx, repoFactory, claims, refreshToken, client)

		return rotateErr
	})
	if err != nil {
		srv.log(ctx).Error("Session refresh failed", slog.String("userID", claims.Subject), slog.Any("error", err))
		srv.metrics.RecordSessionRefresh(refreshOutcomeError)

		return nil, errors.Wrap(err, "failed to execute session refresh transaction")
	}

	if state == nil {
		srv.metrics.RecordSessionRefresh(refreshOutcomeRejected)

		return nil, nil
	}

	srv.metrics.RecordSessionRefresh(refreshOutcomeRotated)
	srv.log(ctx).Debug("Session rotated", slog.String("userID", state.UserID), slog.Any("sessionID", state.Rotated.SessionID))

	return state, nil
}

// rotate returns a nil state for sessions that must end; the transaction still commits
// so rows of disabled or deleted users are removed.
func (srv *sessionService) rotate(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	claims *service.Claims,
	refreshToken string,
	client entity.ClientInfo,
) (*entity.SessionState, error) {
	refreshRepo := repoFactory.NewRefreshTokenRepository()

	record, err := refreshRepo.FindRefreshTokenByHash(ctx, srv.tokenService.HashToken(refreshToken))
	if errors.Is(err, repository.ErrRefreshTokenNotFound) {
		srv.log(ctx).Info("Refresh token not on record", slog.String("userID", claims.Subject))

		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find refresh token")
	}
	if record.UserID != claims.Subject {
		srv.log(ctx).Warn("Refresh token subject mismatch", slog.String("userID", claims.Subject))

		return nil, nil
	}

	user, err := repoFactory.NewUserRepository().FindByID(ctx, record.UserID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to find session user")
	}
	if user == nil || user.Disabled {
		srv.log(ctx).Info("Ending session of missing or disabled user", slog.String("userID", record.UserID))

		return nil, errors.Wrap(refreshRepo.DeleteRefreshToken(ctx, record.ID), "failed to delete refresh token")
	}

	stored, err := findStoredRole(ctx, repoFactory.NewRoleRepository(), user.ID)
	if err != nil {
		return nil, err
	}
	role := entity.ResolveRole(nil, stored)

	if err := refreshRepo.DeleteRefreshToken(ctx, record.ID); err != nil {
		return nil, errors.Wrap(err, "failed to delete rotated refresh token")
	}

	tokens, err := srv.tokenService.GenerateTokens(user, role, uuid.New())
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate session tokens")
	}
	if err := refreshRepo.CreateRefreshToken(ctx, srv.newRefreshRecord(user.ID, tokens, client)); err != nil {
		return nil, errors.Wrap(err, "failed to store rotated refresh token")
	}

	return &entity.SessionState{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    role,
		Rotated: tokens,
	}, nil
}

// DestroySession deletes the refresh row whether or not the token still verifies.
func (srv *sessionService) DestroySession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := srv.refreshTokenRepo.DeleteRefreshTokenByHash(ctx, srv.tokenService.HashToken(refreshToken)); err != nil {
		srv.log(ctx).Error("Failed to delete refresh token", slog.Any("error", err))

		return errors.Wrap(err, "failed to delete refresh token")
	}

	return nil
}

// ListSessions returns the user's unexpired sessions, oldest first.
func (srv *sessionService) ListSessions(ctx context.Context, userID string) ([]*entity.SessionInfo, error) {
	tokens, err := srv.refreshTokenRepo.FindRefreshTokensByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get active sessions")
	}

	sessions := make([]*entity.SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, &entity.SessionInfo{
			ID:        token.ID,
			UserAgent: token.UserAgent,
			IPAddress: token.IPAddress,
			CreatedAt: token.CreatedAt,
			ExpiresAt: token.ExpiresAt,
		})
	}

	return sessions, nil
}

// RevokeAllSessions signs the user out everywhere.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, userID string) error {
	if err := srv.refreshTokenRepo.DeleteRefreshTokensByUserID(ctx, userID); err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.String("userID", userID), slog.Any("error", err))

		return errors.Wrap(err, "failed to delete all refresh tokens")
	}
	srv.log(ctx).Info("Revoked all sessions", slog.String("userID", userID))

	return nil
}

func (srv *sessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := srv.refreshTokenRepo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired refresh tokens")
	}

	return deleted, nil
}

// findStoredRole returns nil when the roles table has no row for userID.
func findStoredRole(ctx context.Context, roleRepo repository.RoleRepository, userID string) (*entity.Role, error) {
	record, err := roleRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrRoleNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find stored role")
	}

	return &record.Role, nil
}
