package impl

import (
	"context"
	"testing"
	"time"

	"sopmaker/internal/domain/entity"
	domainerrors "sopmaker/internal/domain/errors"
	"sopmaker/internal/domain/repository"
	"sopmaker/internal/domain/service"
	"sopmaker/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testClient = entity.ClientInfo{UserAgent: "test-agent", IPAddress: "203.0.113.7"}

func newTestTokens(refresh string) *entity.SessionTokens {
	now := time.Now()

	return &entity.SessionTokens{
		AccessToken:      "access-" + refresh,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		SessionID:        uuid.New(),
	}
}

func refreshClaims(subject string) *service.Claims {
	return &service.Claims{
		Type:             service.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

func TestSessionService_EstablishSession_StoresHashedRefreshToken(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	ctx := context.Background()
	user := &entity.User{ID: "uid-1", Email: "ana@example.com"}
	tokens := newTestTokens("refresh-1")

	deps.tokens.On("GenerateTokens", user, entity.RoleEditor, mock.AnythingOfType("uuid.UUID")).Return(tokens, nil)
	deps.refresh.On("CreateRefreshToken", mock.Anything, mock.MatchedBy(func(record *entity.RefreshToken) bool {
		return record.ID == tokens.SessionID &&
			record.UserID == "uid-1" &&
			record.TokenHash == "hash:refresh-1" &&
			record.UserAgent == "test-agent" &&
			record.ExpiresAt.Equal(tokens.RefreshExpiresAt)
	})).Return(nil)

	got, err := srv.EstablishSession(ctx, user, entity.RoleEditor, testClient)

	require.NoError(t, err)
	assert.Equal(t, tokens, got)
	assert.Equal(t, 1, deps.tx.Calls)
}

func TestSessionService_EstablishSession_EvictsOldestOverLimit(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(2))

	ctx := context.Background()
	user := &entity.User{ID: "uid-1"}
	oldest := &entity.RefreshToken{ID: uuid.New(), UserID: "uid-1"}
	newer := &entity.RefreshToken{ID: uuid.New(), UserID: "uid-1"}

	deps.tokens.On("GenerateTokens", user, entity.RoleViewer, mock.Anything).Return(newTestTokens("refresh-2"), nil)
	deps.refresh.On("FindRefreshTokensByUserID", mock.Anything, "uid-1").Return([]*entity.RefreshToken{oldest, newer}, nil)
	deps.refresh.On("DeleteRefreshToken", mock.Anything, oldest.ID).Return(nil).Once()
	deps.refresh.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	_, err := srv.EstablishSession(ctx, user, entity.RoleViewer, testClient)

	require.NoError(t, err)
	deps.refresh.AssertNotCalled(t, "DeleteRefreshToken", mock.Anything, newer.ID)
}

func TestSessionService_EstablishSession_WriteFailure(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	user := &entity.User{ID: "uid-1"}
	deps.tokens.On("GenerateTokens", user, entity.RoleViewer, mock.Anything).Return(newTestTokens("refresh-3"), nil)
	deps.refresh.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	tokens, err := srv.EstablishSession(context.Background(), user, entity.RoleViewer, testClient)

	require.Error(t, err)
	assert.Nil(t, tokens)
	writeErr, ok := errors.AsType[*domainerrors.SessionWriteError](err)
	require.True(t, ok)
	assert.Contains(t, writeErr.Error(), "connection reset")
}

func TestSessionService_CurrentUser_ValidAccessTokenSkipsStore(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.tokens.On("ValidateToken", "access", service.TokenTypeAccess).Return(&service.Claims{
		Email:            "ana@example.com",
		Role:             "admin",
		Type:             service.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1"},
	}, nil)

	state, err := srv.CurrentUser(context.Background(), "access", "refresh", testClient)

	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "uid-1", state.UserID)
	assert.Equal(t, entity.RoleAdmin, state.Role)
	assert.Nil(t, state.Rotated)
	assert.Equal(t, 0, deps.tx.Calls)
}

func TestSessionService_CurrentUser_UnknownRoleClaimIsViewer(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.tokens.On("ValidateToken", "access", service.TokenTypeAccess).Return(&service.Claims{
		Role:             "superuser",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1"},
	}, nil)

	state, err := srv.CurrentUser(context.Background(), "access", "", testClient)

	require.NoError(t, err)
	assert.Equal(t, entity.RoleViewer, state.Role)
}

func TestSessionService_CurrentUser_NoUsableTokens(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.tokens.On("ValidateToken", "expired", service.TokenTypeAccess).Return(nil, errors.New("token is expired"))

	state, err := srv.CurrentUser(context.Background(), "expired", "", testClient)
	require.NoError(t, err)
	assert.Nil(t, state)

	state, err = srv.CurrentUser(context.Background(), "", "", testClient)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSessionService_CurrentUser_FallsBackToRefresh(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	user := &entity.User{ID: "uid-1", Email: "ana@example.com", Name: "Ana"}
	record := &entity.RefreshToken{ID: uuid.New(), UserID: "uid-1"}
	rotated := newTestTokens("refresh-new")

	deps.tokens.On("ValidateToken", "expired", service.TokenTypeAccess).Return(nil, errors.New("token is expired"))
	deps.tokens.On("ValidateToken", "refresh-old", service.TokenTypeRefresh).Return(refreshClaims("uid-1"), nil)
	deps.refresh.On("FindRefreshTokenByHash", mock.Anything, "hash:refresh-old").Return(record, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(&entity.UserRole{UserID: "uid-1", Role: entity.RoleEditor}, nil)
	deps.refresh.On("DeleteRefreshToken", mock.Anything, record.ID).Return(nil)
	deps.tokens.On("GenerateTokens", user, entity.RoleEditor, mock.Anything).Return(rotated, nil)
	deps.refresh.On("CreateRefreshToken", mock.Anything, mock.MatchedBy(func(r *entity.RefreshToken) bool {
		return r.TokenHash == "hash:refresh-new" && r.ID == rotated.SessionID
	})).Return(nil)

	state, err := srv.CurrentUser(context.Background(), "expired", "refresh-old", testClient)

	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "Ana", state.Name)
	assert.Equal(t, entity.RoleEditor, state.Role)
	assert.Equal(t, rotated, state.Rotated)
	assert.Equal(t, 1, deps.metrics.Count("refresh:rotated"))
}

func TestSessionService_RefreshIfNeeded_MissingRoleRowIsViewer(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	user := &entity.User{ID: "uid-1"}
	record := &entity.RefreshToken{ID: uuid.New(), UserID: "uid-1"}

	deps.tokens.On("ValidateToken", "r", service.TokenTypeRefresh).Return(refreshClaims("uid-1"), nil)
	deps.refresh.On("FindRefreshTokenByHash", mock.Anything, "hash:r").Return(record, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(user, nil)
	deps.roles.On("FindByUserID", mock.Anything, "uid-1").Return(nil, repository.ErrRoleNotFound)
	deps.refresh.On("DeleteRefreshToken", mock.Anything, record.ID).Return(nil)
	deps.tokens.On("GenerateTokens", user, entity.RoleViewer, mock.Anything).Return(newTestTokens("r2"), nil)
	deps.refresh.On("CreateRefreshToken", mock.Anything, mock.Anything).Return(nil)

	state, err := srv.RefreshIfNeeded(context.Background(), "r", testClient)

	require.NoError(t, err)
	assert.Equal(t, entity.RoleViewer, state.Role)
}

func TestSessionService_RefreshIfNeeded_RejectsBadSignature(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.tokens.On("ValidateToken", "forged", service.TokenTypeRefresh).Return(nil, errors.New("signature is invalid"))

	state, err := srv.RefreshIfNeeded(context.Background(), "forged", testClient)

	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, 0, deps.tx.Calls)
	assert.Equal(t, 1, deps.metrics.Count("refresh:rejected"))
}

func TestSessionService_RefreshIfNeeded_UnknownToken(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.tokens.On("ValidateToken", "revoked", service.TokenTypeRefresh).Return(refreshClaims("uid-1"), nil)
	deps.refresh.On("FindRefreshTokenByHash", mock.Anything, "hash:revoked").Return(nil, repository.ErrRefreshTokenNotFound)

	state, err := srv.RefreshIfNeeded(context.Background(), "revoked", testClient)

	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, 1, deps.metrics.Count("refresh:rejected"))
}

func TestSessionService_RefreshIfNeeded_DisabledUserEndsSession(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	record := &entity.RefreshToken{ID: uuid.New(), UserID: "uid-1"}

	deps.tokens.On("ValidateToken", "r", service.TokenTypeRefresh).Return(refreshClaims("uid-1"), nil)
	deps.refresh.On("FindRefreshTokenByHash", mock.Anything, "hash:r").Return(record, nil)
	deps.users.On("FindByID", mock.Anything, "uid-1").Return(&entity.User{ID: "uid-1", Disabled: true}, nil)
	deps.refresh.On("DeleteRefreshToken", mock.Anything, record.ID).Return(nil)

	state, err := srv.RefreshIfNeeded(context.Background(), "r", testClient)

	require.NoError(t, err)
	assert.Nil(t, state)
	deps.tokens.AssertNotCalled(t, "GenerateTokens", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_RefreshIfNeeded_StoreFailureIsReturned(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.tokens.On("ValidateToken", "r", service.TokenTypeRefresh).Return(refreshClaims("uid-1"), nil)
	deps.refresh.On("FindRefreshTokenByHash", mock.Anything, "hash:r").Return(nil, errors.New("database unavailable"))

	state, err := srv.RefreshIfNeeded(context.Background(), "r", testClient)

	require.Error(t, err)
	assert.Nil(t, state)
	assert.Equal(t, 1, deps.metrics.Count("refresh:error"))
}

func TestSessionService_DestroySession(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	require.NoError(t, srv.DestroySession(context.Background(), ""))

	deps.refresh.On("DeleteRefreshTokenByHash", mock.Anything, "hash:r").Return(nil)
	require.NoError(t, srv.DestroySession(context.Background(), "r"))
}

func TestSessionService_ListSessions(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	token := &entity.RefreshToken{ID: uuid.New(), UserID: "uid-1", UserAgent: "firefox", IPAddress: "198.51.100.1"}
	deps.refresh.On("FindRefreshTokensByUserID", mock.Anything, "uid-1").Return([]*entity.RefreshToken{token}, nil)

	sessions, err := srv.ListSessions(context.Background(), "uid-1")

	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, token.ID, sessions[0].ID)
	assert.Equal(t, "firefox", sessions[0].UserAgent)
}

func TestSessionService_CleanupExpiredSessions_Error(t *testing.T) {
	deps := newServiceDeps(t)
	srv := deps.sessionService(newTestConfig(0))

	deps.refresh.On("DeleteExpiredRefreshTokens", mock.Anything).Return(int64(0), errors.New("database connection failed"))

	_, err := srv.CleanupExpiredSessions(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete expired refresh tokens")
}
