package auth

import (
	"testing"
	"time"

	"sopmaker/config"
	"sopmaker/internal/domain/entity"
	"sopmaker/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SecretKey.Access = "test_access_secret_key_very_long_for_testing"
	cfg.SecretKey.Refresh = "test_refresh_secret_key_very_long_for_testing"

	return cfg
}

func TestJWTService_GenerateAndValidateTokens(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	user := &entity.User{ID: "firebase-uid-1", Email: "ana@example.com"}
	sessionID := uuid.New()

	tokens, err := jwtService.GenerateTokens(user, entity.RoleEditor, sessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, sessionID, tokens.SessionID)
	assert.True(t, tokens.RefreshExpiresAt.After(tokens.AccessExpiresAt))

	accessClaims, err := jwtService.ValidateToken(tokens.AccessToken, service.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, accessClaims.Subject)
	assert.Equal(t, user.Email, accessClaims.Email)
	assert.Equal(t, "editor", accessClaims.Role)
	assert.Equal(t, service.TokenTypeAccess, accessClaims.Type)

	refreshClaims, err := jwtService.ValidateToken(tokens.RefreshToken, service.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshClaims.Subject)
	assert.Equal(t, sessionID.String(), refreshClaims.ID)
	assert.Empty(t, refreshClaims.Role)
}

func TestJWTService_RejectsWrongType(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	tokens, err := jwtService.GenerateTokens(&entity.User{ID: "u1"}, entity.RoleViewer, uuid.New())
	require.NoError(t, err)

	// Signed with the refresh secret, so the access secret cannot verify it.
	_, err = jwtService.ValidateToken(tokens.RefreshToken, service.TokenTypeAccess)
	assert.Error(t, err)

	_, err = jwtService.ValidateToken(tokens.AccessToken, service.TokenTypeRefresh)
	assert.Error(t, err)
}

func TestJWTService_RejectsSameSecretForBothTypes(t *testing.T) {
	cfg := newTestConfig()
	cfg.SecretKey.Refresh = cfg.SecretKey.Access

	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestJWTService_TypeClaimChecked(t *testing.T) {
	cfg := newTestConfig()
	svc := &jwtService{
		accessSecret:  cfg.SecretKey.Access,
		refreshSecret: cfg.SecretKey.Refresh,
		accessTTL:     time.Minute,
		refreshTTL:    time.Hour,
		now:           time.Now,
	}

	forged, err := svc.sign(&service.Claims{
		Type: service.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}, cfg.SecretKey.Access)
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged, service.TokenTypeAccess)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	cfg := newTestConfig()
	cfg.Session.AccessTTL = -time.Minute

	jwtService, err := NewJWTService(cfg)
	require.NoError(t, err)
	assert.Equal(t, -time.Minute, jwtService.GetAccessTokenDuration())
	assert.Equal(t, defaultRefreshTTL, jwtService.GetRefreshTokenDuration())

	tokens, err := jwtService.GenerateTokens(&entity.User{ID: "u1"}, entity.RoleViewer, uuid.New())
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(tokens.AccessToken, service.TokenTypeAccess)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_InvalidToken(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken("clearly-not-a-jwt-token-format", service.TokenTypeAccess)
	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.Contains(t, err.Error(), "failed to parse token structure")
}

func TestJWTService_MissingSecrets(t *testing.T) {
	_, err := NewJWTService(&config.Config{})
	assert.Error(t, err)
}

func TestJWTService_HashToken(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	first := jwtService.HashToken("refresh-token")
	assert.Len(t, first, 64)
	assert.Equal(t, first, jwtService.HashToken("refresh-token"))
	assert.NotEqual(t, first, jwtService.HashToken("other-token"))
}
