package service

import (
	"time"

	"sopmaker/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims defines the custom claims for the session JWTs.
// Subject holds the user id and ID the session id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for generating and validating session JWTs.
type TokenService interface {
	// GenerateTokens creates an access token and a refresh token for a user.
	// sessionID becomes the refresh token's jti.
	GenerateTokens(user *entity.User, role entity.Role, sessionID uuid.UUID) (*entity.SessionTokens, error)

	// ValidateToken checks signature, expiry and that the token has the expected type.
	ValidateToken(tokenString, tokenType string) (*Claims, error)

	// HashToken returns the digest stored in place of a refresh token.
	HashToken(token string) string

	// GetAccessTokenDuration returns the configured access token lifetime.
	GetAccessTokenDuration() time.Duration

	// GetRefreshTokenDuration returns the configured duration for refresh tokens.
	GetRefreshTokenDuration() time.Duration
}
