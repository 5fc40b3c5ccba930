// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"sopmaker/internal/domain/entity"
)

// SessionUsecase manages the cookie sessions backed by the session store.
type SessionUsecase interface {
	// EstablishSession issues a token pair and records the refresh token.
	// Storage failures are returned as *errors.SessionWriteError.
	EstablishSession(ctx context.Context, user *entity.User, role entity.Role, client entity.ClientInfo) (*entity.SessionTokens, error)

	// CurrentUser resolves the caller from the cookie tokens. A nil state means unauthenticated.
	CurrentUser(ctx context.Context, accessToken, refreshToken string, client entity.ClientInfo) (*entity.SessionState, error)

	// RefreshIfNeeded rotates the refresh token and returns the new pair in SessionState.Rotated.
	// Rejected tokens yield a nil state; only storage failures are returned as errors.
	RefreshIfNeeded(ctx context.Context, refreshToken string, client entity.ClientInfo) (*entity.SessionState, error)

	// DestroySession forgets the refresh token. Unknown tokens are not an error.
	DestroySession(ctx context.Context, refreshToken string) error

	ListSessions(ctx context.Context, userID string) ([]*entity.SessionInfo, error)
	RevokeAllSessions(ctx context.Context, userID string) error

	// CleanupExpiredSessions deletes refresh tokens past their expiry.
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
