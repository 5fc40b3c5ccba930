package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"sopmaker/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestTokenError_Is(t *testing.T) {
	cause := stderrors.New("signature mismatch")
	err := fmt.Errorf("verify: %w", NewTokenError(TokenInvalid, cause))

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrExpiredToken)
	assert.ErrorIs(t, err, cause)

	revoked := NewTokenError(TokenRevoked, nil)
	assert.ErrorIs(t, revoked, ErrInvalidToken)
	assert.ErrorIs(t, revoked, ErrRevokedToken)

	assert.ErrorIs(t, NewTokenError(ProviderUnavailable, cause), ErrProviderUnavailable)
}

func TestTokenError_HTTPMapping(t *testing.T) {
	tests := []struct {
		kind TokenErrorKind
		code int
		name string
	}{
		{TokenInvalid, http.StatusUnauthorized, "INVALID_TOKEN"},
		{TokenRevoked, http.StatusUnauthorized, "INVALID_TOKEN"},
		{TokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{ProviderUnavailable, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := NewTokenError(tt.kind, nil)
			assert.Equal(t, tt.code, err.HTTPCode())
			assert.Equal(t, tt.name, err.ErrorCode())
		})
	}
}

func TestRoleSyncError(t *testing.T) {
	err := &RoleSyncError{
		UserID:    "uid-1",
		Role:      entity.RoleEditor,
		Partial:   true,
		Succeeded: []entity.Store{entity.StoreIdentityProvider},
		Failed:    []entity.Store{entity.StoreSessionStore},
		Err:       stderrors.New("db down"),
	}

	assert.Equal(t, http.StatusBadGateway, err.HTTPCode())
	assert.Equal(t, "ROLE_SYNC_PARTIAL", err.ErrorCode())
	assert.Contains(t, err.Error(), "session_store")

	var appErr AppError = err
	assert.Equal(t, "db down", appErr.Details())
}

func TestBaseError_IsMatchesWithDetails(t *testing.T) {
	err := ErrUserNotFound.WithDetails("uid-9")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, ErrSOPNotFound)
}
