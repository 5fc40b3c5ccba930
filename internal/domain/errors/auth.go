package errors

import (
	"fmt"
	"net/http"
	"strings"

	"sopmaker/internal/domain/entity"
)

// TokenErrorKind classifies why an identity token was rejected.
type TokenErrorKind int

const (
	TokenInvalid TokenErrorKind = iota + 1
	TokenExpired
	TokenRevoked
	ProviderUnavailable
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenInvalid:
		return "invalid"
	case TokenExpired:
		return "expired"
	case TokenRevoked:
		return "revoked"
	case ProviderUnavailable:
		return "provider_unavailable"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against a *TokenError.
// A revoked token also matches ErrInvalidToken.
var (
	ErrInvalidToken        = &TokenError{Kind: TokenInvalid}
	ErrExpiredToken        = &TokenError{Kind: TokenExpired}
	ErrRevokedToken        = &TokenError{Kind: TokenRevoked}
	ErrProviderUnavailable = &TokenError{Kind: ProviderUnavailable}
)

// TokenError is returned by the token verifier.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

// NewTokenError wraps cause with the given kind.
func NewTokenError(kind TokenErrorKind, cause error) *TokenError {
	return &TokenError{Kind: kind, Err: cause}
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}

	return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	if !ok {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}

	return e.Kind == TokenRevoked && t.Kind == TokenInvalid
}

// HTTPCode returns the HTTP status code
func (e *TokenError) HTTPCode() int {
	if e.Kind == ProviderUnavailable {
		return http.StatusServiceUnavailable
	}

	return http.StatusUnauthorized
}

// ErrorCode returns the business error code
func (e *TokenError) ErrorCode() string {
	switch e.Kind {
	case TokenExpired:
		return "TOKEN_EXPIRED"
	case ProviderUnavailable:
		return "PROVIDER_UNAVAILABLE"
	default:
		return "INVALID_TOKEN"
	}
}

// Message returns the user-friendly error message
func (e *TokenError) Message() string {
	switch e.Kind {
	case TokenExpired:
		return "Token has expired"
	case ProviderUnavailable:
		return "Identity provider is unavailable"
	default:
		return "Invalid token"
	}
}

// Details returns detailed error information
func (e *TokenError) Details() string {
	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}

// ConfigurationError reports a missing or unusable setting.
type ConfigurationError struct {
	Setting string
	Reason  string
}

// NewConfigurationError creates a configuration error for setting.
func NewConfigurationError(setting, reason string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// HTTPCode returns the HTTP status code
func (e *ConfigurationError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *ConfigurationError) ErrorCode() string {
	return "CONFIGURATION_ERROR"
}

// Message returns the user-friendly error message
func (e *ConfigurationError) Message() string {
	return "Authentication is not configured"
}

// Details returns detailed error information
func (e *ConfigurationError) Details() string {
	return e.Setting + ": " + e.Reason
}

// SessionWriteError means the session store refused to persist a session.
type SessionWriteError struct {
	Err error
}

func (e *SessionWriteError) Error() string {
	return "session write failed: " + e.Err.Error()
}

func (e *SessionWriteError) Unwrap() error {
	return e.Err
}

// HTTPCode returns the HTTP status code
func (e *SessionWriteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *SessionWriteError) ErrorCode() string {
	return "SESSION_WRITE_FAILED"
}

// Message returns the user-friendly error message
func (e *SessionWriteError) Message() string {
	return "Failed to create session"
}

// Details returns detailed error information
func (e *SessionWriteError) Details() string {
	return e.Err.Error()
}

// RoleSyncError reports the outcome per store. Skipped stores were never
// attempted because an earlier store failed.
type RoleSyncError struct {
	UserID    string
	Role      entity.Role
	Partial   bool
	Succeeded []entity.Store
	Failed    []entity.Store
	Skipped   []entity.Store
	Err       error
}

func (e *RoleSyncError) Error() string {
	failed := make([]string, len(e.Failed))
	for i, s := range e.Failed {
		failed[i] = string(s)
	}

	return fmt.Sprintf("role sync for %s failed on [%s]: %v", e.UserID, strings.Join(failed, ","), e.Err)
}

func (e *RoleSyncError) Unwrap() error {
	return e.Err
}

// HTTPCode returns the HTTP status code
func (e *RoleSyncError) HTTPCode() int {
	return http.StatusBadGateway
}

// ErrorCode returns the business error code
func (e *RoleSyncError) ErrorCode() string {
	if e.Partial {
		return "ROLE_SYNC_PARTIAL"
	}

	return "ROLE_SYNC_FAILED"
}

// Message returns the user-friendly error message
func (e *RoleSyncError) Message() string {
	if e.Partial {
		return "Role was only partially synchronized"
	}

	return "Role synchronization failed"
}

// Details returns detailed error information
func (e *RoleSyncError) Details() string {
	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}
