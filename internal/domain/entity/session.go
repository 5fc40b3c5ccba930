package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionTokens is the pair of signed tokens that make up a cookie session.
type SessionTokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        uuid.UUID
}

// SessionState is the resolved identity of the caller for one request.
type SessionState struct {
	UserID string
	Email  string
	Name   string
	Role   Role
	// Rotated holds replacement tokens when the request refreshed its session.
	Rotated *SessionTokens
}

// SessionInfo describes one active session for listing.
type SessionInfo struct {
	ID        uuid.UUID
	UserAgent string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ClientInfo is request metadata recorded with a new session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}
