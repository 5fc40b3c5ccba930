package entity

import (
	"time"

	"github.com/google/uuid"
)

// Authentication providers recorded in user_authentications.
const (
	ProviderFirebase = "firebase"
	ProviderEmail    = "email"
)

// Authentication represents a single method of logging in (a credential).
// An email/password pair is one record, a linked identity provider account is another.
type Authentication struct {
	ID             uuid.UUID // The unique ID for this authentication record.
	UserID         string    // The user this credential belongs to.
	Provider       string    // "email" or "firebase".
	ProviderUserID string    // Email address or identity provider subject.
	PasswordHash   string    // bcrypt hash, only set when Provider is "email".
	CreatedAt      time.Time
}

// RefreshToken represents a long-lived, authorized user session.
type RefreshToken struct {
	ID        uuid.UUID // Also carried as the jti of the signed refresh token.
	UserID    string
	TokenHash string // SHA-256 of the raw refresh token.
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
