package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthenticationModel is one sign-in method of a user: an email/password
// credential or a linked identity provider subject.
type AuthenticationModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         string    `gorm:"type:varchar(128);not null;index"`
	Provider       string    `gorm:"type:varchar(50);not null;check:chk_auth_provider,provider IN ('email','firebase');uniqueIndex:idx_auth_provider_subject"`
	ProviderUserID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_auth_provider_subject"`
	PasswordHash   string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time
}

func (AuthenticationModel) TableName() string {
	return "user_authentications"
}

// RefreshTokenModel is a session-store session. Only the sha256 of the opaque
// refresh token is stored; listing and cleanup filter on (user_id, expires_at).
type RefreshTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:varchar(128);not null;index:idx_refresh_user_expiry,priority:1"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex;not null"`
	UserAgent string    `gorm:"type:varchar(512)"`
	IPAddress string    `gorm:"type:varchar(64)"`
	ExpiresAt time.Time `gorm:"not null;index;index:idx_refresh_user_expiry,priority:2"`
	CreatedAt time.Time
}

func (RefreshTokenModel) TableName() string {
	return "refresh_tokens"
}
