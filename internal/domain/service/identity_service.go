package service

import (
	"context"

	"sopmaker/internal/domain/entity"
)

// IdentityVerifier checks ID tokens issued by the external identity provider.
type IdentityVerifier interface {
	// VerifyIDToken validates signature, issuer, audience and expiry.
	// Failures are *errors.TokenError or *errors.ConfigurationError; it never retries.
	VerifyIDToken(ctx context.Context, idToken string) (*entity.IdentityClaims, error)
}

// IdentityAdmin reads and writes user records in the identity provider.
type IdentityAdmin interface {
	// GetUser returns errors.ErrIdentityUserNotFound for unknown subjects.
	GetUser(ctx context.Context, subjectID string) (*entity.IdentityUser, error)

	// SetCustomClaims replaces the user's custom claims. Callers merge first.
	SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error
}
