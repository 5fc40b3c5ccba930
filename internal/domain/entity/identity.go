package entity

import "time"

// IdentityClaims is the verified content of an identity provider ID token.
type IdentityClaims struct {
	Subject       string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Custom        map[string]any // Every claim in the token, custom ones included.
}

// IdentityUser is the identity provider's record of a user.
type IdentityUser struct {
	Subject      string
	Email        string
	Name         string
	PhotoURL     string
	Disabled     bool
	CustomClaims map[string]any
}
