// Package service holds the ports the usecases call out through: identity
// provider, token issuing, event publishing, metrics and credential hashing.
package service

// PasswordHasher hashes the passwords of session-store accounts created by
// sign-up. Identity-provider accounts never reach it.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Check reports whether password matches hash. A malformed hash is a mismatch.
	Check(password, hash string) bool
}
