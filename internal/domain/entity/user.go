// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"
)

// User is an account in the session store.
// ID is the identity provider subject for federated users and a generated UUID
// for password-only accounts, so both share one column.
type User struct {
	ID        string    // Subject identifier shared with the identity provider.
	Email     string    // Primary contact email, also the password login identifier.
	Name      string    // Display name.
	AvatarURL string    // Profile picture, copied from the identity provider on creation.
	Disabled  bool      // Disabled accounts cannot establish new sessions.
	CreatedAt time.Time // Timestamp of when this user account was created.
	UpdatedAt time.Time // Timestamp of the last modification to this user's data.
}

// UserRole is a row of the session store's roles table.
type UserRole struct {
	UserID    string
	Role      Role
	UpdatedAt time.Time
}

// UserWithRole pairs a user with the role stored for them.
type UserWithRole struct {
	User *User
	Role Role
}
