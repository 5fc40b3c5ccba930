package entity

import "strings"

// Store names one side of the dual-provider setup.
type Store string

const (
	StoreIdentityProvider Store = "identity_provider"
	StoreSessionStore     Store = "session_store"
)

// SyncDirection says which store a role is propagated to.
type SyncDirection string

const (
	SyncToIdentityProvider SyncDirection = "to-identity-provider"
	SyncToSessionStore     SyncDirection = "to-session-store"
	SyncBoth               SyncDirection = "both"
)

// ParseSyncDirection accepts the canonical names and the legacy
// "supabase-to-firebase" / "firebase-to-supabase" aliases.
func ParseSyncDirection(s string) (SyncDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SyncToIdentityProvider), "supabase-to-firebase":
		return SyncToIdentityProvider, true
	case string(SyncToSessionStore), "firebase-to-supabase":
		return SyncToSessionStore, true
	case string(SyncBoth):
		return SyncBoth, true
	default:
		return "", false
	}
}

// Targets lists the stores in the order they are written.
func (d SyncDirection) Targets() []Store {
	switch d {
	case SyncToIdentityProvider:
		return []Store{StoreIdentityProvider}
	case SyncToSessionStore:
		return []Store{StoreSessionStore}
	case SyncBoth:
		return []Store{StoreIdentityProvider, StoreSessionStore}
	default:
		return nil
	}
}

// Includes reports whether the direction writes to store.
func (d SyncDirection) Includes(store Store) bool {
	for _, s := range d.Targets() {
		if s == store {
			return true
		}
	}

	return false
}

// RoleSyncResult is the outcome of a successful synchronization.
type RoleSyncResult struct {
	UserID    string
	Role      Role
	Direction SyncDirection
	Updated   []Store
}
