// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
	"strings"
)

// Role is the coarse permission label attached to a user.
type Role string

const (
	// RoleAdmin grants full access, including the admin area.
	RoleAdmin Role = "admin"
	// RoleEditor may create and modify SOPs.
	RoleEditor Role = "editor"
	// RoleViewer may only read.
	RoleViewer Role = "viewer"
	// RoleAdminOrEditor is a composite label that is granted admin-equivalent access.
	RoleAdminOrEditor Role = "admin_or_editor"
)

// Custom claim keys the identity provider carries role information in.
const (
	ClaimRole  = "role"
	ClaimRoles = "roles"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer, RoleAdminOrEditor:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role passes admin-only checks.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleAdminOrEditor
}

// CanEdit reports whether the role may author SOPs.
func (r Role) CanEdit() bool {
	return r == RoleEditor || r.IsAdmin()
}

// rank orders roles for "highest wins" resolution.
// admin_or_editor sits just below admin so a plain admin entry wins a tie.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 4
	case RoleAdminOrEditor:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// ParseRole normalises s and returns the matching Role.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", false
	}

	return role, true
}

// Roles is a slice of Role for convenience.
type Roles []Role

// Contains checks if the roles slice contains a specific role.
func (rs Roles) Contains(role Role) bool {
	return slices.Contains(rs, role)
}

// Highest returns the highest ranked role in the slice.
func (rs Roles) Highest() (Role, bool) {
	var best Role
	for _, r := range rs {
		if r.rank() > best.rank() {
			best = r
		}
	}

	return best, best != ""
}

// ToStrings converts Roles to []string.
func (rs Roles) ToStrings() []string {
	result := make([]string, len(rs))
	for i, r := range rs {
		result[i] = r.String()
	}

	return result
}

// RolesFromStrings converts []string to Roles, filtering out invalid role strings.
func RolesFromStrings(ss []string) Roles {
	result := make(Roles, 0, len(ss))
	for _, s := range ss {
		if role, ok := ParseRole(s); ok {
			result = append(result, role)
		}
	}

	return result
}

// ResolveRole decides the effective role from the identity provider's custom
// claims and the role stored in the session store's roles table.
//
// Order: the single "role" claim, then the highest entry of the "roles" claim,
// then the stored role, then viewer.
func ResolveRole(claims map[string]any, stored *Role) Role {
	if raw, ok := claims[ClaimRole].(string); ok {
		if role, ok := ParseRole(raw); ok {
			return role
		}
	}

	if role, ok := RolesFromStrings(claimStrings(claims[ClaimRoles])).Highest(); ok {
		return role
	}

	if stored != nil && stored.IsValid() {
		return *stored
	}

	return RoleViewer
}

// claimStrings accepts the shapes a decoded JSON array can take.
func claimStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
