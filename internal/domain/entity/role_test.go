package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rolePtr(r Role) *Role {
	return &r
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		stored *Role
		want   Role
	}{
		{
			name:   "single role claim wins over everything",
			claims: map[string]any{"role": "editor", "roles": []any{"admin"}},
			stored: rolePtr(RoleAdmin),
			want:   RoleEditor,
		},
		{
			name:   "single role claim is normalised",
			claims: map[string]any{"role": " Admin "},
			want:   RoleAdmin,
		},
		{
			name:   "invalid single role falls through to array",
			claims: map[string]any{"role": "owner", "roles": []any{"viewer", "editor"}},
			want:   RoleEditor,
		},
		{
			name:   "highest array entry wins",
			claims: map[string]any{"roles": []any{"viewer", "admin", "editor"}},
			want:   RoleAdmin,
		},
		{
			name:   "string slice array is accepted",
			claims: map[string]any{"roles": []string{"viewer", "editor"}},
			want:   RoleEditor,
		},
		{
			name:   "admin beats admin_or_editor",
			claims: map[string]any{"roles": []any{"admin_or_editor", "admin"}},
			want:   RoleAdmin,
		},
		{
			name:   "stored role used when claims carry nothing",
			claims: map[string]any{"email": "a@example.com"},
			stored: rolePtr(RoleEditor),
			want:   RoleEditor,
		},
		{
			name:   "array of junk falls through to stored role",
			claims: map[string]any{"roles": []any{1, "superuser"}},
			stored: rolePtr(RoleAdminOrEditor),
			want:   RoleAdminOrEditor,
		},
		{
			name: "nil claims and no stored role default to viewer",
			want: RoleViewer,
		},
		{
			name:   "invalid stored role defaults to viewer",
			stored: rolePtr(Role("root")),
			want:   RoleViewer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.claims, tt.stored))
		})
	}
}

func TestRole_Permissions(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdmin())
	assert.True(t, RoleAdminOrEditor.IsAdmin())
	assert.False(t, RoleEditor.IsAdmin())
	assert.False(t, RoleViewer.IsAdmin())

	assert.True(t, RoleEditor.CanEdit())
	assert.True(t, RoleAdminOrEditor.CanEdit())
	assert.False(t, RoleViewer.CanEdit())
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("EDITOR")
	assert.True(t, ok)
	assert.Equal(t, RoleEditor, role)

	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestRolesFromStrings(t *testing.T) {
	roles := RolesFromStrings([]string{"viewer", "bogus", "admin"})
	assert.Equal(t, Roles{RoleViewer, RoleAdmin}, roles)
	assert.True(t, roles.Contains(RoleAdmin))
	assert.Equal(t, []string{"viewer", "admin"}, roles.ToStrings())

	_, ok := Roles{}.Highest()
	assert.False(t, ok)
}
