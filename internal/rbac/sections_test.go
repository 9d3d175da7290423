package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolesAllowedLongestPrefix(t *testing.T) {
	cases := []struct {
		path    string
		role    Role
		allowed bool
	}{
		{"/admin/community-submissions", RoleModerator, true},
		{"/admin/community-submissions/42/approve", RoleModerator, true},
		{"/admin/community-submissions/", RoleModerator, true},
		{"/admin/stories", RoleAuthor, true},
		{"/admin/storiesX", RoleAuthor, false},
		{"/admin/site-settings", RoleModerator, false},
		{"/admin", RoleModerator, false},
		{"/admin/analytics/traffic", RoleSEOManager, true},
		{"/admin/seo", RoleAnalyticsViewer, false},
		{"/admin/../admin/media", RoleMediaManager, true},
		{"admin/media", RoleMediaManager, true},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.allowed, DefaultSections.RolesAllowed(tc.path).Has(tc.role))
		})
	}
}

func TestRolesAllowedUnknownPath(t *testing.T) {
	assert.True(t, DefaultSections.RolesAllowed("/somewhere").Empty())
	assert.False(t, DefaultSections.Covers("/"))
	assert.False(t, DefaultSections.Covers("/login"))
	assert.True(t, DefaultSections.Covers("/admin/anything-undefined-in-table"))
}

func TestLookupPrefersLongestPrefix(t *testing.T) {
	table := NewSections(
		Section{Prefix: "/admin", Name: "root"},
		Section{Prefix: "/admin/a", Name: "a", Allowed: NewRoleSet(RoleAuthor)},
		Section{Prefix: "/admin/a/b", Name: "b", Allowed: NewRoleSet(RoleEditor)},
	)
	section, ok := table.Lookup("/admin/a/b/c")
	assert.True(t, ok)
	assert.Equal(t, "b", section.Name)

	section, ok = table.Lookup("/admin/a/x")
	assert.True(t, ok)
	assert.Equal(t, "a", section.Name)

	section, ok = table.Lookup("/admin/z")
	assert.True(t, ok)
	assert.Equal(t, "root", section.Name)
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "/", CleanPath(""))
	assert.Equal(t, "/admin", CleanPath("/admin/"))
	assert.Equal(t, "/admin/x", CleanPath("admin//x"))
}
