package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsComplete(t *testing.T) {
	roles := AllRoles()
	require.Len(t, roles, 14)
	assert.Equal(t, RoleSuperAdmin, roles[0])
	assert.Equal(t, RoleUser, roles[len(roles)-1])

	for i, role := range roles {
		label, err := LabelOf(role)
		require.NoError(t, err, role)
		assert.NotEmpty(t, label)

		badge, err := BadgeOf(role)
		require.NoError(t, err, role)
		assert.NotEmpty(t, badge)

		priority, err := PriorityOf(role)
		require.NoError(t, err, role)
		assert.Equal(t, i, priority, "catalog order follows priority")

		_, err = DefaultRouteFor(role)
		assert.NoError(t, err, role)
	}
}

func TestLabelOfUnknownRole(t *testing.T) {
	_, err := LabelOf(Role("janitor"))
	assert.True(t, errors.Is(err, ErrUnknownRole))

	_, err = PriorityOf(Role("janitor"))
	assert.True(t, errors.Is(err, ErrUnknownRole))

	_, err = BadgeOf(Role(""))
	assert.True(t, errors.Is(err, ErrUnknownRole))
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "SEO Manager", DisplayLabel("seo_manager"))
	assert.Equal(t, "Super Admin", DisplayLabel(" Super_Admin "))
	assert.Equal(t, "Tour Guide", DisplayLabel("tour_guide"))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  Moderator ")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, role)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseRolesIgnoresUnknown(t *testing.T) {
	set, ignored := ParseRoles([]string{"author", "wizard", "AUTHOR", "reviewer"})
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(RoleAuthor))
	assert.True(t, set.Has(RoleReviewer))
	assert.Equal(t, []string{"wizard"}, ignored)
}

func TestRoleSet(t *testing.T) {
	set := NewRoleSet(RoleUser, RoleModerator, Role("ghost"), RoleAdmin)
	assert.Equal(t, 3, set.Len())
	assert.False(t, set.Has(Role("ghost")))
	assert.Equal(t, []Role{RoleAdmin, RoleModerator, RoleUser}, set.Slice())
	assert.Equal(t, []string{"admin", "moderator", "user"}, set.Strings())

	assert.True(t, set.Intersects(NewRoleSet(RoleModerator)))
	assert.False(t, set.Intersects(NewRoleSet(RoleAuthor, RoleDeveloper)))
	assert.False(t, set.Intersects(NewRoleSet()))
	assert.True(t, NewRoleSet().Empty())

	var zero RoleSet
	assert.True(t, zero.Empty())
	assert.False(t, zero.Has(RoleAdmin))
}

func TestEveryDefaultRouteAdmitsItsRole(t *testing.T) {
	for _, role := range AllRoles() {
		if role == RoleUser || IsAdmin(NewRoleSet(role)) {
			continue
		}
		route, err := DefaultRouteFor(role)
		require.NoError(t, err)
		assert.True(t, DefaultSections.RolesAllowed(route).Has(role), "%s landing on %s", role, route)
	}
}
