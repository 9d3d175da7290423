package rbac

import "fmt"

var defaultRoutes = map[Role]string{
	RoleSuperAdmin:      "/admin",
	RoleAdmin:           "/admin",
	RoleContentManager:  "/admin/content-sections",
	RoleContentEditor:   "/admin/content-sections",
	RoleEditor:          "/admin/content-sections",
	RoleModerator:       "/admin/community-submissions",
	RoleReviewer:        "/admin/community-submissions",
	RoleAuthor:          "/admin/stories",
	RoleMediaManager:    "/admin/media",
	RoleSEOManager:      "/admin/seo",
	RoleSupportAgent:    "/admin/support",
	RoleDeveloper:       "/admin/developer",
	RoleAnalyticsViewer: "/admin/analytics",
	RoleUser:            "/",
}

// IsSuperAdmin reports whether roles contains super_admin.
func IsSuperAdmin(roles RoleSet) bool {
	return roles.Has(RoleSuperAdmin)
}

// IsAdmin reports whether roles bypass the section table.
func IsAdmin(roles RoleSet) bool {
	return roles.Has(RoleSuperAdmin) || roles.Has(RoleAdmin)
}

// HasAdminPanelAccess reports whether roles reach at least one admin section.
func HasAdminPanelAccess(roles RoleSet) bool {
	return HasAdminPanelAccessIn(DefaultSections, roles)
}

// HasAdminPanelAccessIn is HasAdminPanelAccess against a specific table.
func HasAdminPanelAccessIn(sections Sections, roles RoleSet) bool {
	if IsAdmin(roles) {
		return true
	}
	return sections.grantsAny(roles)
}

// HighestPriorityRole returns the member with the lowest priority value.
func HighestPriorityRole(roles RoleSet) (Role, bool) {
	for _, role := range rolesByPriority {
		if roles.Has(role) {
			return role, true
		}
	}
	return "", false
}

// DefaultRouteFor returns the landing route of a role.
func DefaultRouteFor(role Role) (string, error) {
	route, ok := defaultRoutes[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoDefaultRoute, string(role))
	}
	return route, nil
}
