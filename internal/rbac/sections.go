package rbac

import (
	"path"
	"sort"
	"strings"
)

// Section is a route prefix paired with the roles allowed to reach it.
type Section struct {
	Prefix  string
	Name    string
	Allowed RoleSet
}

// Sections is the static section access table.
type Sections struct {
	entries []Section
}

// NewSections builds a table. Entries are matched by longest prefix.
func NewSections(entries ...Section) Sections {
	out := make([]Section, 0, len(entries))
	for _, entry := range entries {
		entry.Prefix = CleanPath(entry.Prefix)
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Prefix) > len(out[j].Prefix)
	})
	return Sections{entries: out}
}

// DefaultSections is the admin dashboard access table.
var DefaultSections = NewSections(
	Section{Prefix: "/admin", Name: "Dashboard", Allowed: NewRoleSet()},
	Section{Prefix: "/admin/content-sections", Name: "Content Sections", Allowed: NewRoleSet(RoleContentManager, RoleContentEditor, RoleEditor)},
	Section{Prefix: "/admin/districts", Name: "Districts", Allowed: NewRoleSet(RoleContentManager, RoleContentEditor, RoleEditor)},
	Section{Prefix: "/admin/culture", Name: "Culture", Allowed: NewRoleSet(RoleContentManager, RoleContentEditor, RoleEditor)},
	Section{Prefix: "/admin/food", Name: "Food", Allowed: NewRoleSet(RoleContentManager, RoleContentEditor, RoleEditor)},
	Section{Prefix: "/admin/travel", Name: "Travel", Allowed: NewRoleSet(RoleContentManager, RoleContentEditor, RoleEditor)},
	Section{Prefix: "/admin/stories", Name: "Stories", Allowed: NewRoleSet(RoleContentManager, RoleEditor, RoleAuthor, RoleReviewer)},
	Section{Prefix: "/admin/gallery", Name: "Gallery", Allowed: NewRoleSet(RoleContentManager, RoleMediaManager)},
	Section{Prefix: "/admin/media", Name: "Media Library", Allowed: NewRoleSet(RoleContentManager, RoleMediaManager)},
	Section{Prefix: "/admin/marketplace", Name: "Marketplace", Allowed: NewRoleSet(RoleContentManager, RoleModerator)},
	Section{Prefix: "/admin/community-submissions", Name: "Community Submissions", Allowed: NewRoleSet(RoleContentManager, RoleModerator, RoleReviewer)},
	Section{Prefix: "/admin/seo", Name: "SEO", Allowed: NewRoleSet(RoleSEOManager)},
	Section{Prefix: "/admin/analytics", Name: "Analytics", Allowed: NewRoleSet(RoleAnalyticsViewer, RoleSEOManager, RoleContentManager)},
	Section{Prefix: "/admin/support", Name: "Support", Allowed: NewRoleSet(RoleSupportAgent)},
	Section{Prefix: "/admin/developer", Name: "Developer Tools", Allowed: NewRoleSet(RoleDeveloper)},
	Section{Prefix: "/admin/site-settings", Name: "Site Settings", Allowed: NewRoleSet()},
	Section{Prefix: "/admin/users", Name: "Users", Allowed: NewRoleSet()},
	Section{Prefix: "/admin/roles", Name: "Roles", Allowed: NewRoleSet()},
)

// Lookup returns the section with the longest prefix covering p.
func (t Sections) Lookup(p string) (Section, bool) {
	p = CleanPath(p)
	for _, entry := range t.entries {
		if hasPathPrefix(p, entry.Prefix) {
			return entry, true
		}
	}
	return Section{}, false
}

// RolesAllowed returns the roles allowed on p. The empty set means only
// administrators may pass.
func (t Sections) RolesAllowed(p string) RoleSet {
	section, ok := t.Lookup(p)
	if !ok {
		return NewRoleSet()
	}
	return section.Allowed
}

// Entries returns the table ordered by descending prefix length.
func (t Sections) Entries() []Section {
	out := make([]Section, len(t.entries))
	copy(out, t.entries)
	return out
}

// Covers reports whether any entry guards p.
func (t Sections) Covers(p string) bool {
	_, ok := t.Lookup(p)
	return ok
}

func (t Sections) grantsAny(roles RoleSet) bool {
	for _, entry := range t.entries {
		if entry.Allowed.Empty() {
			continue
		}
		if entry.Allowed.Intersects(roles) {
			return true
		}
	}
	return false
}

// CleanPath normalises a request path for matching and comparison.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	return len(p) == len(prefix) || p[len(prefix)] == '/'
}
