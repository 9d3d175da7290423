package rbac

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a permission-group identifier assigned to a principal.
type Role string

// Catalog roles, listed in priority order.
const (
	RoleSuperAdmin      Role = "super_admin"
	RoleAdmin           Role = "admin"
	RoleContentManager  Role = "content_manager"
	RoleContentEditor   Role = "content_editor"
	RoleEditor          Role = "editor"
	RoleModerator       Role = "moderator"
	RoleReviewer        Role = "reviewer"
	RoleAuthor          Role = "author"
	RoleMediaManager    Role = "media_manager"
	RoleSEOManager      Role = "seo_manager"
	RoleSupportAgent    Role = "support_agent"
	RoleDeveloper       Role = "developer"
	RoleAnalyticsViewer Role = "analytics_viewer"
	RoleUser            Role = "user"
)

// RoleInfo carries the static display and ordering metadata of a role.
type RoleInfo struct {
	Label       string
	Badge       string
	Priority    int
	Description string
}

var catalog = map[Role]RoleInfo{
	RoleSuperAdmin:      {Label: "Super Admin", Badge: "badge-danger", Priority: 0, Description: "Full access including role management for administrators."},
	RoleAdmin:           {Label: "Admin", Badge: "badge-warning", Priority: 1, Description: "Full access to every admin section."},
	RoleContentManager:  {Label: "Content Manager", Badge: "badge-primary", Priority: 2, Description: "Owns all editorial sections and their publishing."},
	RoleContentEditor:   {Label: "Content Editor", Badge: "badge-info", Priority: 3, Description: "Edits district, culture, food and travel content."},
	RoleEditor:          {Label: "Editor", Badge: "badge-info", Priority: 4, Description: "Edits content sections and stories."},
	RoleModerator:       {Label: "Moderator", Badge: "badge-success", Priority: 5, Description: "Moderates community submissions and marketplace listings."},
	RoleReviewer:        {Label: "Reviewer", Badge: "badge-success", Priority: 6, Description: "Reviews stories and community submissions."},
	RoleAuthor:          {Label: "Author", Badge: "badge-secondary", Priority: 7, Description: "Writes stories."},
	RoleMediaManager:    {Label: "Media Manager", Badge: "badge-secondary", Priority: 8, Description: "Manages the gallery and media library."},
	RoleSEOManager:      {Label: "SEO Manager", Badge: "badge-secondary", Priority: 9, Description: "Manages search metadata and reads analytics."},
	RoleSupportAgent:    {Label: "Support Agent", Badge: "badge-light", Priority: 10, Description: "Handles support tickets."},
	RoleDeveloper:       {Label: "Developer", Badge: "badge-dark", Priority: 11, Description: "Access to developer tools."},
	RoleAnalyticsViewer: {Label: "Analytics Viewer", Badge: "badge-light", Priority: 12, Description: "Read-only analytics."},
	RoleUser:            {Label: "User", Badge: "badge-muted", Priority: 13, Description: "Signed-in visitor without admin access."},
}

var rolesByPriority []Role

func init() {
	rolesByPriority = make([]Role, 0, len(catalog))
	for role := range catalog {
		rolesByPriority = append(rolesByPriority, role)
	}
	sort.Slice(rolesByPriority, func(i, j int) bool {
		return catalog[rolesByPriority[i]].Priority < catalog[rolesByPriority[j]].Priority
	})
	mustValidateCatalog()
}

// AllRoles returns every catalog role ordered by priority.
func AllRoles() []Role {
	out := make([]Role, len(rolesByPriority))
	copy(out, rolesByPriority)
	return out
}

// Known reports whether the role belongs to the catalog.
func (r Role) Known() bool {
	_, ok := catalog[r]
	return ok
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Info returns the catalog metadata of a role.
func Info(role Role) (RoleInfo, error) {
	info, ok := catalog[role]
	if !ok {
		return RoleInfo{}, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	return info, nil
}

// LabelOf returns the display name of a role.
func LabelOf(role Role) (string, error) {
	info, err := Info(role)
	if err != nil {
		return "", err
	}
	return info.Label, nil
}

// PriorityOf returns the precedence of a role. Lower values win.
func PriorityOf(role Role) (int, error) {
	info, err := Info(role)
	if err != nil {
		return 0, err
	}
	return info.Priority, nil
}

// BadgeOf returns the badge class used to render a role.
func BadgeOf(role Role) (string, error) {
	info, err := Info(role)
	if err != nil {
		return "", err
	}
	return info.Badge, nil
}

// DisplayLabel renders any role identifier for display and never fails.
func DisplayLabel(raw string) string {
	if label, err := LabelOf(Role(normalizeRole(raw))); err == nil {
		return label
	}
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(raw), "_", " "))
}

// ParseRole converts a stored identifier into a catalog role.
func ParseRole(raw string) (Role, error) {
	role := Role(normalizeRole(raw))
	if !role.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// ParseRoles builds a RoleSet from stored identifiers. Unknown identifiers are
// returned separately and never grant access.
func ParseRoles(raws []string) (RoleSet, []string) {
	roles := make([]Role, 0, len(raws))
	var unknown []string
	for _, raw := range raws {
		role, err := ParseRole(raw)
		if err != nil {
			unknown = append(unknown, raw)
			continue
		}
		roles = append(roles, role)
	}
	return NewRoleSet(roles...), unknown
}

func normalizeRole(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// RoleSet is an immutable set of catalog roles.
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a set, dropping roles outside the catalog.
func NewRoleSet(roles ...Role) RoleSet {
	members := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		if !role.Known() {
			continue
		}
		members[role] = struct{}{}
	}
	return RoleSet{members: members}
}

// Has reports membership.
func (s RoleSet) Has(role Role) bool {
	_, ok := s.members[role]
	return ok
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	return len(s.members)
}

// Empty reports whether the set has no roles.
func (s RoleSet) Empty() bool {
	return len(s.members) == 0
}

// Intersects reports whether the sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for role := range small.members {
		if large.Has(role) {
			return true
		}
	}
	return false
}

// Slice returns the members ordered by priority.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s.members))
	for _, role := range rolesByPriority {
		if s.Has(role) {
			out = append(out, role)
		}
	}
	return out
}

// Strings returns the members as identifiers ordered by priority.
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}

func mustValidateCatalog() {
	seen := make(map[int]Role, len(catalog))
	for role, info := range catalog {
		if info.Label == "" || info.Badge == "" {
			panic(fmt.Sprintf("rbac: role %q missing display metadata", role))
		}
		if other, dup := seen[info.Priority]; dup {
			panic(fmt.Sprintf("rbac: roles %q and %q share priority %d", role, other, info.Priority))
		}
		seen[info.Priority] = role
		route, ok := defaultRoutes[role]
		if !ok {
			panic(fmt.Sprintf("rbac: role %q has no default route", role))
		}
		if role == RoleUser || role == RoleAdmin || role == RoleSuperAdmin {
			continue
		}
		if !DefaultSections.RolesAllowed(route).Has(role) {
			panic(fmt.Sprintf("rbac: default route %s does not admit role %q", route, role))
		}
	}
	for role := range defaultRoutes {
		if !role.Known() {
			panic(fmt.Sprintf("rbac: default route declared for unknown role %q", role))
		}
	}
}
