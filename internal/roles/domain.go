package roles

// Role is a catalog role as shown on the role overview.
type Role struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Badge        string `json:"badge"`
	Priority     int    `json:"priority"`
	Description  string `json:"description"`
	DefaultRoute string `json:"default_route"`
	Holders      int    `json:"holders"`
}

// SectionAccess lists which roles reach an admin section.
type SectionAccess struct {
	Prefix string   `json:"prefix"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	// AdminOnly marks sections reachable only through the admin bypass.
	AdminOnly bool `json:"admin_only"`
}
