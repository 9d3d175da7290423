package roles

import (
	"context"
	"sort"

	"github.com/humpahadi/humpahadi/internal/rbac"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	CountHolders(ctx context.Context) (map[string]int, error)
}

// Service handles role business logic.
type Service struct {
	repo     RepositoryPort
	sections rbac.Sections
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sections rbac.Sections) *Service {
	return &Service{repo: repo, sections: sections}
}

// ListRoles returns the catalog in priority order with holder counts.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	counts, err := s.repo.CountHolders(ctx)
	if err != nil {
		return nil, err
	}
	catalog := rbac.AllRoles()
	out := make([]Role, 0, len(catalog))
	for _, role := range catalog {
		info, err := rbac.Info(role)
		if err != nil {
			return nil, err
		}
		route, err := rbac.DefaultRouteFor(role)
		if err != nil {
			return nil, err
		}
		out = append(out, Role{
			Name:         string(role),
			Label:        info.Label,
			Badge:        info.Badge,
			Priority:     info.Priority,
			Description:  info.Description,
			DefaultRoute: route,
			Holders:      counts[string(role)],
		})
	}
	return out, nil
}

// SectionMatrix returns the section access table.
func (s *Service) SectionMatrix() []SectionAccess {
	entries := s.sections.Entries()
	out := make([]SectionAccess, 0, len(entries))
	for _, section := range entries {
		out = append(out, SectionAccess{
			Prefix:    section.Prefix,
			Name:      section.Name,
			Roles:     section.Allowed.Strings(),
			AdminOnly: section.Allowed.Empty(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}
