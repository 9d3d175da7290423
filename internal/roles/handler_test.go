package roles_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/roles"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
)

type stubCounts struct {
	counts map[string]int
	err    error
}

func (s stubCounts) CountHolders(context.Context) (map[string]int, error) {
	return s.counts, s.err
}

func newRouter(t *testing.T, repo roles.RepositoryPort) http.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Route("/admin/roles", roles.NewHandler(nil, roles.NewService(repo, rbac.DefaultSections), templates, shared.NewCSRFManager("csrf")).MountRoutes)
	return r
}

func TestListRolesJSON(t *testing.T) {
	router := newRouter(t, stubCounts{counts: map[string]int{"moderator": 3, "legacy_role": 9}})
	req := httptest.NewRequest(http.MethodGet, "/admin/roles/", nil)
	req.Header.Set("Accept", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Roles    []roles.Role          `json:"roles"`
		Sections []roles.SectionAccess `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Roles, 14)
	assert.Equal(t, "super_admin", body.Roles[0].Name)
	for _, role := range body.Roles {
		if role.Name == "moderator" {
			assert.Equal(t, 3, role.Holders)
			assert.Equal(t, "/admin/community-submissions", role.DefaultRoute)
		}
	}
	require.NotEmpty(t, body.Sections)
	assert.Equal(t, "/admin", body.Sections[0].Prefix)
	assert.True(t, body.Sections[0].AdminOnly)
}

func TestListRolesHTML(t *testing.T) {
	res := httptest.NewRecorder()
	newRouter(t, stubCounts{counts: map[string]int{}}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/roles/", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Super Admin")
	assert.Contains(t, res.Body.String(), "administrators only")
}

func TestListRolesFailure(t *testing.T) {
	res := httptest.NewRecorder()
	newRouter(t, stubCounts{err: errors.New("db down")}).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/roles/", nil))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Contains(t, res.Body.String(), "Something went wrong")
}
