package rbac

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, loader SnapshotLoader) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestGuard(t), loader).MountRoutes(r)
	return r
}

func TestAccessEndpoint(t *testing.T) {
	router := newTestRouter(t, loaderFor(principalWith(RoleModerator)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access?path=/admin/seo", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var decision Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, StateRedirectedToDefault, decision.State)
	assert.Equal(t, "/admin/community-submissions", decision.Redirect)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccessEndpointIgnoresPublicPaths(t *testing.T) {
	router := newTestRouter(t, loaderFor(nil))
	for _, p := range []string{"/login", "/", "/districts/almora", "/administrator"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access?path="+p, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var decision Decision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.True(t, decision.Allowed(), p)
		assert.False(t, decision.Redirects(), p)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access?path=/admin/", nil))
	var decision Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, StateUnauthenticated, decision.State)
	assert.Equal(t, "/login", decision.Redirect)
}

func TestMeEndpoint(t *testing.T) {
	p := principalWith(RoleAuthor, RoleReviewer)
	p.Ignored = []string{"tour_guide"}
	router := newTestRouter(t, loaderFor(p))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view PrincipalView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "reviewer", view.HighestRole)
	assert.Equal(t, "/admin/community-submissions", view.DefaultRoute)
	assert.True(t, view.HasAdminPanelAccess)
	assert.False(t, view.IsSuperAdmin)
	require.Len(t, view.Roles, 3)
	assert.Equal(t, "Reviewer", view.Roles[0].Label)
	assert.Equal(t, "Tour Guide", view.Roles[2].Label)
}

func TestMeEndpointStates(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, loaderFor(nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(t, stubLoader{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
