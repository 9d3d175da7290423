package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
)

type stubLoader struct {
	snap      Snapshot
	principal *Principal
	err       error
}

func (s stubLoader) Load(*http.Request) (Snapshot, *Principal, error) {
	return s.snap, s.principal, s.err
}

type recordingSink struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingSink) RecordDenial(_ context.Context, entry AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

type countingObserver map[string]int

func (c countingObserver) ObserveDecision(state string) { c[state]++ }

func principalWith(roles ...Role) *Principal {
	return &Principal{ID: uuid.New(), Email: "p@example.com", Status: StatusActive, Roles: NewRoleSet(roles...)}
}

func loaderFor(p *Principal) stubLoader {
	if p == nil {
		return stubLoader{snap: Snapshot{Loaded: true}}
	}
	return stubLoader{snap: SnapshotOf(*p), principal: p}
}

func newTestMiddleware(t *testing.T, loader SnapshotLoader) (Middleware, *recordingSink, countingObserver) {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	sink := &recordingSink{}
	observer := countingObserver{}
	return Middleware{
		Guard:     newTestGuard(t),
		Loader:    loader,
		Templates: engine,
		Audit:     sink,
		Metrics:   observer,
	}, sink, observer
}

func okHandler(t *testing.T, want *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, want, PrincipalFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestProtectAllowsAuthorizedPrincipal(t *testing.T) {
	p := principalWith(RoleModerator)
	mw, sink, observer := newTestMiddleware(t, loaderFor(p))

	rec := httptest.NewRecorder()
	mw.Protect(okHandler(t, p)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/community-submissions/9", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, sink.entries)
	assert.Equal(t, 1, observer[string(StateAuthorized)])
}

func TestProtectRedirectsBrowsers(t *testing.T) {
	cases := []struct {
		name      string
		principal *Principal
		path      string
		location  string
		audited   bool
	}{
		{"anonymous", nil, "/admin", "/login", false},
		{"pending", principalWith(), "/admin/stories", "/pending-approval", true},
		{"default route", principalWith(RoleModerator), "/admin/site-settings", "/admin/community-submissions", true},
		{"no panel access", principalWith(RoleUser), "/admin", "/", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw, sink, _ := newTestMiddleware(t, loaderFor(tc.principal))
			rec := httptest.NewRecorder()
			mw.Protect(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
			if tc.audited {
				require.Len(t, sink.entries, 1)
				assert.Equal(t, tc.path, sink.entries[0].Path)
				assert.Equal(t, tc.location, sink.entries[0].Redirect)
				assert.Equal(t, tc.principal.ID, sink.entries[0].UserID.UUID)
			} else {
				assert.Empty(t, sink.entries)
			}
		})
	}
}

func TestProtectRespondsWithProblemForJSONClients(t *testing.T) {
	mw, _, _ := newTestMiddleware(t, loaderFor(principalWith(RoleAuthor)))
	req := httptest.NewRequest(http.MethodGet, "/admin/seo", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	mw.Protect(okHandler(t, nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/admin/stories", problem.Redirect)

	disabled := principalWith(RoleAdmin)
	disabled.Status = StatusDisabled
	mw, _, _ = newTestMiddleware(t, loaderFor(disabled))
	rec = httptest.NewRecorder()
	mw.Protect(okHandler(t, nil)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectRendersLoadingWhileUnloaded(t *testing.T) {
	mw, sink, observer := newTestMiddleware(t, stubLoader{})
	rec := httptest.NewRecorder()
	mw.Protect(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Refresh"))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Empty(t, sink.entries)
	assert.Equal(t, 1, observer[string(StateInitializing)])
}

func TestProtectFailsClosedOnLoadError(t *testing.T) {
	mw, _, _ := newTestMiddleware(t, stubLoader{err: errors.New("db down")})
	rec := httptest.NewRecorder()
	mw.Protect(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProtectRemembersPathForSignIn(t *testing.T) {
	mw, _, _ := newTestMiddleware(t, loaderFor(nil))
	req := requestWithSessionUser(t, "")
	req.URL.Path = "/admin/stories"
	req.URL.RawQuery = "page=2"

	rec := httptest.NewRecorder()
	mw.Protect(okHandler(t, nil)).ServeHTTP(rec, req)

	assert.Equal(t, "/login", rec.Header().Get("Location"))
	sess := shared.SessionFromContext(req.Context())
	require.NotNil(t, sess)
	assert.Equal(t, "/admin/stories?page=2", sess.PopReturnTo())
}
