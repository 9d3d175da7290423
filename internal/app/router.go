package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/content"
	"github.com/humpahadi/humpahadi/internal/observability"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/roles"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/users"
	"github.com/humpahadi/humpahadi/jobs"
	"github.com/humpahadi/humpahadi/web"
)

// Admin prefixes served by dedicated handlers rather than the content admin.
const (
	AdminUsersPath = "/admin/users"
	AdminRolesPath = "/admin/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	ContentHandler *content.Handler
	ContentAdmin   *content.AdminHandler
	UsersHandler   *users.Handler
	RolesHandler   *roles.Handler
	AccessHandler  *rbac.Handler
	JobHandler     *jobs.Handler
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
	BearerAuth     bool
}

// NewRouter constructs the chi.Router with the site defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		BearerAuth:     params.BearerAuth,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
	}
	if params.ContentHandler != nil {
		params.ContentHandler.MountPages(r)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS(params.Config))
		if params.AccessHandler != nil {
			params.AccessHandler.MountRoutes(r)
		}
		if params.ContentHandler != nil {
			params.ContentHandler.MountAPI(r)
		}
	})

	// The guard wraps the mounted router rather than being registered with
	// Use, so it also covers /admin paths no handler serves.
	admin := chi.NewRouter()
	if params.UsersHandler != nil {
		admin.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		admin.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		admin.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.ContentAdmin != nil {
		params.ContentAdmin.MountRoutes(admin, AdminUsersPath, AdminRolesPath)
	}
	r.Mount("/admin", params.RBACMiddleware.Protect(admin))

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := web.Assets()
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with a one hour Cache-Control.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
