package rbac

import (
	"errors"
	"fmt"
	"log/slog"
)

// State is the outcome class of a guard evaluation.
type State string

// Guard states. Every state except Initializing ends the navigation attempt.
const (
	StateInitializing        State = "initializing"
	StateUnauthenticated     State = "unauthenticated"
	StateDisabled            State = "disabled"
	StatePendingApproval     State = "pending_approval"
	StateAuthorized          State = "authorized"
	StateRedirectedToDefault State = "redirected_to_default"
	StateUnauthorized        State = "unauthorized"
)

// Snapshot is the principal state a guard decides on.
type Snapshot struct {
	Loaded        bool
	Authenticated bool
	Status        ProfileStatus
	Roles         RoleSet
}

// Decision is the result of one guard evaluation.
type Decision struct {
	State    State  `json:"state"`
	Redirect string `json:"redirect,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

// Allowed reports whether the guarded content may render.
func (d Decision) Allowed() bool {
	return d.State == StateAuthorized
}

// Redirects reports whether the decision carries a redirect target.
func (d Decision) Redirects() bool {
	return d.Redirect != ""
}

// Routes are the fixed redirect targets of the guard.
type Routes struct {
	Login           string
	PendingApproval string
	Unauthorized    string
	Home            string
}

// DefaultRoutes returns the site's fixed targets.
func DefaultRoutes() Routes {
	return Routes{
		Login:           "/login",
		PendingApproval: "/pending-approval",
		Unauthorized:    "/unauthorized",
		Home:            "/",
	}
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Sections Sections
	Routes   Routes
	// Strict surfaces ErrNoDefaultRoute instead of falling back to Home.
	Strict bool
	Logger *slog.Logger
}

// Guard decides whether a principal may render a guarded path.
type Guard struct {
	sections Sections
	routes   Routes
	strict   bool
	logger   *slog.Logger
	resolve  func(Role) (string, error)
}

// NewGuard validates the configuration and builds a Guard.
func NewGuard(cfg GuardConfig) (*Guard, error) {
	routes := cfg.Routes
	defaults := DefaultRoutes()
	if routes.Login == "" {
		routes.Login = defaults.Login
	}
	if routes.PendingApproval == "" {
		routes.PendingApproval = defaults.PendingApproval
	}
	if routes.Unauthorized == "" {
		routes.Unauthorized = defaults.Unauthorized
	}
	if routes.Home == "" {
		routes.Home = defaults.Home
	}
	for _, target := range []string{routes.Login, routes.PendingApproval, routes.Unauthorized, routes.Home} {
		if cfg.Sections.Covers(target) {
			return nil, fmt.Errorf("rbac: redirect target %s is itself guarded", target)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		sections: cfg.Sections,
		routes:   routes,
		strict:   cfg.Strict,
		logger:   logger,
		resolve:  DefaultRouteFor,
	}, nil
}

// Routes exposes the configured redirect targets.
func (g *Guard) Routes() Routes {
	return g.routes
}

// Sections exposes the access table.
func (g *Guard) Sections() Sections {
	return g.sections
}

// Decide evaluates the transitions in order; the first match wins.
func (g *Guard) Decide(snap Snapshot, currentPath string) (Decision, error) {
	switch {
	case !snap.Loaded:
		return Decision{State: StateInitializing}, nil
	case !snap.Authenticated:
		return Decision{State: StateUnauthenticated, Redirect: g.routes.Login, Cause: "no active session"}, nil
	case snap.Status == StatusDisabled:
		return Decision{State: StateDisabled, Redirect: g.routes.Login, Cause: "profile disabled"}, nil
	case snap.Roles.Empty():
		return Decision{State: StatePendingApproval, Redirect: g.routes.PendingApproval, Cause: "no roles assigned"}, nil
	case IsAdmin(snap.Roles):
		return Decision{State: StateAuthorized}, nil
	case g.sections.RolesAllowed(currentPath).Intersects(snap.Roles):
		return Decision{State: StateAuthorized}, nil
	case HasAdminPanelAccessIn(g.sections, snap.Roles):
		return g.redirectToDefault(snap.Roles, currentPath)
	default:
		return Decision{State: StateUnauthorized, Redirect: g.routes.Home, Cause: "no admin access"}, nil
	}
}

func (g *Guard) redirectToDefault(roles RoleSet, currentPath string) (Decision, error) {
	role, _ := HighestPriorityRole(roles)
	target, err := g.resolve(role)
	if err != nil {
		if g.strict {
			return Decision{}, err
		}
		g.logger.Error("rbac default route", slog.String("role", string(role)), slog.Any("error", err))
		return Decision{State: StateUnauthorized, Redirect: g.routes.Home, Cause: "no default route"}, nil
	}
	if CleanPath(target) == CleanPath(currentPath) {
		return Decision{State: StateUnauthorized, Redirect: g.routes.Unauthorized, Cause: "default route is current path"}, nil
	}
	return Decision{State: StateRedirectedToDefault, Redirect: target, Cause: "section not permitted"}, nil
}

// IsNoDefaultRoute reports whether err stems from a missing landing route.
func IsNoDefaultRoute(err error) bool {
	return errors.Is(err, ErrNoDefaultRoute)
}
