package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
)

// Handler exposes guard decisions and principal facts to the browser client.
type Handler struct {
	logger *slog.Logger
	guard  *Guard
	loader SnapshotLoader
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, guard *Guard, loader SnapshotLoader) *Handler {
	return &Handler{logger: logger, guard: guard, loader: loader}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/access", h.decide)
	r.Get("/me", h.me)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("path")
	if target == "" {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	target = CleanPath(target)
	// Public pages never pass through the guard; answering for them would
	// send a visitor on /login back to /login.
	if !h.guard.Sections().Covers(target) {
		httpx.JSON(w, http.StatusOK, Decision{State: StateAuthorized, Cause: "path is not guarded"})
		return
	}
	snap, _, err := h.loader.Load(r)
	if err != nil {
		h.logger.Error("access load snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	decision, err := h.guard.Decide(snap, target)
	if err != nil {
		h.logger.Error("access decide", slog.String("path", target), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}

// RoleView is a role rendered for display.
type RoleView struct {
	Role  string `json:"role"`
	Label string `json:"label"`
	Badge string `json:"badge"`
}

// PrincipalView summarises a principal for the admin UI.
type PrincipalView struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	DisplayName         string     `json:"display_name"`
	Status              string     `json:"status"`
	Roles               []RoleView `json:"roles"`
	HighestRole         string     `json:"highest_role,omitempty"`
	IsSuperAdmin        bool       `json:"is_super_admin"`
	HasAdminPanelAccess bool       `json:"has_admin_panel_access"`
	DefaultRoute        string     `json:"default_route,omitempty"`
}

// ViewOf builds the display summary of a principal.
func ViewOf(p Principal) (PrincipalView, error) {
	out := PrincipalView{
		ID:                  p.ID.String(),
		Email:               p.Email,
		DisplayName:         p.DisplayName,
		Status:              string(p.Status),
		Roles:               make([]RoleView, 0, p.Roles.Len()),
		IsSuperAdmin:        IsSuperAdmin(p.Roles),
		HasAdminPanelAccess: HasAdminPanelAccess(p.Roles),
	}
	for _, role := range p.Roles.Slice() {
		info, err := Info(role)
		if err != nil {
			return PrincipalView{}, err
		}
		out.Roles = append(out.Roles, RoleView{Role: string(role), Label: info.Label, Badge: info.Badge})
	}
	for _, raw := range p.Ignored {
		out.Roles = append(out.Roles, RoleView{Role: raw, Label: DisplayLabel(raw), Badge: "badge-muted"})
	}
	if role, ok := HighestPriorityRole(p.Roles); ok {
		route, err := DefaultRouteFor(role)
		if err != nil {
			return PrincipalView{}, err
		}
		out.HighestRole = string(role)
		out.DefaultRoute = route
	}
	return out, nil
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	snap, principal, err := h.loader.Load(r)
	if err != nil {
		h.logger.Error("me load snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !snap.Loaded {
		w.Header().Set("Retry-After", "1")
		httpx.JSON(w, http.StatusServiceUnavailable, Decision{State: StateInitializing})
		return
	}
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	view, err := ViewOf(*principal)
	if err != nil {
		h.logger.Error("me view", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}
