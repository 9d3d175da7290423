package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, validator: validator.New()}
}

// MountRoutes registers user routes. The router is expected to sit behind
// the route guard under /admin/users.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/{id}/roles", h.grantRole)
	r.Delete("/{id}/roles/{role}", h.revokeRole)
	r.Post("/{id}/roles/{role}/delete", h.revokeRole)
	r.Post("/{id}/status", h.setStatus)
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		if wantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.render(w, r, "pages/admin_users.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
		return
	}
	h.render(w, r, "pages/admin_users.html", map[string]any{"Users": users, "Roles": rbac.AllRoles()}, http.StatusOK)
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req RoleRequest
	if !h.decode(w, r, &req, func() { req.Role = r.PostFormValue("role") }) {
		return
	}
	err := h.service.GrantRole(r.Context(), *actor, userID, req.Role)
	h.respond(w, r, err, "Role "+rbac.DisplayLabel(req.Role)+" granted")
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := h.target(w, r)
	if !ok {
		return
	}
	role := chi.URLParam(r, "role")
	err := h.service.RevokeRole(r.Context(), *actor, userID, role)
	h.respond(w, r, err, "Role "+rbac.DisplayLabel(role)+" revoked")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	actor, userID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !h.decode(w, r, &req, func() { req.Status = r.PostFormValue("status") }) {
		return
	}
	err := h.service.SetStatus(r.Context(), *actor, userID, req.Status)
	h.respond(w, r, err, "Status set to "+req.Status)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (*rbac.Principal, uuid.UUID, bool) {
	actor := rbac.PrincipalFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid user id", httpx.ErrValidation))
		return nil, uuid.Nil, false
	}
	return actor, userID, true
}

// decode reads a JSON body, or form values through fromForm for browser posts.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, fromForm func()) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := httpx.DecodeJSON(r, dst); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return false
		}
		fromForm()
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error, success string) {
	if err != nil {
		err = mapError(err)
		if errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrForbidden) || errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrDuplicate) {
			h.logger.Info("user change rejected", slog.Any("error", err))
		} else {
			h.logger.Error("user change failed", slog.Any("error", err))
		}
		if wantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.redirectWithFlash(w, r, "/admin/users", "error", shared.UserSafeMessage(err))
		return
	}
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", success)
}

// mapError translates role assignment errors into HTTP error classes.
func mapError(err error) error {
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, rbac.ErrUnknownRole), errors.Is(err, rbac.ErrInvalidStatus):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, rbac.ErrForbiddenGrant):
		return fmt.Errorf("%w: %v", httpx.ErrForbidden, err)
	case errors.Is(err, rbac.ErrDuplicateAssignment):
		return fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	default:
		return err
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{Title: "Users", CSRFToken: csrfToken, Flash: shared.PopFlashFromContext(r.Context()), CurrentPath: r.URL.Path, Data: data}
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
