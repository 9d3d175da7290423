package content

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
)

// AdminHandler serves the admin dashboard and the editorial sections. It
// expects to be mounted under /admin behind the route guard.
type AdminHandler struct {
	renderer
	service  *Service
	sections rbac.Sections
}

// NewAdminHandler builds AdminHandler instance.
func NewAdminHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sections rbac.Sections) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{renderer: renderer{logger: logger, templates: templates, csrf: csrf}, service: service, sections: sections}
}

// MountRoutes registers the dashboard, one route group per content kind and
// a placeholder page for the remaining sections. skip lists prefixes served
// by other handlers.
func (h *AdminHandler) MountRoutes(r chi.Router, skip ...string) {
	r.Get("/", h.dashboard)

	served := map[string]bool{"/admin": true}
	for _, prefix := range skip {
		served[prefix] = true
	}
	for _, kind := range Kinds() {
		served[kind.AdminPath()] = true
		r.Route("/"+string(kind), func(r chi.Router) {
			r.Get("/", h.sectionPage(kind))
			r.Get("/items", h.listItems(kind))
			r.Post("/items", h.createItem(kind))
			r.Put("/items/{id}", h.updateItem(kind))
			r.Delete("/items/{id}", h.deleteItem(kind))
			r.Post("/items/{id}/publish", h.publishItem(kind, true))
			r.Post("/items/{id}/unpublish", h.publishItem(kind, false))
		})
	}
	for _, section := range h.sections.Entries() {
		if served[section.Prefix] {
			continue
		}
		r.Get(strings.TrimPrefix(section.Prefix, "/admin"), h.placeholder(section))
	}
}

type dashboardData struct {
	Principal rbac.PrincipalView
	Sections  []rbac.Section
}

func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	if p == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	principal, err := rbac.ViewOf(*p)
	if err != nil {
		h.logger.Error("dashboard view", slog.Any("error", err))
		http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, "pages/admin_dashboard.html", "Dashboard", dashboardData{Principal: principal, Sections: h.visibleSections(*p)})
}

// visibleSections lists the sections the principal may open, in prefix order.
func (h *AdminHandler) visibleSections(p rbac.Principal) []rbac.Section {
	admin := rbac.IsAdmin(p.Roles)
	var out []rbac.Section
	for _, section := range h.sections.Entries() {
		if section.Prefix == "/admin" {
			continue
		}
		if admin || section.Allowed.Intersects(p.Roles) {
			out = append(out, section)
		}
	}
	sortSections(out)
	return out
}

type sectionData struct {
	Section rbac.Section
	Items   []Item
	Page    shared.Pagination
}

func (h *AdminHandler) sectionPage(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageNo, perPage := shared.PageParams(r)
		page, err := h.service.ListAll(r.Context(), kind, pageNo, perPage)
		if err != nil {
			h.logger.Error("admin list content", slog.String("kind", string(kind)), slog.Any("error", err))
			http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
			return
		}
		section, _ := h.sections.Lookup(kind.AdminPath())
		h.render(w, r, http.StatusOK, "pages/admin_section.html", section.Name, sectionData{Section: section, Items: page.Items, Page: page.Pagination})
	}
}

func (h *AdminHandler) placeholder(section rbac.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, "pages/admin_section.html", section.Name, sectionData{Section: section})
	}
}

func (h *AdminHandler) listItems(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageNo, perPage := shared.PageParams(r)
		page, err := h.service.ListAll(r.Context(), kind, pageNo, perPage)
		if err != nil {
			h.respondError(w, "admin list content", err)
			return
		}
		httpx.JSON(w, http.StatusOK, page)
	}
}

func (h *AdminHandler) createItem(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ItemInput
		if err := httpx.DecodeJSON(r, &input); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		var author uuid.NullUUID
		if p := rbac.PrincipalFromContext(r.Context()); p != nil {
			author = uuid.NullUUID{UUID: p.ID, Valid: true}
		}
		item, err := h.service.Create(r.Context(), kind, input, author)
		if err != nil {
			h.respondError(w, "create content", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, item)
	}
}

func (h *AdminHandler) updateItem(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		var input ItemInput
		if err := httpx.DecodeJSON(r, &input); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		item, err := h.service.Update(r.Context(), kind, id, input)
		if err != nil {
			h.respondError(w, "update content", err)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

func (h *AdminHandler) deleteItem(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		if err := h.service.Delete(r.Context(), kind, id); err != nil {
			h.respondError(w, "delete content", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *AdminHandler) publishItem(kind Kind, published bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r)
		if !ok {
			return
		}
		item, err := h.service.SetPublished(r.Context(), kind, id, published)
		if err != nil {
			h.respondError(w, "publish content", err)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

func itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid item id", httpx.ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}
