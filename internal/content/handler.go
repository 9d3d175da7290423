package content

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
)

const homeTeaserSize = 4

type renderer struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// Handler serves the public site and its JSON API.
type Handler struct {
	renderer
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{renderer: renderer{logger: logger, templates: templates, csrf: csrf}, service: service}
}

// MountPages registers the public HTML pages.
func (h *Handler) MountPages(r chi.Router) {
	r.Get("/", h.home)
	for _, kind := range Kinds() {
		if !kind.Public() {
			continue
		}
		r.Get("/"+string(kind), h.listPage(kind))
		r.Get("/"+string(kind)+"/{slug}", h.detailPage(kind))
	}
}

// MountAPI registers the public JSON endpoints.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/content/{kind}", h.listJSON)
	r.Get("/content/{kind}/{slug}", h.detailJSON)
	r.Post("/submissions", h.submit)
}

type teaser struct {
	Kind  Kind
	Title string
	Items []Item
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	var sections []teaser
	for _, kind := range Kinds() {
		if !kind.Public() {
			continue
		}
		page, err := h.service.ListPublished(r.Context(), kind, 1, homeTeaserSize)
		if err != nil {
			h.logger.Error("home teaser", slog.String("kind", string(kind)), slog.Any("error", err))
			continue
		}
		if len(page.Items) == 0 {
			continue
		}
		sections = append(sections, teaser{Kind: kind, Title: kind.Title(), Items: page.Items})
	}
	h.render(w, r, http.StatusOK, "pages/home.html", "Home", map[string]any{"Sections": sections})
}

func (h *Handler) listPage(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageNo, perPage := shared.PageParams(r)
		page, err := h.service.ListPublished(r.Context(), kind, pageNo, perPage)
		if err != nil {
			h.logger.Error("list content", slog.String("kind", string(kind)), slog.Any("error", err))
			http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
			return
		}
		h.render(w, r, http.StatusOK, "pages/content_list.html", kind.Title(), page)
	}
}

func (h *Handler) detailPage(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := h.service.Published(r.Context(), kind, chi.URLParam(r, "slug"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			h.logger.Error("show content", slog.String("kind", string(kind)), slog.Any("error", err))
			http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
			return
		}
		h.render(w, r, http.StatusOK, "pages/content_detail.html", item.Title, item)
	}
}

func (h *Handler) listJSON(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, MapError(err))
		return
	}
	pageNo, perPage := shared.PageParams(r)
	page, err := h.service.ListPublished(r.Context(), kind, pageNo, perPage)
	if err != nil {
		h.respondError(w, "list content", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) detailJSON(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, MapError(err))
		return
	}
	item, err := h.service.Published(r.Context(), kind, chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, "show content", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var input SubmissionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	var author uuid.NullUUID
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		author = uuid.NullUUID{UUID: p.ID, Valid: true}
	}
	item, err := h.service.Submit(r.Context(), input, author)
	if err != nil {
		h.respondError(w, "submit content", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, item)
}

func (h renderer) respondError(w http.ResponseWriter, msg string, err error) {
	mapped := MapError(err)
	if !errors.Is(mapped, httpx.ErrNotFound) && !errors.Is(mapped, httpx.ErrValidation) && !errors.Is(mapped, httpx.ErrDuplicate) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, mapped)
}

func (h renderer) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       shared.PopFlashFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// MapError translates content errors into HTTP error classes.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownKind):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, ErrDuplicateSlug):
		return fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	default:
		return err
	}
}
