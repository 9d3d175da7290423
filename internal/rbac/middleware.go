package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/platform/httpx"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
)

// AuditSink receives denied navigations of signed-in principals.
type AuditSink interface {
	RecordDenial(ctx context.Context, entry AuditEntry) error
}

// DecisionObserver counts guard outcomes.
type DecisionObserver interface {
	ObserveDecision(state string)
}

// Middleware wires the route guard into HTTP handlers.
type Middleware struct {
	Guard     *Guard
	Loader    SnapshotLoader
	Templates *view.Engine
	Audit     AuditSink
	Metrics   DecisionObserver
	Logger    *slog.Logger
}

// Protect guards every request passing through next.
func (m Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, principal, err := m.Loader.Load(r)
		if err != nil {
			m.logger().Error("rbac load snapshot", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		decision, err := m.Guard.Decide(snap, r.URL.Path)
		if err != nil {
			m.logger().Error("rbac decide", slog.String("path", r.URL.Path), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if m.Metrics != nil {
			m.Metrics.ObserveDecision(string(decision.State))
		}
		switch {
		case decision.Allowed():
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		case decision.State == StateInitializing:
			m.renderLoading(w, r)
		default:
			m.audit(r, principal, decision)
			m.deny(w, r, decision)
		}
	})
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, decision Decision) {
	if wantsJSON(r) {
		status := http.StatusForbidden
		if decision.State == StateUnauthenticated || decision.State == StateDisabled {
			status = http.StatusUnauthorized
		}
		httpx.Denied(w, status, decision.Cause, decision.Redirect)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		switch decision.State {
		case StateDisabled:
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Your account has been disabled."})
		case StateUnauthenticated:
			sess.SetReturnTo(r.URL.RequestURI())
		}
	}
	http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
}

func (m Middleware) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(1))
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusServiceUnavailable, Decision{State: StateInitializing})
		return
	}
	w.Header().Set("Refresh", "1")
	if m.Templates == nil {
		http.Error(w, "Loading…", http.StatusServiceUnavailable)
		return
	}
	if err := m.Templates.RenderStatus(w, http.StatusServiceUnavailable, "pages/loading.html", view.TemplateData{Title: "Loading", CurrentPath: r.URL.Path}); err != nil {
		m.logger().Error("render loading", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (m Middleware) audit(r *http.Request, principal *Principal, decision Decision) {
	if m.Audit == nil || principal == nil {
		return
	}
	entry := AuditEntry{
		ID:        uuid.New(),
		UserID:    uuid.NullUUID{UUID: principal.ID, Valid: true},
		Path:      r.URL.Path,
		State:     string(decision.State),
		Redirect:  decision.Redirect,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.Audit.RecordDenial(r.Context(), entry); err != nil {
		m.logger().Warn("rbac record denial", slog.Any("error", err))
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
