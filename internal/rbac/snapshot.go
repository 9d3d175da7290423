package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/shared"
)

// SnapshotLoader builds the guard input for a request.
type SnapshotLoader interface {
	Load(r *http.Request) (Snapshot, *Principal, error)
}

// PrincipalSource resolves a principal id into its profile and roles.
type PrincipalSource interface {
	Principal(ctx context.Context, id uuid.UUID) (Principal, error)
}

// BearerVerifier turns a bearer access token into a principal id.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (uuid.UUID, error)
}

// SessionSnapshotLoader reads the principal from the session cookie or a
// bearer token and loads its profile through a PrincipalSource.
type SessionSnapshotLoader struct {
	Principals PrincipalSource
	Tokens     BearerVerifier
	// Timeout bounds the profile lookup. Exceeding it yields an unloaded snapshot.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Load implements SnapshotLoader.
func (l *SessionSnapshotLoader) Load(r *http.Request) (Snapshot, *Principal, error) {
	id, ok := l.principalID(r)
	if !ok {
		return Snapshot{Loaded: true}, nil, nil
	}
	ctx := r.Context()
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	principal, err := l.Principals.Principal(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		l.logger().Warn("rbac session references missing profile", slog.String("user_id", id.String()))
		return Snapshot{Loaded: true}, nil, nil
	case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
		l.logger().Warn("rbac profile lookup timed out", slog.String("user_id", id.String()))
		return Snapshot{}, nil, nil
	default:
		return Snapshot{}, nil, err
	}
	return SnapshotOf(principal), &principal, nil
}

// SnapshotOf builds the guard input of a loaded principal.
func SnapshotOf(p Principal) Snapshot {
	return Snapshot{
		Loaded:        true,
		Authenticated: true,
		Status:        p.Status,
		Roles:         p.Roles,
	}
}

func (l *SessionSnapshotLoader) principalID(r *http.Request) (uuid.UUID, bool) {
	// A request that presents a bearer token is judged by the token alone;
	// the session cookie must not stand in for it.
	if token := bearerToken(r); token != "" {
		if l.Tokens == nil {
			l.logger().Warn("rbac bearer token presented but no verifier configured")
			return uuid.Nil, false
		}
		id, err := l.Tokens.VerifyBearer(r.Context(), token)
		if err != nil {
			l.logger().Warn("rbac bearer token rejected", slog.Any("error", err))
			return uuid.Nil, false
		}
		return id, true
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		l.logger().Error("rbac parse user id", slog.String("value", raw))
		return uuid.Nil, false
	}
	return id, true
}

func (l *SessionSnapshotLoader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

type principalContextKey struct{}

// ContextWithPrincipal stores the authorized principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the authorized principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
