package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Actor is whoever performs a role or status change.
type Actor struct {
	ID    uuid.NullUUID
	Roles RoleSet
	// System marks operator tooling running outside a session.
	System bool
}

// SystemActor is used by operator tooling.
func SystemActor() Actor {
	return Actor{System: true}
}

// ActorFromPrincipal wraps a signed-in principal.
func ActorFromPrincipal(p Principal) Actor {
	return Actor{ID: uuid.NullUUID{UUID: p.ID, Valid: true}, Roles: p.Roles}
}

// Service orchestrates role assignment reads and writes.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Principal loads a profile and its role assignment.
func (s *Service) Principal(ctx context.Context, id uuid.UUID) (Principal, error) {
	rec, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("rbac cache get", slog.String("user_id", id.String()), slog.Any("error", err))
	}
	if !ok {
		rec, err = s.loadShared(ctx, id)
		if err != nil {
			return Principal{}, err
		}
	}
	return s.toPrincipal(rec), nil
}

func (s *Service) loadShared(ctx context.Context, id uuid.UUID) (ProfileRecord, error) {
	resultChan := s.group.DoChan(id.String(), func() (interface{}, error) {
		bg := context.WithoutCancel(ctx)
		gen, genErr := s.cache.Generation(bg, id)
		rec, err := s.repo.GetProfile(bg, id)
		if err != nil {
			return ProfileRecord{}, err
		}
		if genErr != nil {
			s.logger.Warn("rbac cache generation", slog.String("user_id", id.String()), slog.Any("error", genErr))
			return rec, nil
		}
		if _, err := s.cache.SetIfCurrent(bg, rec, gen); err != nil {
			s.logger.Warn("rbac cache set", slog.String("user_id", id.String()), slog.Any("error", err))
		}
		return rec, nil
	})
	select {
	case <-ctx.Done():
		return ProfileRecord{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return ProfileRecord{}, res.Err
		}
		return res.Val.(ProfileRecord), nil
	}
}

// PrincipalByEmail loads a principal by email.
func (s *Service) PrincipalByEmail(ctx context.Context, email string) (Principal, error) {
	rec, err := s.repo.FindProfileByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return Principal{}, err
	}
	return s.toPrincipal(rec), nil
}

// ListPrincipals returns every profile with its roles.
func (s *Service) ListPrincipals(ctx context.Context) ([]Principal, error) {
	recs, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Principal, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.toPrincipal(rec))
	}
	return out, nil
}

// AssignRole grants a role to a profile.
func (s *Service) AssignRole(ctx context.Context, actor Actor, userID uuid.UUID, raw string) error {
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	if err := authorizeGrant(actor, role); err != nil {
		return err
	}
	if _, err := s.repo.GetProfile(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.InsertRole(ctx, userID, role, actor.ID); err != nil {
		return err
	}
	if err := s.invalidate(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("rbac role assigned", slog.String("user_id", userID.String()), slog.String("role", string(role)))
	return nil
}

// RevokeRole removes a role from a profile.
func (s *Service) RevokeRole(ctx context.Context, actor Actor, userID uuid.UUID, raw string) error {
	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	if err := authorizeGrant(actor, role); err != nil {
		return err
	}
	rows, err := s.repo.DeleteRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	if err := s.invalidate(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("rbac role revoked", slog.String("user_id", userID.String()), slog.String("role", string(role)))
	return nil
}

// SetStatus changes the lifecycle state of a profile.
func (s *Service) SetStatus(ctx context.Context, actor Actor, userID uuid.UUID, raw string) error {
	status, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	if !actor.System && !IsAdmin(actor.Roles) {
		return ErrForbiddenGrant
	}
	if actor.ID.Valid && actor.ID.UUID == userID {
		return fmt.Errorf("%w: cannot change own status", ErrForbiddenGrant)
	}
	rows, err := s.repo.UpdateStatus(ctx, userID, status)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	if err := s.invalidate(ctx, userID); err != nil {
		return err
	}
	return nil
}

// RecordAudit persists a denied navigation.
func (s *Service) RecordAudit(ctx context.Context, entry AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.repo.InsertAudit(ctx, entry)
}

// invalidate must follow every profile or role write.
func (s *Service) invalidate(ctx context.Context, id uuid.UUID) error {
	s.group.Forget(id.String())
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Error("rbac cache invalidate", slog.String("user_id", id.String()), slog.Any("error", err))
		return fmt.Errorf("rbac: invalidate cached principal: %w", err)
	}
	return nil
}

func (s *Service) toPrincipal(rec ProfileRecord) Principal {
	roles, ignored := ParseRoles(rec.Roles)
	if len(ignored) > 0 {
		s.logger.Warn("rbac ignoring unknown roles", slog.String("user_id", rec.ID.String()), slog.Any("roles", ignored))
	}
	status, err := ParseStatus(rec.Status)
	if err != nil {
		s.logger.Warn("rbac unknown profile status", slog.String("user_id", rec.ID.String()), slog.String("status", rec.Status))
		status = ProfileStatus(rec.Status)
	}
	return Principal{
		ID:          rec.ID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		Status:      status,
		Roles:       roles,
		Ignored:     ignored,
		CreatedAt:   rec.CreatedAt,
	}
}

// authorizeGrant allows admins to manage editorial roles; only super
// administrators manage admin and super_admin.
func authorizeGrant(actor Actor, role Role) error {
	if actor.System || IsSuperAdmin(actor.Roles) {
		return nil
	}
	if role == RoleAdmin || role == RoleSuperAdmin {
		return ErrForbiddenGrant
	}
	if !actor.Roles.Has(RoleAdmin) {
		return ErrForbiddenGrant
	}
	return nil
}
