package users

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/shared"
)

// Directory exposes the role assignment operations the admin screens need.
type Directory interface {
	ListPrincipals(ctx context.Context) ([]rbac.Principal, error)
	AssignRole(ctx context.Context, actor rbac.Actor, userID uuid.UUID, role string) error
	RevokeRole(ctx context.Context, actor rbac.Actor, userID uuid.UUID, role string) error
	SetStatus(ctx context.Context, actor rbac.Actor, userID uuid.UUID, status string) error
}

// Service handles user business logic.
type Service struct {
	dir    Directory
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(dir Directory, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, audit: audit, logger: logger}
}

// ListUsers returns all profiles ordered by email.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	principals, err := s.dir.ListPrincipals(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(principals))
	for _, p := range principals {
		view, err := rbac.ViewOf(p)
		if err != nil {
			return nil, err
		}
		users = append(users, User{PrincipalView: view, CreatedAt: p.CreatedAt})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// GrantRole assigns a role on behalf of actor.
func (s *Service) GrantRole(ctx context.Context, actor rbac.Principal, userID uuid.UUID, role string) error {
	if err := s.dir.AssignRole(ctx, rbac.ActorFromPrincipal(actor), userID, role); err != nil {
		return err
	}
	s.record(ctx, actor, "role.granted", userID, map[string]any{"role": role})
	return nil
}

// RevokeRole removes a role on behalf of actor.
func (s *Service) RevokeRole(ctx context.Context, actor rbac.Principal, userID uuid.UUID, role string) error {
	if err := s.dir.RevokeRole(ctx, rbac.ActorFromPrincipal(actor), userID, role); err != nil {
		return err
	}
	s.record(ctx, actor, "role.revoked", userID, map[string]any{"role": role})
	return nil
}

// SetStatus changes the lifecycle state of a profile.
func (s *Service) SetStatus(ctx context.Context, actor rbac.Principal, userID uuid.UUID, status string) error {
	if err := s.dir.SetStatus(ctx, rbac.ActorFromPrincipal(actor), userID, status); err != nil {
		return err
	}
	s.record(ctx, actor, "profile.status_changed", userID, map[string]any{"status": status})
	return nil
}

func (s *Service) record(ctx context.Context, actor rbac.Principal, action string, userID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  uuid.NullUUID{UUID: actor.ID, Valid: true},
		Action:   action,
		Entity:   "profile",
		EntityID: userID.String(),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}
