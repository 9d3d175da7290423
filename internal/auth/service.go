package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/humpahadi/humpahadi/internal/shared"
)

// PendingApprovalNotifier announces a new profile awaiting a role.
type PendingApprovalNotifier interface {
	NotifyPendingApproval(ctx context.Context, userID uuid.UUID, email string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	notifier PendingApprovalNotifier
	logger   *slog.Logger
}

// NewService constructs a new Service. notifier may be nil.
func NewService(repo Repository, notifier PendingApprovalNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// Authenticate validates email/password credentials. Disabled profiles still
// sign in; the route guard sends them back to the login page.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find profile: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an active profile without roles and queues the
// pending-approval notification.
func (s *Service) Register(ctx context.Context, input SignupInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, User{
		ID:           uuid.New(),
		Email:        normalizeEmail(input.Email),
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: string(hash),
		Status:       "active",
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyPendingApproval(ctx, user.ID, user.Email); err != nil {
			s.logger.Warn("enqueue pending approval", slog.String("user_id", user.ID.String()), slog.Any("error", err))
		}
	}
	return user, nil
}

// Bootstrap creates an active profile that already holds role. It is used to
// seed the first super admin, who cannot be granted a role by anyone else.
func (s *Service) Bootstrap(ctx context.Context, input SignupInput, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUserWithRole(ctx, User{
		ID:           uuid.New(),
		Email:        normalizeEmail(input.Email),
		DisplayName:  strings.TrimSpace(input.DisplayName),
		PasswordHash: string(hash),
		Status:       "active",
	}, role)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
