package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/internal/shared"
)

// DefaultAuditRetentionDays applies when a prune payload carries no window.
const DefaultAuditRetentionDays = 90

// AuditRecorder persists denied navigations.
type AuditRecorder interface {
	RecordAudit(ctx context.Context, entry rbac.AuditEntry) error
}

// AuditPruner deletes audit rows older than a cutoff.
type AuditPruner interface {
	PruneAudit(ctx context.Context, before time.Time) (int64, error)
}

// JobObserver counts processed tasks.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// AccessAuditJob writes queued denials into access_audit.
type AccessAuditJob struct {
	Recorder AuditRecorder
	Logger   *slog.Logger
}

// Handle processes TaskAccessAudit.
func (j *AccessAuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Recorder == nil {
		return errors.New("access audit: handler not configured")
	}
	var payload AccessAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("access audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Path == "" {
		return fmt.Errorf("access audit: empty path: %w", asynq.SkipRetry)
	}
	return j.Recorder.RecordAudit(ctx, payload.Entry())
}

// PendingApprovalJob records and announces profiles waiting for a role.
type PendingApprovalJob struct {
	Audit  shared.AuditRecorder
	Logger *slog.Logger
}

// Handle processes TaskPendingApproval.
func (j *PendingApprovalJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("pending approval: handler not configured")
	}
	var payload PendingApprovalPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("pending approval payload: %v: %w", err, asynq.SkipRetry)
	}
	logger(j.Logger).Info("profile awaiting approval",
		slog.String("user_id", payload.UserID.String()),
		slog.String("email", payload.Email))
	if j.Audit == nil {
		return nil
	}
	return j.Audit.Record(ctx, shared.AuditLog{
		Action:   "profile.pending_approval",
		Entity:   "profile",
		EntityID: payload.UserID.String(),
		Meta:     map[string]any{"email": payload.Email},
	})
}

// AuditPruneJob enforces the access audit retention window.
type AuditPruneJob struct {
	Pruner AuditPruner
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAuditPruneJob constructs the prune handler.
func NewAuditPruneJob(pruner AuditPruner, logger *slog.Logger) *AuditPruneJob {
	return &AuditPruneJob{Pruner: pruner, Logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

// Handle processes TaskAuditPrune.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("audit prune: handler not configured")
	}
	var payload AuditPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("audit prune payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = DefaultAuditRetentionDays
	}
	now := time.Now().UTC()
	if j.clock != nil {
		now = j.clock()
	}
	cutoff := now.AddDate(0, 0, -payload.RetentionDays)
	removed, err := j.Pruner.PruneAudit(ctx, cutoff)
	if err != nil {
		return err
	}
	logger(j.Logger).Info("access audit pruned",
		slog.Int64("removed", removed),
		slog.Time("cutoff", cutoff))
	return nil
}

// Instrument wraps a handler so every run is counted.
func Instrument(task string, h asynq.HandlerFunc, observer JobObserver) asynq.HandlerFunc {
	if observer == nil {
		return h
	}
	return func(ctx context.Context, t *asynq.Task) error {
		err := h(ctx, t)
		observer.ObserveJob(task, err)
		return err
	}
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
