package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/humpahadi/humpahadi/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueLow holds housekeeping work.
	QueueLow = "low"

	// TaskAccessAudit persists a denied admin navigation.
	TaskAccessAudit = "rbac:access_audit"
	// TaskPendingApproval announces a new profile that has no role yet.
	TaskPendingApproval = "auth:pending_approval"
	// TaskAuditPrune removes expired access audit rows.
	TaskAuditPrune = "rbac:audit_prune"
)

// AccessAuditPayload mirrors rbac.AuditEntry on the wire.
type AccessAuditPayload struct {
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Path     string     `json:"path"`
	State    string     `json:"state"`
	Redirect string     `json:"redirect,omitempty"`
	At       time.Time  `json:"at"`
}

// Entry converts the payload back into an audit entry.
func (p AccessAuditPayload) Entry() rbac.AuditEntry {
	entry := rbac.AuditEntry{Path: p.Path, State: p.State, Redirect: p.Redirect, CreatedAt: p.At}
	if p.UserID != nil {
		entry.UserID = uuid.NullUUID{UUID: *p.UserID, Valid: true}
	}
	return entry
}

// PendingApprovalPayload identifies the profile awaiting a role.
type PendingApprovalPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// AuditPrunePayload carries the retention window in days.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAccessAuditTask constructs an access audit task.
func NewAccessAuditTask(entry rbac.AuditEntry) (*asynq.Task, error) {
	payload := AccessAuditPayload{Path: entry.Path, State: entry.State, Redirect: entry.Redirect, At: entry.CreatedAt}
	if entry.UserID.Valid {
		id := entry.UserID.UUID
		payload.UserID = &id
	}
	if payload.At.IsZero() {
		payload.At = time.Now().UTC()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessAudit, data), nil
}

// NewPendingApprovalTask constructs a pending approval task.
func NewPendingApprovalTask(userID uuid.UUID, email string) (*asynq.Task, error) {
	data, err := json.Marshal(PendingApprovalPayload{UserID: userID, Email: email})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPendingApproval, data), nil
}

// NewAuditPruneTask constructs the periodic audit prune task.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}
