package rbac

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrUnknownRole indicates a role identifier outside the catalog.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrNoDefaultRoute indicates a role without a landing route.
	ErrNoDefaultRoute = errors.New("rbac: no default route")
	// ErrDuplicateAssignment indicates the role is already assigned.
	ErrDuplicateAssignment = errors.New("rbac: role already assigned")
	// ErrForbiddenGrant indicates the actor may not grant or revoke the role.
	ErrForbiddenGrant = errors.New("rbac: actor may not manage this role")
	// ErrInvalidStatus indicates a profile status outside the known set.
	ErrInvalidStatus = errors.New("rbac: invalid profile status")
)

// ProfileStatus is the lifecycle state of a profile.
type ProfileStatus string

// Profile statuses.
const (
	StatusActive   ProfileStatus = "active"
	StatusDisabled ProfileStatus = "disabled"
	StatusPending  ProfileStatus = "pending"
)

// ParseStatus validates a stored status value.
func ParseStatus(raw string) (ProfileStatus, error) {
	switch s := ProfileStatus(normalizeRole(raw)); s {
	case StatusActive, StatusDisabled, StatusPending:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Principal is a signed-in profile together with its role assignment.
type Principal struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Status      ProfileStatus
	Roles       RoleSet
	// Ignored holds stored role identifiers outside the catalog.
	Ignored   []string
	CreatedAt time.Time
}

// Assignment links a profile to a role.
type Assignment struct {
	UserID    uuid.UUID
	Role      Role
	GrantedBy uuid.NullUUID
	CreatedAt time.Time
}

// AuditEntry records a denied navigation.
type AuditEntry struct {
	ID        uuid.UUID
	UserID    uuid.NullUUID
	Path      string
	State     string
	Redirect  string
	CreatedAt time.Time
}
