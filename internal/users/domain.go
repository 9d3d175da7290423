package users

import (
	"time"

	"github.com/humpahadi/humpahadi/internal/rbac"
)

// User is a profile as listed in the admin directory.
type User struct {
	rbac.PrincipalView
	CreatedAt time.Time `json:"created_at"`
}

// RoleRequest grants a role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

// StatusRequest changes the profile status.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active disabled pending"`
}
