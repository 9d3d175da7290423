package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents a profile able to sign in.
type User struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SignupInput carries a new profile.
type SignupInput struct {
	DisplayName string `validate:"required,max=120"`
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=8"`
}
