package domain

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered user
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	LastLoginAt   time.Time `json:"last_login_at"`
}

// UserRepository defines the interface for user-related operations
type UserRepository interface {
	// Create persists a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLastLogin stamps the user's last login time
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
