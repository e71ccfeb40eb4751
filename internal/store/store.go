package store

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when no profile exists for a user id.
var ErrUserNotFound = errors.New("user not found")

// User is the profile used to render a sender's name.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// UserStore handles user profile persistence.
type UserStore interface {
	// UpsertUser creates a profile or renames an existing one.
	UpsertUser(ctx context.Context, id, username string) (*User, error)

	// GetUserByID retrieves a profile by user id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// ListUsers returns every profile ordered by id.
	ListUsers(ctx context.Context) ([]*User, error)

	// DeleteUser removes a profile. Unknown ids are not an error.
	DeleteUser(ctx context.Context, id string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore

	// Close closes the underlying database connection.
	Close() error
}
