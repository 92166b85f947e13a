package repository

import (
	"context"
	"errors"

	"student-portal/internal/domain"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email violates uniqueness.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned by Create when the username violates uniqueness.
	ErrUsernameTaken = errors.New("username already taken")
)

// Match reports which unique fields of a candidate user are already in use.
type Match struct {
	Email    bool
	Username bool
}

// Any reports whether either field matched.
func (m Match) Any() bool {
	return m.Email || m.Username
}

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	// Create assigns the ID and timestamps of user and persists it.
	Create(ctx context.Context, user *domain.User) error
	// FindByIdentifier returns the user whose username or email equals identifier.
	// An email match wins over a username match held by a different user.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (Match, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
