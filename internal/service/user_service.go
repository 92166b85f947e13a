package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"student-portal/internal/crypto"
	"student-portal/internal/domain"
	"student-portal/internal/repository"
)

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username string      `validate:"required"`
	Email    string      `validate:"required,email"`
	Password string      `validate:"min=6"`
	FullName string      `validate:"required"`
	Role     domain.Role `validate:"oneof=student teacher"`
}

type loginInput struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

// Availability fields accepted by CheckAvailability.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*domain.User, error)
	CheckAvailability(ctx context.Context, field, value string) (bool, error)
}

type userService struct {
	users    repository.UserRepository
	hasher   *crypto.PasswordHasher
	validate *validator.Validate
}

func NewUserService(users repository.UserRepository, hasher *crypto.PasswordHasher) UserService {
	return &userService{
		users:    users,
		hasher:   hasher,
		validate: newValidator(),
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validate.Struct(in); err != nil {
		return nil, firstViolation(err, registerMessages, "Invalid registration data")
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, &ValidationError{Message: msgPasswordTooLong}
	}

	if err := s.checkUnique(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// a concurrent registration won the race past the existence check
		if errors.Is(err, repository.ErrEmailTaken) || errors.Is(err, repository.ErrUsernameTaken) {
			if cerr := s.checkUnique(ctx, in.Username, in.Email); cerr != nil {
				return nil, cerr
			}
			return nil, conflictFromStore(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// checkUnique returns a ConflictError when username or email is in use,
// reporting the email first.
func (s *userService) checkUnique(ctx context.Context, username, email string) error {
	match, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if !match.Any() {
		return nil
	}
	if match.Email {
		return &ConflictError{Message: msgEmailRegistered}
	}
	return &ConflictError{Message: msgUsernameTaken}
}

func conflictFromStore(err error) error {
	if errors.Is(err, repository.ErrEmailTaken) {
		return &ConflictError{Message: msgEmailRegistered}
	}
	return &ConflictError{Message: msgUsernameTaken}
}

func (s *userService) Authenticate(ctx context.Context, identifier, password string) (*domain.User, error) {
	if err := s.validate.Struct(loginInput{Identifier: identifier, Password: password}); err != nil {
		return nil, &ValidationError{Message: msgCredentialsRequired}
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Burn(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// CheckAvailability reports whether value is unused for field. Usernames are
// compared trimmed, emails trimmed and lower-cased. Unknown fields and empty
// values are never available.
func (s *userService) CheckAvailability(ctx context.Context, field, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if field == "" || value == "" {
		return false, nil
	}

	var (
		exists bool
		err    error
	)
	switch field {
	case FieldUsername:
		exists, err = s.users.ExistsByUsername(ctx, value)
	case FieldEmail:
		exists, err = s.users.ExistsByEmail(ctx, strings.ToLower(value))
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s availability: %w", field, err)
	}
	return !exists, nil
}
