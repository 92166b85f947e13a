// Package memory provides an in-process UserRepository. Data lives only as
// long as the process; it backs tests and the "memory" database driver.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"student-portal/internal/domain"
	"student-portal/internal/repository"
)

type UserRepository struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	byUsername map[string]string
	byEmail    map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *UserRepository) Init(context.Context) error {
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return repository.ErrUsernameTaken
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = *user
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[identifier]
	if !ok {
		id, ok = r.byUsername[identifier]
	}
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (repository.Match, error) {
	if err := ctx.Err(); err != nil {
		return repository.Match{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, emailTaken := r.byEmail[email]
	_, usernameTaken := r.byUsername[username]
	return repository.Match{Email: emailTaken, Username: usernameTaken}, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.byUsername, username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, r.byEmail, email)
}

func (r *UserRepository) exists(ctx context.Context, index map[string]string, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := index[key]
	return ok, nil
}
