package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"student-portal/internal/domain"
	"student-portal/internal/repository"
)

const uniqueViolationCode = "23505"

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT users_email_key UNIQUE (email),
	CONSTRAINT users_username_key UNIQUE (username)
)`

const selectUserColumns = `id::text, username, email, full_name, role, password_hash, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	id := uuid.New()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, full_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, user.Username, user.Email, user.FullName, string(user.Role), user.PasswordHash, now, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			if pgErr.ConstraintName == "users_email_key" {
				return repository.ErrEmailTaken
			}
			// only the first violated constraint is reported; email wins a double conflict
			taken, err := r.ExistsByEmail(ctx, user.Email)
			if err != nil {
				return fmt.Errorf("resolve unique violation: %w", err)
			}
			if taken {
				return repository.ErrEmailTaken
			}
			return repository.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = id.String()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectUserColumns+`
		FROM users
		WHERE email = $1 OR username = $1
		ORDER BY (email = $1) DESC
		LIMIT 1
	`, identifier)

	var (
		user domain.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (repository.Match, error) {
	var match repository.Match
	err := r.pool.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE email = $1),
			EXISTS (SELECT 1 FROM users WHERE username = $2)
	`, email, username).Scan(&match.Email, &match.Username)
	if err != nil {
		return repository.Match{}, fmt.Errorf("check existing user: %w", err)
	}
	return match, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return found, nil
}
