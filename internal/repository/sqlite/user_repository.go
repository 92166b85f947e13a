package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"student-portal/internal/domain"
	"student-portal/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username);
`

const selectUserColumns = `id, username, email, full_name, role, password_hash, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, full_name, role, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		user.Username,
		user.Email,
		user.FullName,
		string(user.Role),
		user.PasswordHash,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return r.conflict(ctx, user.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+selectUserColumns+`
FROM users
WHERE email = ? OR username = ?
ORDER BY CASE WHEN email = ? THEN 0 ELSE 1 END
LIMIT 1`,
		identifier, identifier, identifier,
	)
	return scanUser(row)
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (repository.Match, error) {
	var match repository.Match
	err := r.db.QueryRowContext(ctx, `
SELECT
	EXISTS (SELECT 1 FROM users WHERE email = ?),
	EXISTS (SELECT 1 FROM users WHERE username = ?)`,
		email, username,
	).Scan(&match.Email, &match.Username)
	if err != nil {
		return repository.Match{}, fmt.Errorf("check existing user: %w", err)
	}
	return match, nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`, username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return found, nil
}

func isUniqueViolation(err error) bool {
	var sqlErr *moderncsqlite.Error
	return errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// conflict names the field a rejected insert collided on. sqlite reports
// whichever index it checked first, so the email is looked up explicitly and
// wins when both fields are taken.
func (r *UserRepository) conflict(ctx context.Context, email string) error {
	taken, err := r.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve unique violation: %w", err)
	}
	if taken {
		return repository.ErrEmailTaken
	}
	return repository.ErrUsernameTaken
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Role = domain.Role(role)
	return &user, nil
}
