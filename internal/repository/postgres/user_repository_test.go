package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-portal/internal/domain"
	"student-portal/internal/repository"
)

func openTestRepository(t *testing.T) repository.UserRepository {
	t.Helper()
	url := os.Getenv("PORTAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PORTAL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewUserRepository(pool)
	require.NoError(t, repo.Init(ctx))
	return repo
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepository(t)

	suffix := uuid.NewString()[:8]
	user := &domain.User{
		Username:     "pg-" + suffix,
		Email:        "pg-" + suffix + "@example.local",
		FullName:     "Postgres User",
		Role:         domain.RoleTeacher,
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByIdentifier(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, domain.RoleTeacher, found.Role)

	match, err := repo.ExistsByUsernameOrEmail(ctx, user.Username, "other-"+suffix+"@example.local")
	require.NoError(t, err)
	assert.Equal(t, repository.Match{Username: true}, match)

	dup := *user
	dup.Username = "pg2-" + suffix
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrEmailTaken)

	dup = *user
	dup.Email = "pg2-" + suffix + "@example.local"
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrUsernameTaken)

	dup = *user
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrEmailTaken)

	_, err = repo.FindByIdentifier(ctx, "missing-"+suffix)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
