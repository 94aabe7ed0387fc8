package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setupUserRepo(t *testing.T) repository.UserRepository {
	t.Helper()

	repo := NewUserRepository(setupDB(t))
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	user := &domain.User{Name: "Alice", Email: "alice@example.com", Active: true}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.False(t, user.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Alice", byID.Name)
	require.Equal(t, "alice@example.com", byID.Email)
	require.True(t, byID.Active)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, id, byEmail.ID)
}

func TestUserRepositoryGetMissing(t *testing.T) {
	repo := setupUserRepo(t)

	_, err := repo.GetByID(context.Background(), 42)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Name: "Alice", Email: "alice@example.com", Active: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Name: "Other", Email: "alice@example.com", Active: true})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUserRepositoryListPagination(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	for _, email := range emails {
		_, err := repo.Create(ctx, &domain.User{Name: "User", Email: email, Active: true})
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "b@example.com", page[0].Email)
	require.Equal(t, "c@example.com", page[1].Email)

	empty, err := repo.List(ctx, 10, 2)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestUserRepositoryUpdate(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	user := &domain.User{Name: "Alice", Email: "alice@example.com", Active: true}
	_, err := repo.Create(ctx, user)
	require.NoError(t, err)

	user.Name = "Alice Smith"
	user.Active = false
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice Smith", got.Name)
	require.False(t, got.Active)
}

func TestUserRepositoryUpdateDuplicateEmail(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Name: "Alice", Email: "alice@example.com", Active: true})
	require.NoError(t, err)

	bob := &domain.User{Name: "Bob", Email: "bob@example.com", Active: true}
	_, err = repo.Create(ctx, bob)
	require.NoError(t, err)

	bob.Email = "alice@example.com"
	require.ErrorIs(t, repo.Update(ctx, bob), repository.ErrDuplicate)
}

func TestUserRepositoryDelete(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	user := &domain.User{Name: "Alice", Email: "alice@example.com", Active: true}
	_, err := repo.Create(ctx, user)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, user.ID))
	require.ErrorIs(t, repo.Delete(ctx, user.ID), repository.ErrNotFound)

	exists, err := repo.Exists(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, exists)
}
