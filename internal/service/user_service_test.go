package service

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"userhub/internal/repository/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupUserService(t *testing.T) UserService {
	t.Helper()

	repo := sqlite.NewUserRepository(testDB(t))
	require.NoError(t, repo.Init(context.Background()))
	return NewUserService(repo)
}

func TestUserServiceCreate(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.True(t, user.Active)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Create(ctx, "Other", "alice@example.com")
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := svc.Create(ctx, "  ", "new@example.com")
		require.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := svc.Create(ctx, "Name", "")
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestUserServiceGet(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)

	_, err = svc.Get(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserServiceUpdate(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)

	t.Run("rename", func(t *testing.T) {
		name := "Alice Smith"
		updated, err := svc.Update(ctx, alice.ID, UserUpdate{Name: &name})
		require.NoError(t, err)
		require.Equal(t, "Alice Smith", updated.Name)
		require.Equal(t, "alice@example.com", updated.Email)
	})

	t.Run("email taken", func(t *testing.T) {
		email := "bob@example.com"
		_, err := svc.Update(ctx, alice.ID, UserUpdate{Email: &email})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("same email allowed", func(t *testing.T) {
		email := "alice@example.com"
		_, err := svc.Update(ctx, alice.ID, UserUpdate{Email: &email})
		require.NoError(t, err)
	})

	t.Run("deactivate via flag", func(t *testing.T) {
		active := false
		updated, err := svc.Update(ctx, alice.ID, UserUpdate{Active: &active})
		require.NoError(t, err)
		require.False(t, updated.Active)
	})

	t.Run("unknown user", func(t *testing.T) {
		name := "Ghost"
		_, err := svc.Update(ctx, 999, UserUpdate{Name: &name})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserServiceActivateDeactivate(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, deactivated.Active)

	activated, err := svc.Activate(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, activated.Active)

	_, err = svc.Activate(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserServiceDelete(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID))
	require.ErrorIs(t, svc.Delete(ctx, user.ID), ErrNotFound)
}

func TestUserServiceListClampsPage(t *testing.T) {
	svc := setupUserService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.Create(ctx, "User", email)
		require.NoError(t, err)
	}

	users, err := svc.List(ctx, -5, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
}
