package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthServiceLogin(t *testing.T) {
	svc := NewAuthService("admin", "secret-pass", "test-signing-key", 30*time.Minute)

	t.Run("success", func(t *testing.T) {
		token, expiresAt, err := svc.Login("admin", "secret-pass")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.True(t, expiresAt.After(time.Now()))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login("admin", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong username", func(t *testing.T) {
		_, _, err := svc.Login("root", "secret-pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, _, err := svc.Login("", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthServiceLoginBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := NewAuthService("admin", string(hash), "test-signing-key", 30*time.Minute)

	_, _, err = svc.Login("admin", "secret-pass")
	require.NoError(t, err)

	_, _, err = svc.Login("admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthServiceVerify(t *testing.T) {
	svc := NewAuthService("admin", "secret-pass", "test-signing-key", 30*time.Minute)

	token, _, err := svc.Login("admin", "secret-pass")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		claims, err := svc.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "admin", claims.Subject)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewAuthService("admin", "secret-pass", "different-key", 30*time.Minute)
		otherToken, _, err := other.Login("admin", "secret-pass")
		require.NoError(t, err)

		_, err = svc.Verify(otherToken)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewAuthService("admin", "secret-pass", "test-signing-key", -time.Minute)
		expiredToken, _, err := expired.Login("admin", "secret-pass")
		require.NoError(t, err)

		_, err = svc.Verify(expiredToken)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
