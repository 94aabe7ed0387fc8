package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates the configured admin account and manages access tokens.
type AuthService interface {
	Login(username, password string) (string, time.Time, error)
	Verify(token string) (*jwt.RegisteredClaims, error)
}

type authService struct {
	adminUser     string
	adminPassword string
	secret        []byte
	tokenTTL      time.Duration
}

func NewAuthService(adminUser, adminPassword, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		adminUser:     strings.TrimSpace(adminUser),
		adminPassword: strings.TrimSpace(adminPassword),
		secret:        []byte(jwtSecret),
		tokenTTL:      tokenTTL,
	}
}

// Login checks the credential pair and issues a signed access token.
// The configured password may be a bcrypt hash or, for development
// setups, a plain value compared in constant time.
func (s *authService) Login(username, password string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if s.adminPassword == "" {
		return "", time.Time{}, fmt.Errorf("admin password is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUser)) != 1 {
		return "", time.Time{}, ErrInvalidCredentials
	}

	if strings.HasPrefix(s.adminPassword, "$2") {
		if err := bcrypt.CompareHashAndPassword([]byte(s.adminPassword), []byte(password)); err != nil {
			return "", time.Time{}, ErrInvalidCredentials
		}
	} else if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses a token string and returns its claims when valid.
func (s *authService) Verify(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token is not valid")
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return claims, nil
}
