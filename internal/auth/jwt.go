// Package auth - jwt.go signs and verifies the session token stored in the admin cookie,
// and resolves the signing secret with a development-mode fallback.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "admin-console"

// Claims is the session token payload. Auth is the persisted "authenticated" flag.
type Claims struct {
	Auth bool `json:"auth"`
	jwt.RegisteredClaims
}

// IsDevMode reports whether the process runs in development mode
func IsDevMode() bool {
	devMode := os.Getenv("ADMIN_DEV_MODE")
	ginMode := os.Getenv("GIN_MODE")

	return devMode == "true" || devMode == "1" || ginMode == "debug"
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ResolveSecret returns the configured signing secret. Without one, development mode gets a
// random per-process secret and every other mode fails.
func ResolveSecret(configured string) (string, error) {
	if configured != "" {
		if len(configured) < 32 {
			slog.Warn("session secret is shorter than the recommended 32 characters")
		}
		return configured, nil
	}
	if !IsDevMode() {
		return "", errors.New("session.secret is required outside development mode; " +
			"generate one with: openssl rand -hex 32")
	}
	secret, err := generateRandomSecret()
	if err != nil {
		return "", err
	}
	slog.Warn("session.secret not set, using a generated secret; sessions will not survive a restart")
	return secret, nil
}

// Signer issues and verifies HS256 session tokens
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. A zero ttl issues tokens without an expiry.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues a token asserting an authenticated session
func (s *Signer) Sign() (string, error) {
	now := s.now()
	claims := &Claims{
		Auth: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   issuer,
			Subject:  "root-admin",
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a session token
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.Auth {
		return nil, errors.New("token does not carry an authenticated session")
	}
	return claims, nil
}
