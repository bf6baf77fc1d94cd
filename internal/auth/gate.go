// Package auth - gate.go implements the single-credential session gate.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/telemetry"
)

// ErrInvalidCredentials is the only login failure. It does not say which field was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Gate checks the configured root-admin credential pair and issues session tokens
type Gate struct {
	email        string
	password     string
	passwordHash []byte
	signer       *Signer
}

// NewGate builds a gate from the admin and session configuration
func NewGate(admin config.AdminConfig, session config.SessionConfig) (*Gate, error) {
	if admin.Email == "" || (admin.Password == "" && admin.PasswordHash == "") {
		return nil, errors.New("admin credentials are not configured")
	}
	secret, err := ResolveSecret(session.Secret)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		email:  admin.Email,
		signer: NewSigner(secret, session.TTL),
	}
	if admin.PasswordHash != "" {
		g.passwordHash = []byte(admin.PasswordHash)
	} else {
		g.password = admin.Password
	}
	return g, nil
}

func (g *Gate) passwordMatches(password string) bool {
	if g.passwordHash != nil {
		return bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.password), []byte(password)) == 1
}

// Login returns a signed session token when email and password exactly match the configured pair.
func (g *Gate) Login(email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(g.email), []byte(email)) == 1
	// Always check the password so both failure paths cost the same.
	passwordOK := g.passwordMatches(password)
	if !emailOK || !passwordOK {
		telemetry.LoginsTotal.WithLabelValues("failure").Inc()
		return "", ErrInvalidCredentials
	}

	token, err := g.signer.Sign()
	if err != nil {
		telemetry.LoginsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	telemetry.LoginsTotal.WithLabelValues("success").Inc()
	return token, nil
}

// Authenticate turns a session token into a Session
func (g *Gate) Authenticate(token string) (*Session, error) {
	claims, err := g.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	s := &Session{Authenticated: true}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		s.ExpiresAt = &exp
	}
	return s, nil
}

// TTL returns the configured session lifetime, zero meaning no expiry
func (g *Gate) TTL() time.Duration {
	return g.signer.ttl
}
