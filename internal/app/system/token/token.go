// Package token issues and verifies the signed bearer credentials used by
// the API. A credential binds an account ID to an issue/expiry window and
// nothing else: roles and status are always re-read from the live account
// record at request time, so tokens never have to be reissued when a role
// changes.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the credential lifetime used when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Verification errors. Callers map these to distinct 401 responses.
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("invalid token")
)

// Claims is the JWT payload. Subject carries the account ID; ID is a
// random UUID so every issued credential is distinguishable.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer credentials with a shared HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates a Manager. If ttl is zero, DefaultTTL is used.
func New(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured credential lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new credential for the given account ID.
func (m *Manager) Issue(accountID string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

// Verify parses and validates a credential and returns the account ID it
// was issued for. Expired credentials return ErrExpired; anything else
// that fails validation (bad signature, malformed, wrong algorithm)
// returns ErrInvalid.
func (m *Manager) Verify(tokenString string) (string, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}
	if !tok.Valid || claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}
