// Package auth implements login, bearer tokens and the password-reset flow.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
)

// TokenTTL is the lifetime of an issued bearer token.
const TokenTTL = 8 * time.Hour

// Claims is the payload of a bearer token. The subject is the user id.
type Claims struct {
	Email string      `json:"email"`
	Roles []core.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// HasRole reports whether the token carries any of roles.
func (c *Claims) HasRole(roles ...core.Role) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager fails when any of the signing parameters is empty.
func NewTokenManager(key, issuer, audience string) (*TokenManager, error) {
	if key == "" || issuer == "" || audience == "" {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("token signing key, issuer and audience are required"))
	}
	return &TokenManager{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		ttl:      TokenTTL,
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source. Tests only.
func (m *TokenManager) SetClock(now func() time.Time) { m.now = now }

// Issue signs a token for u and returns it with its expiry.
func (m *TokenManager) Issue(u core.User, roles []core.Role) (string, time.Time, error) {
	issuedAt := m.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.ttl)

	claims := Claims{
		Email: u.Email,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies signature, algorithm, issuer, audience and expiry with no
// clock skew allowance.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, core.WrapError(core.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return nil, core.ErrUnauthorized
	}
	if _, err := claims.UserID(); err != nil {
		return nil, core.WrapError(core.ErrUnauthorized, fmt.Errorf("subject: %w", err))
	}
	return claims, nil
}
