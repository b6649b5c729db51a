package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a permission code attached to a user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RolePortal     Role = "PORTAL"
	RoleSupervisor Role = "SUPERVISOR"
)

// DefaultRole is granted when a user has no permission rows.
const DefaultRole = RolePortal

// ParseRole validates a permission code, case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RolePortal, RoleSupervisor:
		return r, true
	}
	return "", false
}

// User is a portal account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResetToken is a stored password-reset token. Only the hash is persisted.
type ResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Valid reports whether the token is unconsumed and unexpired at now.
func (t ResetToken) Valid(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
