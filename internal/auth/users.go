package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"go.uber.org/zap"
)

// NewUser is the input of CreateUser.
type NewUser struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Permission string `json:"permission"`
}

// UserAdmin creates portal accounts.
type UserAdmin struct {
	users storage.UserRepository
	options
}

// NewUserAdmin creates a UserAdmin.
func NewUserAdmin(users storage.UserRepository, opts ...Option) *UserAdmin {
	return &UserAdmin{users: users, options: buildOptions(opts)}
}

// CreateUser validates in, hashes the password and stores an active
// account holding one permission code.
func (a *UserAdmin) CreateUser(ctx context.Context, in NewUser) (uuid.UUID, error) {
	name := strings.TrimSpace(in.Name)
	email := core.NormalizeEmail(in.Email)

	if name == "" {
		return uuid.Nil, core.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return uuid.Nil, core.Validation("invalid email %q", in.Email)
	}
	if err := checkPassword(in.Password); err != nil {
		return uuid.Nil, err
	}
	role, ok := core.ParseRole(in.Permission)
	if !ok {
		return uuid.Nil, core.Validation("permission must be ADMIN, PORTAL or SUPERVISOR")
	}

	exists, err := a.users.ExistsByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, core.Conflict("email %s already registered", email)
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hashing password: %w", err)
	}

	id, err := a.users.Create(ctx, core.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}, role)
	if err != nil {
		return uuid.Nil, err
	}

	a.logger.Info("user created",
		zap.String("user_id", id.String()),
		zap.String("permission", string(role)))
	return id, nil
}
