package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"go.uber.org/zap"
)

// Metrics receives authentication events.
type Metrics interface {
	RecordLogin(result string)
	RecordPasswordReset(stage, result string)
	RecordEmail(status string)
}

type nopMetrics struct{}

func (nopMetrics) RecordLogin(string)                 {}
func (nopMetrics) RecordPasswordReset(string, string) {}
func (nopMetrics) RecordEmail(string)                 {}

type options struct {
	logger  *zap.Logger
	metrics Metrics
	hasher  Hasher
	now     func() time.Time
}

func defaultOptions() options {
	return options{
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
		hasher:  BcryptHasher{},
		now:     time.Now,
	}
}

// Option configures the services of this package.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithHasher replaces the bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// UserSummary is the public part of a logged-in user.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
	Roles     []core.Role `json:"roles"`
}

// Service authenticates portal users.
type Service struct {
	users  storage.UserRepository
	perms  storage.PermissionRepository
	tokens *TokenManager
	options
}

// NewService creates a login service.
func NewService(users storage.UserRepository, perms storage.PermissionRepository, tokens *TokenManager, opts ...Option) *Service {
	return &Service{
		users:   users,
		perms:   perms,
		tokens:  tokens,
		options: buildOptions(opts),
	}
}

// Login verifies the credentials and issues a bearer token. Every
// credential failure returns core.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = core.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, s.reject("missing_fields")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		burn(s.hasher, password)
		return nil, s.reject("unknown_email")
	case err != nil:
		s.metrics.RecordLogin("error")
		return nil, err
	}

	if !user.Active || user.PasswordHash == "" {
		burn(s.hasher, password)
		return nil, s.reject("inactive")
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, s.reject("wrong_password")
	}

	roles, err := s.perms.CodesByUser(ctx, user.ID)
	if err != nil {
		s.metrics.RecordLogin("error")
		return nil, err
	}
	if len(roles) == 0 {
		roles = []core.Role{core.DefaultRole}
	}

	token, expiresAt, err := s.tokens.Issue(*user, roles)
	if err != nil {
		s.metrics.RecordLogin("error")
		return nil, err
	}

	s.metrics.RecordLogin("success")
	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
		Roles:     roles,
	}, nil
}

// reject logs the reason server-side only.
func (s *Service) reject(reason string) error {
	s.metrics.RecordLogin("rejected")
	s.logger.Debug("login rejected", zap.String("reason", reason))
	return core.ErrInvalidCredentials
}
