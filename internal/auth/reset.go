package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"go.uber.org/zap"
)

const (
	// ResetTokenTTL is how long a reset link stays valid.
	ResetTokenTTL = 30 * time.Minute

	resetTokenBytes = 32
	resetSubject    = "Redefinição de senha - Remessa Segura"
)

// ResetService issues and redeems password-reset tokens.
type ResetService struct {
	users       storage.UserRepository
	tokens      storage.ResetTokenRepository
	mailer      Mailer
	frontendURL string
	options
}

// NewResetService creates a reset service. Links point at frontendURL.
func NewResetService(users storage.UserRepository, tokens storage.ResetTokenRepository, mailer Mailer, frontendURL string, opts ...Option) *ResetService {
	return &ResetService{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		options:     buildOptions(opts),
	}
}

// Request emails a reset link to a known address. An unknown address is
// not an error, and mail delivery failures are only logged, so callers
// cannot tell the two apart.
func (s *ResetService) Request(ctx context.Context, email string) error {
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.Validation("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		s.metrics.RecordPasswordReset("request", "unknown")
		return nil
	}
	if err != nil {
		s.metrics.RecordPasswordReset("request", "error")
		return err
	}

	raw, hash, err := generateResetToken()
	if err != nil {
		s.metrics.RecordPasswordReset("request", "error")
		return err
	}

	now := s.now().UTC()
	err = s.tokens.Create(ctx, core.ResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		s.metrics.RecordPasswordReset("request", "error")
		return err
	}
	s.metrics.RecordPasswordReset("request", "issued")

	if err := s.mailer.Send(ctx, user.Email, resetSubject, resetEmailHTML(s.resetLink(raw))); err != nil {
		s.metrics.RecordEmail("failed")
		s.logger.Error("reset email not sent",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		return nil
	}
	s.metrics.RecordEmail("sent")
	return nil
}

// Reset sets a new password using a token from Request. The token is
// consumed in the same transaction as the password update.
func (s *ResetService) Reset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || strings.TrimSpace(newPassword) == "" {
		return core.Validation("token and new password are required")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	hash := HashResetToken(token)
	now := s.now().UTC()

	if _, err := s.tokens.FindValidUser(ctx, hash, now); err != nil {
		return s.redeemError(err)
	}

	pwHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.metrics.RecordPasswordReset("redeem", "error")
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.tokens.Redeem(ctx, hash, now, pwHash); err != nil {
		return s.redeemError(err)
	}

	s.metrics.RecordPasswordReset("redeem", "success")
	return nil
}

func (s *ResetService) redeemError(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		s.metrics.RecordPasswordReset("redeem", "invalid")
		return core.ErrResetTokenInvalid
	}
	s.metrics.RecordPasswordReset("redeem", "error")
	return err
}

func (s *ResetService) resetLink(raw string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(raw)
}

// HashResetToken returns the lowercase hex SHA-256 stored for a raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateResetToken() (raw, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating reset token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}

func resetEmailHTML(link string) string {
	return fmt.Sprintf(`<div style="font-family:Arial">
  <h2>Redefinição de senha</h2>
  <p>Clique no botão abaixo:</p>
  <p><a href="%[1]s" style="background:#4a55ff;color:#fff;padding:10px 14px;border-radius:8px;text-decoration:none">Redefinir senha</a></p>
  <p>Ou copie e cole:</p>
  <p>%[1]s</p>
  <p><small>Expira em %[2]d minutos.</small></p>
</div>`, link, int(ResetTokenTTL/time.Minute))
}
