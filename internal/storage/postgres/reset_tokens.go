package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remessasegura/backend/internal/core"
)

// ResetTokenRepository implements storage.ResetTokenRepository.
type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

// NewResetTokenRepository creates a ResetTokenRepository.
func NewResetTokenRepository(pool *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Create stores the token hash.
func (r *ResetTokenRepository) Create(ctx context.Context, t core.ResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reset_senha_tokens (usuario_id, token_hash, expira_em)
		VALUES ($1, $2, $3)`,
		t.UserID, t.TokenHash, t.ExpiresAt,
	)
	return mapError(err, "reset token")
}

// FindValidUser returns the owner of the newest valid token with hash.
func (r *ResetTokenRepository) FindValidUser(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT usuario_id
		FROM reset_senha_tokens
		WHERE token_hash = $1
		  AND used_at IS NULL
		  AND expira_em > $2
		ORDER BY created_at DESC
		LIMIT 1`,
		tokenHash, now,
	).Scan(&userID)
	if err != nil {
		return uuid.Nil, mapError(err, "reset token")
	}
	return userID, nil
}

// Redeem consumes the token before touching the password, so of two
// concurrent redeems only the first finds a row.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE reset_senha_tokens
			SET used_at = $2
			WHERE id = (
				SELECT id FROM reset_senha_tokens
				WHERE token_hash = $1
				  AND used_at IS NULL
				  AND expira_em > $2
				ORDER BY created_at DESC
				LIMIT 1
				FOR UPDATE
			)
			AND used_at IS NULL
			RETURNING usuario_id`,
			tokenHash, now,
		).Scan(&userID)
		if err != nil {
			return mapError(err, "reset token")
		}

		tag, err := tx.Exec(ctx, `UPDATE usuarios SET senha_hash = $2 WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return mapError(err, "user")
		}
		if tag.RowsAffected() == 0 {
			return core.NotFound("user not found")
		}
		return nil
	})
}

// PurgeExpired removes tokens that expired or were used before the cutoff.
func (r *ResetTokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM reset_senha_tokens
		WHERE expira_em < $1 OR used_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge reset tokens: %w", mapError(err, "reset token"))
	}
	return tag.RowsAffected(), nil
}
