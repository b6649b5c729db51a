// Package postgres is the PostgreSQL storage backend built on pgxpool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Config controls the pool and connection retries.
type Config struct {
	DSN           string
	MaxConns      int
	MaxConnLife   time.Duration
	MaxConnIdle   time.Duration
	HealthCheck   time.Duration
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig returns pool settings for dsn.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:           dsn,
		MaxConns:      10,
		MaxConnLife:   30 * time.Minute,
		MaxConnIdle:   5 * time.Minute,
		HealthCheck:   30 * time.Second,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
}

// DB owns the connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens the pool, retrying transient failures.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MaxConnLife > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLife
	}
	if cfg.MaxConnIdle > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdle
	}
	if cfg.HealthCheck > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheck
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying database connection",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryInterval):
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = fmt.Errorf("create pool: %w", err)
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = fmt.Errorf("ping database: %w", err)
			continue
		}
		return &DB{Pool: pool, logger: logger}, nil
	}
	return nil, fmt.Errorf("connect to database after %d retries: %w", cfg.MaxRetries, lastErr)
}

// Close releases the pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	var result string
	return db.Pool.QueryRow(ctx, "SELECT 'healthy'").Scan(&result)
}

// Migrate applies the embedded schema. Statements are idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("apply schema: %w", err))
	}
	db.logger.Info("database schema applied")
	return nil
}

// Repositories exposes the pool through the storage contracts.
func (db *DB) Repositories() storage.Repositories {
	return storage.Repositories{
		Users:       NewUserRepository(db.Pool),
		Permissions: NewPermissionRepository(db.Pool),
		ResetTokens: NewResetTokenRepository(db.Pool),
		News:        NewNewsRepository(db.Pool),
		Banks:       NewBankRepository(db.Pool),
		Occurrences: NewOccurrenceRepository(db.Pool),
		Ping:        db.HealthCheck,
		Close:       db.Close,
	}
}

const uniqueViolation = "23505"

// mapError turns driver errors into coded errors. what names the entity in
// client-facing messages.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.NotFound("%s not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return core.WrapError(core.Conflict("%s already exists", what), err)
	}
	return core.WrapError(core.ErrStorageFailed, err)
}
