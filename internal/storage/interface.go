// internal/storage/interface.go
// Package storage defines the persistence contracts. Lookups that find
// nothing return core.ErrNotFound; unique violations return core.ErrConflict.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
)

// UserRepository persists portal accounts. Emails are compared normalized.
type UserRepository interface {
	// FindByEmail returns the account for email.
	FindByEmail(ctx context.Context, email string) (*core.User, error)

	// ExistsByEmail reports whether an account uses email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Create stores u with one permission code and returns the new id.
	Create(ctx context.Context, u core.User, role core.Role) (uuid.UUID, error)
}

// PermissionRepository resolves permission codes.
type PermissionRepository interface {
	// CodesByUser returns the user's codes ordered by code.
	CodesByUser(ctx context.Context, userID uuid.UUID) ([]core.Role, error)
}

// ResetTokenRepository persists password-reset tokens by hash.
type ResetTokenRepository interface {
	Create(ctx context.Context, t core.ResetToken) error

	// FindValidUser returns the owner of an unconsumed, unexpired token.
	FindValidUser(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)

	// Redeem consumes the token and sets the owner's password hash
	// atomically. A token that is missing, used or expired yields
	// core.ErrNotFound and changes nothing.
	Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) error

	// PurgeExpired deletes tokens expired or consumed before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// NewsRepository persists portal articles.
type NewsRepository interface {
	ListPublished(ctx context.Context) ([]core.News, error)
	BySlug(ctx context.Context, slug string) (*core.News, error)
	ByCategory(ctx context.Context, category string) ([]core.News, error)
	Highlights(ctx context.Context, limit int) ([]core.News, error)
	MostRead(ctx context.Context, limit int) ([]core.News, error)
	ListAll(ctx context.Context) ([]core.News, error)
	ByID(ctx context.Context, id uuid.UUID) (*core.News, error)
	Create(ctx context.Context, n core.News) (*core.News, error)
	Update(ctx context.Context, id uuid.UUID, n core.News) (*core.News, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
	SetCover(ctx context.Context, id uuid.UUID, url string) (*core.News, error)
}

// BankRepository reads the bank catalog.
type BankRepository interface {
	// List returns banks ordered by number.
	List(ctx context.Context) ([]core.Bank, error)
	ByID(ctx context.Context, id uuid.UUID) (*core.Bank, error)
}

// OccurrenceRepository persists occurrence reasons.
type OccurrenceRepository interface {
	// List returns the reasons of one occurrence ordered by reason.
	List(ctx context.Context, bankID uuid.UUID, occurrence string) ([]core.OccurrenceReason, error)
	Get(ctx context.Context, key core.OccurrenceReasonKey) (*core.OccurrenceReason, error)
	Create(ctx context.Context, r core.OccurrenceReason) (*core.OccurrenceReason, error)
	Update(ctx context.Context, key core.OccurrenceReasonKey, patch core.OccurrenceReasonPatch) (*core.OccurrenceReason, error)
}

// Repositories bundles every repository of one backend.
type Repositories struct {
	Users       UserRepository
	Permissions PermissionRepository
	ResetTokens ResetTokenRepository
	News        NewsRepository
	Banks       BankRepository
	Occurrences OccurrenceRepository

	// Ping checks the backend is reachable.
	Ping func(ctx context.Context) error
	// Close releases the backend.
	Close func()
}
