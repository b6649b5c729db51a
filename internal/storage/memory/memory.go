// internal/storage/memory/memory.go
// Package memory is an in-process storage backend for development and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
)

// Store holds every table in maps guarded by one lock. Values are copied in
// and out so callers never share memory with the store.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users   map[uuid.UUID]core.User
	roles   map[uuid.UUID][]core.Role
	tokens  []core.ResetToken
	news    map[uuid.UUID]core.News
	banks   map[uuid.UUID]core.Bank
	reasons map[uuid.UUID]core.OccurrenceReason
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[uuid.UUID]core.User),
		roles:   make(map[uuid.UUID][]core.Role),
		news:    make(map[uuid.UUID]core.News),
		banks:   make(map[uuid.UUID]core.Bank),
		reasons: make(map[uuid.UUID]core.OccurrenceReason),
	}
}

// Repositories exposes the store through the storage contracts.
func (s *Store) Repositories() storage.Repositories {
	return storage.Repositories{
		Users:       Users{s},
		Permissions: Permissions{s},
		ResetTokens: ResetTokens{s},
		News:        News{s},
		Banks:       Banks{s},
		Occurrences: Occurrences{s},
		Ping:        func(context.Context) error { return nil },
		Close:       func() {},
	}
}

// AddBank seeds the bank catalog and returns the stored row.
func (s *Store) AddBank(number, name string) core.Bank {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := core.Bank{ID: uuid.New(), Number: number, Name: name}
	s.banks[b.ID] = b
	return b
}

// TokenCount returns how many reset tokens are stored.
func (s *Store) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Users implements storage.UserRepository.
type Users struct{ s *Store }

func (r Users) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = core.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r Users) Create(ctx context.Context, u core.User, role core.Role) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = core.NormalizeEmail(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return uuid.Nil, core.Conflict("email already registered")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.s.now().UTC()
	r.s.users[u.ID] = u
	if role != "" {
		r.s.roles[u.ID] = []core.Role{role}
	}
	return u.ID, nil
}

// Permissions implements storage.PermissionRepository.
type Permissions struct{ s *Store }

func (r Permissions) CodesByUser(ctx context.Context, userID uuid.UUID) ([]core.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	codes := slices.Clone(r.s.roles[userID])
	slices.Sort(codes)
	return codes, nil
}

// Grant adds a permission code to a user.
func (r Permissions) Grant(userID uuid.UUID, role core.Role) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !slices.Contains(r.s.roles[userID], role) {
		r.s.roles[userID] = append(r.s.roles[userID], role)
	}
}

// ResetTokens implements storage.ResetTokenRepository.
type ResetTokens struct{ s *Store }

func (r ResetTokens) Create(ctx context.Context, t core.ResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.s.now().UTC()
	}
	r.s.tokens = append(r.s.tokens, t)
	return nil
}

// validIndex returns the newest valid token with hash. Caller holds the lock.
func (r ResetTokens) validIndex(hash string, now time.Time) int {
	found := -1
	for i, t := range r.s.tokens {
		if t.TokenHash != hash || !t.Valid(now) {
			continue
		}
		if found < 0 || t.CreatedAt.After(r.s.tokens[found].CreatedAt) {
			found = i
		}
	}
	return found
}

func (r ResetTokens) FindValidUser(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i := r.validIndex(tokenHash, now)
	if i < 0 {
		return uuid.Nil, core.ErrNotFound
	}
	return r.s.tokens[i].UserID, nil
}

func (r ResetTokens) Redeem(ctx context.Context, tokenHash string, now time.Time, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.validIndex(tokenHash, now)
	if i < 0 {
		return core.ErrNotFound
	}
	u, ok := r.s.users[r.s.tokens[i].UserID]
	if !ok {
		return core.ErrNotFound
	}
	used := now
	r.s.tokens[i].UsedAt = &used
	u.PasswordHash = passwordHash
	r.s.users[u.ID] = u
	return nil
}

func (r ResetTokens) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.tokens[:0]
	var purged int64
	for _, t := range r.s.tokens {
		if t.ExpiresAt.Before(before) || (t.UsedAt != nil && t.UsedAt.Before(before)) {
			purged++
			continue
		}
		kept = append(kept, t)
	}
	r.s.tokens = kept
	return purged, nil
}

// News implements storage.NewsRepository.
type News struct{ s *Store }

// descNullsLast orders more recent times first and nil last.
func descNullsLast(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

func byPublication(a, b core.News) int {
	if c := descNullsLast(a.PublishedAt, b.PublishedAt); c != 0 {
		return c
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

func (r News) filter(keep func(core.News) bool, order func(a, b core.News) int, limit int) []core.News {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]core.News, 0)
	for _, n := range r.s.news {
		if keep(n) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, order)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func published(n core.News) bool { return n.Published }

func (r News) ListPublished(ctx context.Context) ([]core.News, error) {
	return r.filter(published, byPublication, 0), nil
}

func (r News) BySlug(ctx context.Context, slug string) (*core.News, error) {
	found := r.filter(func(n core.News) bool { return n.Published && n.Slug == slug }, byPublication, 1)
	if len(found) == 0 {
		return nil, core.ErrNotFound
	}
	return &found[0], nil
}

func (r News) ByCategory(ctx context.Context, category string) ([]core.News, error) {
	return r.filter(func(n core.News) bool { return n.Published && n.Category == category }, byPublication, 0), nil
}

func (r News) Highlights(ctx context.Context, limit int) ([]core.News, error) {
	return r.filter(func(n core.News) bool { return n.Published && n.Featured },
		func(a, b core.News) int {
			switch {
			case a.FeaturedOrder != nil && b.FeaturedOrder != nil:
				if c := cmp.Compare(*a.FeaturedOrder, *b.FeaturedOrder); c != 0 {
					return c
				}
			case a.FeaturedOrder != nil:
				return -1
			case b.FeaturedOrder != nil:
				return 1
			}
			return descNullsLast(a.PublishedAt, b.PublishedAt)
		}, limit), nil
}

func (r News) MostRead(ctx context.Context, limit int) ([]core.News, error) {
	return r.filter(published, func(a, b core.News) int {
		if c := cmp.Compare(b.Views, a.Views); c != 0 {
			return c
		}
		return descNullsLast(a.PublishedAt, b.PublishedAt)
	}, limit), nil
}

func (r News) ListAll(ctx context.Context) ([]core.News, error) {
	return r.filter(func(core.News) bool { return true }, func(a, b core.News) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	}, 0), nil
}

func (r News) ByID(ctx context.Context, id uuid.UUID) (*core.News, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.news[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &n, nil
}

// slugTaken reports whether another article uses slug. Caller holds the lock.
func (r News) slugTaken(slug string, except uuid.UUID) bool {
	for id, n := range r.s.news {
		if id != except && n.Slug == slug {
			return true
		}
	}
	return false
}

func (r News) Create(ctx context.Context, n core.News) (*core.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.slugTaken(n.Slug, uuid.Nil) {
		return nil, core.Conflict("slug %q already in use", n.Slug)
	}
	n.ID = uuid.New()
	n.CreatedAt = r.s.now().UTC()
	n.UpdatedAt = time.Time{}
	n.Views = 0
	r.s.news[n.ID] = n
	return &n, nil
}

func (r News) Update(ctx context.Context, id uuid.UUID, n core.News) (*core.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.news[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if r.slugTaken(n.Slug, id) {
		return nil, core.Conflict("slug %q already in use", n.Slug)
	}
	n.ID = id
	n.CreatedAt = current.CreatedAt
	n.Views = current.Views
	n.UpdatedAt = r.s.now().UTC()
	r.s.news[id] = n
	return &n, nil
}

func (r News) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.news[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.s.news, id)
	return nil
}

func (r News) IncrementViews(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.news[id]
	if !ok {
		return core.ErrNotFound
	}
	n.Views++
	r.s.news[id] = n
	return nil
}

func (r News) SetCover(ctx context.Context, id uuid.UUID, url string) (*core.News, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.news[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	n.CoverImage = url
	n.UpdatedAt = r.s.now().UTC()
	r.s.news[id] = n
	return &n, nil
}

// Banks implements storage.BankRepository.
type Banks struct{ s *Store }

func (r Banks) List(ctx context.Context) ([]core.Bank, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]core.Bank, 0, len(r.s.banks))
	for _, b := range r.s.banks {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b core.Bank) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

func (r Banks) ByID(ctx context.Context, id uuid.UUID) (*core.Bank, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.banks[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &b, nil
}

// Occurrences implements storage.OccurrenceRepository.
type Occurrences struct{ s *Store }

func matchesKey(r core.OccurrenceReason, k core.OccurrenceReasonKey) bool {
	return r.BankID == k.BankID && r.Occurrence == k.Occurrence && r.Reason == k.Reason
}

func (r Occurrences) List(ctx context.Context, bankID uuid.UUID, occurrence string) ([]core.OccurrenceReason, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]core.OccurrenceReason, 0)
	for _, o := range r.s.reasons {
		if o.BankID == bankID && o.Occurrence == occurrence {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b core.OccurrenceReason) int { return cmp.Compare(a.Reason, b.Reason) })
	return out, nil
}

func (r Occurrences) Get(ctx context.Context, key core.OccurrenceReasonKey) (*core.OccurrenceReason, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.reasons {
		if matchesKey(o, key) {
			return &o, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r Occurrences) Create(ctx context.Context, o core.OccurrenceReason) (*core.OccurrenceReason, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := core.OccurrenceReasonKey{BankID: o.BankID, Occurrence: o.Occurrence, Reason: o.Reason}
	for _, existing := range r.s.reasons {
		if matchesKey(existing, key) {
			return nil, core.Conflict("reason %s already exists for occurrence %s", o.Reason, o.Occurrence)
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.s.reasons[o.ID] = o
	return &o, nil
}

func (r Occurrences) Update(ctx context.Context, key core.OccurrenceReasonKey, patch core.OccurrenceReasonPatch) (*core.OccurrenceReason, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, o := range r.s.reasons {
		if !matchesKey(o, key) {
			continue
		}
		if patch.Description != nil {
			o.Description = *patch.Description
		}
		if patch.Note != nil {
			note := *patch.Note
			o.Note = &note
		}
		now := r.s.now().UTC()
		o.UpdatedAt = &now
		r.s.reasons[id] = o
		return &o, nil
	}
	return nil, core.ErrNotFound
}
