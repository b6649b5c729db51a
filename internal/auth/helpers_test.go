package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage"
	"github.com/remessasegura/backend/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testKey = "0123456789abcdef0123456789abcdef"

var (
	testHasher = BcryptHasher{Cost: bcrypt.MinCost}
	baseTime   = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMetrics struct {
	mu     sync.Mutex
	logins map[string]int
	resets map[string]int
	emails map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		logins: make(map[string]int),
		resets: make(map[string]int),
		emails: make(map[string]int),
	}
}

func (m *fakeMetrics) RecordLogin(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[result]++
}

func (m *fakeMetrics) RecordPasswordReset(stage, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[stage+"/"+result]++
}

func (m *fakeMetrics) RecordEmail(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[status]++
}

func newTokens(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testKey, "remessa-segura", "remessa-segura-portal")
	require.NoError(t, err)
	return m
}

// seedUser stores an account with the given password and optional role.
func seedUser(t *testing.T, repos storage.Repositories, email, password string, active bool, role core.Role) uuid.UUID {
	t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(t, err)
	id, err := repos.Users.Create(context.Background(), core.User{
		Name:         "Ana Souza",
		Email:        email,
		PasswordHash: hash,
		Active:       active,
	}, role)
	require.NoError(t, err)
	return id
}

func newRepos() (*memory.Store, storage.Repositories) {
	s := memory.New()
	return s, s.Repositories()
}
