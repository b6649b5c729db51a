package auth

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/remessasegura/backend/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var linkPattern = regexp.MustCompile(`https://portal\.example\.com/reset-password\?token=([A-Za-z0-9_%-]+)`)

type resetFixture struct {
	svc    *ResetService
	login  *Service
	mailer *MockMailer
	clock  *clock
	count  func() int
	stats  *fakeMetrics
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	store, repos := newRepos()
	seedUser(t, repos, "ana@example.com", "senha-antiga", true, core.RolePortal)

	ctrl := gomock.NewController(t)
	mailer := NewMockMailer(ctrl)
	c := &clock{now: baseTime}
	stats := newFakeMetrics()

	return &resetFixture{
		svc: NewResetService(repos.Users, repos.ResetTokens, mailer, "https://portal.example.com/",
			WithHasher(testHasher), WithClock(c.Now), WithMetrics(stats)),
		login:  NewService(repos.Users, repos.Permissions, newTokens(t), WithHasher(testHasher)),
		mailer: mailer,
		clock:  c,
		count:  store.TokenCount,
		stats:  stats,
	}
}

// expectLink captures the raw token of the next reset email.
func (f *resetFixture) expectLink(t *testing.T) func() string {
	t.Helper()
	var (
		mu  sync.Mutex
		raw string
	)
	f.mailer.EXPECT().
		Send(gomock.Any(), "ana@example.com", resetSubject, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, html string) error {
			m := linkPattern.FindStringSubmatch(html)
			require.NotNil(t, m, "reset email must carry the link: %s", html)
			token, err := url.QueryUnescape(m[1])
			require.NoError(t, err)
			mu.Lock()
			raw = token
			mu.Unlock()
			return nil
		})
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return raw
	}
}

func TestResetRequest_UnknownEmailHasNoSideEffects(t *testing.T) {
	f := newResetFixture(t)
	// no EXPECT: any Send fails the test

	err := f.svc.Request(context.Background(), "ninguem@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, f.count())
	assert.Equal(t, 1, f.stats.resets["request/unknown"])
}

func TestResetRequest_KnownEmailSendsLink(t *testing.T) {
	f := newResetFixture(t)
	token := f.expectLink(t)

	require.NoError(t, f.svc.Request(context.Background(), " ANA@example.com "))
	assert.Equal(t, 1, f.count())

	raw := token()
	assert.Len(t, raw, 43, "32 random bytes in unpadded base64url")
	assert.NotContains(t, raw, "=")
	assert.Equal(t, 1, f.stats.emails["sent"])
}

func TestResetRequest_MailFailureIsNotReported(t *testing.T) {
	f := newResetFixture(t)
	f.mailer.EXPECT().
		Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("smtp down"))

	err := f.svc.Request(context.Background(), "ana@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 1, f.count())
	assert.Equal(t, 1, f.stats.emails["failed"])
}

func TestReset_TokenIsSingleUse(t *testing.T) {
	f := newResetFixture(t)
	token := f.expectLink(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Request(ctx, "ana@example.com"))
	raw := token()

	require.NoError(t, f.svc.Reset(ctx, raw, "senha-nova"))

	_, err := f.login.Login(ctx, "ana@example.com", "senha-nova")
	require.NoError(t, err)
	_, err = f.login.Login(ctx, "ana@example.com", "senha-antiga")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	err = f.svc.Reset(ctx, raw, "outra-senha")
	assert.ErrorIs(t, err, core.ErrResetTokenInvalid)
	assert.Equal(t, 1, f.stats.resets["redeem/success"])
	assert.Equal(t, 1, f.stats.resets["redeem/invalid"])
}

func TestReset_ExpiredToken(t *testing.T) {
	f := newResetFixture(t)
	token := f.expectLink(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Request(ctx, "ana@example.com"))
	f.clock.Advance(ResetTokenTTL + time.Second)

	err := f.svc.Reset(ctx, token(), "senha-nova")
	assert.ErrorIs(t, err, core.ErrResetTokenInvalid)
}

func TestReset_UnknownToken(t *testing.T) {
	f := newResetFixture(t)
	err := f.svc.Reset(context.Background(), "nao-existe", "senha-nova")
	assert.ErrorIs(t, err, core.ErrResetTokenInvalid)
}

func TestReset_Validation(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	tests := []struct {
		name, token, password string
	}{
		{"empty token", "", "senha-nova"},
		{"blank password", "abc", "   "},
		{"short password", "abc", "12345"},
		{"short in characters", "abc", strings.Repeat("á", 5)},
		{"too long for bcrypt", "abc", strings.Repeat("a", 73)},
		{"too long in bytes", "abc", strings.Repeat("á", 37)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Reset(ctx, tt.token, tt.password)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestHashResetToken(t *testing.T) {
	h := HashResetToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.Equal(t, strings.ToLower(h), h)
}
