package auth

import (
	"context"
	"testing"

	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	_, repos := newRepos()
	id := seedUser(t, repos, "ana@example.com", "s3nha-forte", true, "")
	tokens := newTokens(t)
	metrics := newFakeMetrics()
	svc := NewService(repos.Users, repos.Permissions, tokens, WithHasher(testHasher), WithMetrics(metrics))

	res, err := svc.Login(context.Background(), "  Ana@Example.COM ", "s3nha-forte")
	require.NoError(t, err)

	assert.Equal(t, id, res.User.ID)
	assert.Equal(t, "Ana Souza", res.User.Name)
	assert.Equal(t, []core.Role{core.RolePortal}, res.Roles, "accounts without permissions default to PORTAL")

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, res.ExpiresAt.Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, 1, metrics.logins["success"])
}

func TestLogin_ReturnsStoredRoles(t *testing.T) {
	_, repos := newRepos()
	id := seedUser(t, repos, "ana@example.com", "s3nha-forte", true, core.RoleSupervisor)
	repos.Permissions.(memory.Permissions).Grant(id, core.RoleAdmin)
	svc := NewService(repos.Users, repos.Permissions, newTokens(t), WithHasher(testHasher))

	res, err := svc.Login(context.Background(), "ana@example.com", "s3nha-forte")
	require.NoError(t, err)
	assert.Equal(t, []core.Role{core.RoleAdmin, core.RoleSupervisor}, res.Roles)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	_, repos := newRepos()
	seedUser(t, repos, "ana@example.com", "s3nha-forte", true, core.RolePortal)
	seedUser(t, repos, "inativo@example.com", "s3nha-forte", false, core.RolePortal)
	metrics := newFakeMetrics()
	svc := NewService(repos.Users, repos.Permissions, newTokens(t), WithHasher(testHasher), WithMetrics(metrics))

	cases := map[string][2]string{
		"unknown email":  {"ninguem@example.com", "s3nha-forte"},
		"wrong password": {"ana@example.com", "errada"},
		"inactive":       {"inativo@example.com", "s3nha-forte"},
		"empty password": {"ana@example.com", ""},
	}

	var messages []string
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), c[0], c[1])
			assert.Nil(t, res)
			require.ErrorIs(t, err, core.ErrInvalidCredentials)
			messages = append(messages, err.Error())
		})
	}

	require.Len(t, messages, len(cases))
	for _, m := range messages[1:] {
		assert.Equal(t, messages[0], m)
	}
	assert.Equal(t, len(cases), metrics.logins["rejected"])
}

func TestLogin_EmptyHashIsRejected(t *testing.T) {
	_, repos := newRepos()
	_, err := repos.Users.Create(context.Background(), core.User{
		Name: "Sem Senha", Email: "sem@example.com", Active: true,
	}, core.RolePortal)
	require.NoError(t, err)

	svc := NewService(repos.Users, repos.Permissions, newTokens(t), WithHasher(testHasher))
	_, err = svc.Login(context.Background(), "sem@example.com", "qualquer")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}
