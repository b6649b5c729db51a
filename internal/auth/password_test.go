package auth

import (
	"strings"
	"testing"

	"github.com/remessasegura/backend/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	hash, err := testHasher.Hash("segredo1")
	require.NoError(t, err)
	assert.NoError(t, testHasher.Compare(hash, "segredo1"))
	assert.Error(t, testHasher.Compare(hash, "segredo2"))
}

func TestBcryptHasher_TooLongIsValidation(t *testing.T) {
	_, err := testHasher.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCheckPassword(t *testing.T) {
	assert.NoError(t, checkPassword("segredo"))
	assert.NoError(t, checkPassword(strings.Repeat("a", MaxPasswordBytes)))
	assert.ErrorIs(t, checkPassword("12345"), core.ErrValidation)
	assert.ErrorIs(t, checkPassword(strings.Repeat("a", MaxPasswordBytes+1)), core.ErrValidation)
}
