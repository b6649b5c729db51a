package collector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 5.4321 ")
	require.NoError(t, err)
	assert.Equal(t, "5.4321", d.String())

	_, err = ParseDecimal("5,4321")
	assert.Error(t, err, "comma separator must be rejected, not reinterpreted")

	_, err = ParseDecimal("")
	assert.Error(t, err)

	_, err = ParseDecimal("abc")
	assert.Error(t, err)
}

func TestParseOptionalDecimal(t *testing.T) {
	d, err := ParseOptionalDecimal("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	d, err = ParseOptionalDecimal("-0.13")
	require.NoError(t, err)
	assert.Equal(t, "-0.13", d.String())
}

func TestParseUnix(t *testing.T) {
	n, err := ParseUnix("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), n)

	_, err = ParseUnix("2024-01-01")
	assert.Error(t, err)
}

func TestNumberDecimal(t *testing.T) {
	d, err := NumberDecimal(json.Number("32.15"))
	require.NoError(t, err)
	assert.Equal(t, "32.15", d.String())

	_, err = NumberDecimal("")
	assert.Error(t, err)
}
