package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderID(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{13}-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateOrderID()
		require.Regexp(t, pattern, id)
		require.False(t, seen[id], "duplicate order id %s", id)
		seen[id] = true
	}
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s, 32)

	other, err := GenerateRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "*******1111", MaskNumber("01711111111"))
	assert.Equal(t, "123", MaskNumber("123"))
}
