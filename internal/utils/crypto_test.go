// internal/utils/crypto_test.go
package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLicenseKeyFormat(t *testing.T) {
	format := regexp.MustCompile(`^[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}$`)

	for i := 0; i < 100; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		assert.Regexp(t, format, key)
	}
}

func TestGenerateLicenseKeyIsRandom(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key, err := GenerateLicenseKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "duplicate key generated: %s", key)
		seen[key] = true
	}
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("secret-key", "secret-key"))
	assert.False(t, SecureCompare("secret-key", "secret-kex"))
	assert.False(t, SecureCompare("secret-key", "secret"))
	assert.False(t, SecureCompare("", "secret"))
	assert.True(t, SecureCompare("", ""))
}
