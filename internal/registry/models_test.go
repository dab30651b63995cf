package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/registry"
)

func TestTokenKey(t *testing.T) {
	key := registry.TokenKey("fcm-token-aaaa")

	assert.Len(t, key, 64, "key should be a SHA-256 hex digest")
	assert.Equal(t, key, registry.TokenKey("fcm-token-aaaa"), "key derivation must be stable")
}

func TestTokenKey_SharedPrefixDoesNotCollide(t *testing.T) {
	// Tokens sharing a long common prefix used to collide when keys were
	// derived from a sanitized prefix of the token value.
	a := registry.TokenKey("fcm-token-0123456789-installation-A")
	b := registry.TokenKey("fcm-token-0123456789-installation-B")

	assert.NotEqual(t, a, b)
}
