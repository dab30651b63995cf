// Package registry provides push token registration storage and recipient
// resolution for alert fan-out.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
)

// RegisteredToken represents one client installation's push delivery address
// for a device. Inactive tokens are kept in the registry but excluded from
// fan-out.
type RegisteredToken struct {
	Token  string
	Active bool
}

// TokenKey derives the registry key for a token: the SHA-256 hex digest of
// the full token value. Distinct tokens always map to distinct keys.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
