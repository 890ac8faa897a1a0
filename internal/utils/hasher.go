package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash generates a SHA-256 hash of the input string
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// CacheKey joins a namespace with the hash of a secret-bearing value (a
// cookie header, say) so the value never appears in the cache key.
func CacheKey(namespace string, secret ...string) string {
	return namespace + ":" + Hash(strings.Join(secret, "\x00"))
}
