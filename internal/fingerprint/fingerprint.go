// Package fingerprint derives the content identity used as the cache key.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a fingerprint in characters
const Size = sha256.Size * 2

// Of returns the lowercase hex SHA-256 digest of data. Identical bytes
// always yield the same fingerprint, regardless of the URL they came from.
func Of(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether s has the shape of a fingerprint
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
