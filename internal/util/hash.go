package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

// CacheKey hashes the parts into a stable key.
func CacheKey(parts ...string) string {
	return SHA256Hex([]byte(strings.Join(parts, "\x1f")))
}
