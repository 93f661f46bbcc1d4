package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	return randomHex(16)
}

// NewToken returns a 64-char lowercase hex string backed by 32 bytes from crypto/rand.
// Used for approval links, so it must stay unguessable.
func NewToken() string {
	return randomHex(32)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
