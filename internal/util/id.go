package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 24-character hex id.
func NewID() string {
	return RandomHex(12)
}

// RandomHex returns n random bytes hex encoded. It panics only if the
// system random source fails.
func RandomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("util: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
