package random

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRandomString returns a hex string of the given length built from
// cryptographically secure entropy.
func NewRandomString(length int) string {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	return hex.EncodeToString(buf)[:length]
}
