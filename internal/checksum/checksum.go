// Package checksum fingerprints scene files and export outputs.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Key returns a digest over the given parts, separated so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	return Sum([]byte(strings.Join(parts, "\x00")))
}
