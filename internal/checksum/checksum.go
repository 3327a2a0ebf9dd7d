// Package checksum computes content digests for stored payloads.
// A digest is computed once when a record is written and re-verified on
// every load so silent corruption of the underlying file is detected.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest returns the hex-encoded SHA-256 hash of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest of data and compares it to want.
// It returns the recomputed digest and an error on mismatch.
func Verify(data []byte, want string) (string, error) {
	got := Digest(data)
	if got != want {
		return got, fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
	}
	return got, nil
}
