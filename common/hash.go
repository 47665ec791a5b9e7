// Package common holds small shared value types: the 32-byte hash used
// for block and transaction identity, and the generic LRU cache wrapper
// adapted from klaytn's common/cache.go.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the width of a double-SHA-256 digest.
const HashLength = 32

// Hash is a 256-bit hash stored internally in the same byte order the
// chain serializes it in (little-endian wire order). String() reverses
// it for display, matching Bitcoin-family convention.
type Hash [HashLength]byte

// BytesToHash copies b (left-padded/truncated) into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the wire-order bytes.
func (h Hash) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero hash (used to detect the
// coinbase's null previous-output reference).
func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// String renders the hash in the reversed, big-endian-looking hex form
// used by block explorers and RPC responses.
func (h Hash) String() string {
	rev := make([]byte, HashLength)
	for i := range h {
		rev[i] = h[HashLength-1-i]
	}
	return hex.EncodeToString(rev)
}

// HashFromString parses the reversed-hex display form back into wire order.
func HashFromString(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("common: invalid hash hex %q: %w", s, err)
	}
	if len(b) != HashLength {
		return Hash{}, fmt.Errorf("common: hash %q has %d bytes, want %d", s, len(b), HashLength)
	}
	var h Hash
	for i := range b {
		h[i] = b[HashLength-1-i]
	}
	return h, nil
}

// HashFromStringPanic is HashFromString for constants initialized at
// package load time, where a malformed literal is a programmer error.
func HashFromStringPanic(s string) Hash {
	h, err := HashFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Less provides a deterministic numeric ordering over hashes, used by
// the header resolver to break chainwork ties (spec §4.1 step 4).
func (h Hash) Less(o Hash) bool {
	for i := HashLength - 1; i >= 0; i-- {
		if h[i] != o[i] {
			return h[i] < o[i]
		}
	}
	return false
}
