// Package common holds the small shared types used across the chain core.
package common

import (
	"encoding/hex"
	"strings"
)

// HashLength is the expected length of a hash in bytes.
const HashLength = 32

// Hash is a 32-byte digest, the output of the chain's SHA-256 hashing rules.
type Hash [HashLength]byte

// BytesToHash sets b to hash. If b is larger than HashLength, b is cropped
// from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses s (with or without 0x prefix) into a Hash.
func HexToHash(s string) Hash {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

// Bytes returns a copy of the hash contents.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashLength)
	copy(out, h[:])
	return out
}

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is all zeroes.
func (h Hash) IsZero() bool { return h == Hash{} }

// CopyBytes returns an exact copy of the provided bytes.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
