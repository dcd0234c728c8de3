package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 12 hex characters, for display.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeInputHash fingerprints an ordered list of numeric inputs. Values are
// rendered with the shortest exact representation so identical inputs always
// hash identically.
func ComputeInputHash(values ...float64) Hash {
	var data strings.Builder
	for i, v := range values {
		if i > 0 {
			data.WriteByte('|')
		}
		data.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return NewHash([]byte(data.String()))
}
