// Package multipart implements the streaming multipart/form-data codec:
// MultipartParser, a delimited-source-based parser yielding a lazy
// sequence of Part values, and MultipartByteSource, a generator that
// interleaves framing with part bodies. See spec sections 4.12-4.13, 6.
package multipart

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const boundaryAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultBoundaryLength is the length of a randomly generated boundary.
const DefaultBoundaryLength = 22

// NewRandomBoundary returns a fresh ASCII-alphanumeric boundary of
// DefaultBoundaryLength characters, as used when the caller does not
// supply one.
func NewRandomBoundary() string {
	buf := make([]byte, DefaultBoundaryLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is exceptional; fall back to a UUID-derived
		// string so callers never see a zero-length boundary.
		return uuid.NewString()[:DefaultBoundaryLength]
	}
	for i, b := range buf {
		buf[i] = boundaryAlphabet[int(b)%len(boundaryAlphabet)]
	}
	return string(buf)
}
