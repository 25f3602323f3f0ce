// Package stream implements the universal ByteSource/ByteSink contracts and
// the library of composable source transforms built on top of them
// (pushback, sub-range, throttling, delimited scanning, gzip, caching,
// file-backed, in-memory multiplexed, pipe). See spec sections 3 and 4.1-4.9.
package stream

import (
	"fmt"

	"github.com/opsnet/asyncio/pkg/async"
)

// Buffer is an immutable, ordered byte slice handed from a source to its
// consumer. Every Buffer returned from a read is a new logical buffer: the
// consumer must treat its contents as read-only, and must never reuse a
// buffer object a source has already returned. Sources that need to share a
// backing array (ByteSourceCache) slice a private view per buffer rather
// than mutate a shared one in place.
type Buffer struct {
	data []byte
}

// NewBuffer wraps b as a Buffer without copying. The caller must not mutate
// b afterwards; ownership is transferred to the Buffer.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the buffer's contents. The returned slice must be treated
// read-only.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Slice returns a new Buffer viewing b.data[lo:hi]. The view shares the
// backing array; per the read-only contract this is safe as long as no
// party ever mutates a published buffer.
func (b *Buffer) Slice(lo, hi int) *Buffer {
	return &Buffer{data: b.data[lo:hi]}
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%d bytes)", b.Len())
}

// ReadAsync is shorthand for constructing an already-resolved read result;
// transforms that can answer synchronously (pushback replay, cache hit) use
// this instead of spinning a goroutine.
func ReadAsync(buf *Buffer, err error) *async.Async[*Buffer] {
	return async.Done(buf, err)
}
