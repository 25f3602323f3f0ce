package stream

import (
	"errors"
	"sync"

	"github.com/opsnet/asyncio/pkg/async"
)

// DelimitedByteSource rewrites origin's byte stream, replacing every
// non-overlapping occurrence of delim with a distinguished sentinel buffer
// value (the same reference every time, for this instance). Consumers must
// detect the sentinel by identity (==), never by content. A partial match
// still pending when origin ends is flushed as an ordinary (non-sentinel)
// buffer holding that prefix of delim.
type DelimitedByteSource struct {
	NoSkip

	origin  ByteSource
	delim   []byte
	failure []int

	mu       sync.Mutex
	buf      []byte
	eof      bool
	sentinel *Buffer
}

// NewDelimitedByteSource wraps origin, scanning for delim using a
// Knuth-Morris-Pratt automaton built from delim's precomputed failure
// table. delim must be non-empty.
func NewDelimitedByteSource(origin ByteSource, delim []byte) *DelimitedByteSource {
	if len(delim) == 0 {
		panic("stream: delimiter must be non-empty")
	}
	d := make([]byte, len(delim))
	copy(d, delim)
	return &DelimitedByteSource{
		origin:   origin,
		delim:    d,
		failure:  kmpFailureTable(d),
		sentinel: &Buffer{},
	}
}

// Sentinel returns this instance's boundary marker. Compare a Read result
// against it with ==.
func (d *DelimitedByteSource) Sentinel() *Buffer { return d.sentinel }

// Read implements ByteSource.
func (d *DelimitedByteSource) Read() *async.Async[*Buffer] {
	out, complete, fail := async.New[*Buffer]()
	go d.serve(complete, fail)
	return out
}

func (d *DelimitedByteSource) serve(complete func(*Buffer), fail func(error)) {
	for {
		d.mu.Lock()
		if idx := kmpSearch(d.buf, d.delim, d.failure); idx >= 0 {
			if idx > 0 {
				out := d.buf[:idx]
				d.buf = d.buf[idx:]
				d.mu.Unlock()
				complete(NewBuffer(out))
				return
			}
			d.buf = d.buf[len(d.delim):]
			d.mu.Unlock()
			complete(d.sentinel)
			return
		}

		safeLen := len(d.buf) - (len(d.delim) - 1)
		if safeLen > 0 {
			out := d.buf[:safeLen]
			d.buf = d.buf[safeLen:]
			d.mu.Unlock()
			complete(NewBuffer(out))
			return
		}

		if d.eof {
			if len(d.buf) > 0 {
				out := d.buf
				d.buf = nil
				d.mu.Unlock()
				complete(NewBuffer(out))
				return
			}
			d.mu.Unlock()
			fail(async.End)
			return
		}
		d.mu.Unlock()

		chunk, err := d.origin.Read().Wait()
		d.mu.Lock()
		if err != nil {
			if errors.Is(err, async.End) {
				d.eof = true
				d.mu.Unlock()
				continue
			}
			d.mu.Unlock()
			fail(err)
			return
		}
		d.buf = append(d.buf, chunk.Bytes()...)
		d.mu.Unlock()
	}
}

// Close implements ByteSource.
func (d *DelimitedByteSource) Close() *async.Async[struct{}] {
	return d.origin.Close()
}

func kmpFailureTable(pattern []byte) []int {
	f := make([]int, len(pattern))
	k := 0
	for i := 1; i < len(pattern); i++ {
		for k > 0 && pattern[i] != pattern[k] {
			k = f[k-1]
		}
		if pattern[i] == pattern[k] {
			k++
		}
		f[i] = k
	}
	return f
}

// kmpSearch returns the index of the first occurrence of pattern in text,
// or -1 if pattern does not occur in text.
func kmpSearch(text, pattern []byte, failure []int) int {
	if len(pattern) == 0 {
		return -1
	}
	k := 0
	for i := 0; i < len(text); i++ {
		for k > 0 && text[i] != pattern[k] {
			k = failure[k-1]
		}
		if text[i] == pattern[k] {
			k++
		}
		if k == len(pattern) {
			return i - len(pattern) + 1
		}
	}
	return -1
}
