package stream

import (
	"sync"

	"github.com/opsnet/asyncio/pkg/async"
)

// PushbackByteSource wraps a source and stores at most one buffer set aside
// by Unread. The next Read returns the stored buffer (possibly empty);
// Skip consumes the stored buffer first, then forwards any remainder to the
// underlying source. Calling Unread twice without an intervening Read is a
// programming error.
type PushbackByteSource struct {
	mu      sync.Mutex
	src     ByteSource
	pending *Buffer
	hasPend bool
}

// NewPushbackByteSource wraps src.
func NewPushbackByteSource(src ByteSource) *PushbackByteSource {
	return &PushbackByteSource{src: src}
}

// Unread sets buf aside to be replayed by the next Read.
func (p *PushbackByteSource) Unread(buf *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasPend {
		panic("stream: Unread called twice without an intervening Read")
	}
	p.pending = buf
	p.hasPend = true
}

// Read implements ByteSource.
func (p *PushbackByteSource) Read() *async.Async[*Buffer] {
	p.mu.Lock()
	if p.hasPend {
		buf := p.pending
		p.pending = nil
		p.hasPend = false
		p.mu.Unlock()
		return ReadAsync(buf, nil)
	}
	p.mu.Unlock()
	return p.src.Read()
}

// Skip implements ByteSource: it first drains the pending buffer, then
// forwards any remainder to the wrapped source.
func (p *PushbackByteSource) Skip(n int64) int64 {
	p.mu.Lock()
	if !p.hasPend {
		p.mu.Unlock()
		return p.src.Skip(n)
	}
	avail := int64(p.pending.Len())
	if n < avail {
		p.pending = p.pending.Slice(int(n), p.pending.Len())
		p.mu.Unlock()
		return n
	}
	p.pending = nil
	p.hasPend = false
	p.mu.Unlock()
	return avail + p.src.Skip(n-avail)
}

// Close implements ByteSource.
func (p *PushbackByteSource) Close() *async.Async[struct{}] {
	p.mu.Lock()
	p.pending = nil
	p.hasPend = false
	p.mu.Unlock()
	return p.src.Close()
}
