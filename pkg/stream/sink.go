package stream

import (
	"io"
	"sync"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
)

// SimpleByteSink adapts an io.Writer into a ByteSink.
type SimpleByteSink struct {
	mu      sync.Mutex
	w       io.Writer
	errored bool
	closed  bool
}

// ToWriter adapts w into a ByteSink.
func ToWriter(w io.Writer) *SimpleByteSink {
	return &SimpleByteSink{w: w}
}

// Write implements ByteSink.
func (s *SimpleByteSink) Write(buf *Buffer) *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errored || s.closed {
		return async.Done(struct{}{}, rawerrors.NewIOError("write", "sink closed or errored", nil))
	}
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		s.errored = true
		return async.Done(struct{}{}, rawerrors.NewIOError("write", "writing to sink", err))
	}
	return async.Done(struct{}{}, nil)
}

// Error implements ByteSink. Idempotent: only the first call marks the
// sink corrupt.
func (s *SimpleByteSink) Error(err error) *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errored {
		return async.Done(struct{}{}, nil)
	}
	s.errored = true
	return async.Done(struct{}{}, nil)
}

// Close implements ByteSink. Idempotent; flushes if the writer supports it.
func (s *SimpleByteSink) Close() *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return async.Done(struct{}{}, nil)
	}
	s.closed = true
	if f, ok := s.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return async.Done(struct{}{}, rawerrors.NewIOError("close", "flushing sink", err))
		}
	}
	if c, ok := s.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return async.Done(struct{}{}, rawerrors.NewIOError("close", "closing sink", err))
		}
	}
	return async.Done(struct{}{}, nil)
}

// ThreadSafeSource wraps a ByteSource so that read/skip/close may be called
// from multiple goroutines, serializing the calls themselves under a mutex.
// Reads are not queued: a read started while an earlier one is still
// pending is passed on to inner at once, so inner must itself accept
// overlapping reads. This is the wrapper spec section 3 references for
// sources that must relax the single-in-flight rule.
type ThreadSafeSource struct {
	inner ByteSource
	mu    sync.Mutex
}

// NewThreadSafeSource wraps inner.
func NewThreadSafeSource(inner ByteSource) *ThreadSafeSource {
	return &ThreadSafeSource{inner: inner}
}

// Read implements ByteSource, serializing concurrent callers.
func (t *ThreadSafeSource) Read() *async.Async[*Buffer] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.Read()
}

// Skip implements ByteSource.
func (t *ThreadSafeSource) Skip(n int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.Skip(n)
}

// Close implements ByteSource.
func (t *ThreadSafeSource) Close() *async.Async[struct{}] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.Close()
}
