package stream

import (
	"io"
	"sync"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
)

// SimpleByteSource adapts an in-memory byte slice (or any io.Reader via
// FromReader) into a ByteSource, reading in fixed-size chunks.
type SimpleByteSource struct {
	NoSkip

	mu     sync.Mutex
	r      io.Reader
	chunk  int
	closed bool
}

// DefaultChunkSize is used by SimpleByteSource and FileByteSource when no
// explicit chunk size is given.
const DefaultChunkSize = 8192

// NewSimpleByteSource wraps data as a ByteSource that yields it in
// DefaultChunkSize chunks.
func NewSimpleByteSource(data []byte) *SimpleByteSource {
	return FromReader(newByteSliceReader(data))
}

// FromReader adapts any io.Reader into a ByteSource. This is the
// "InputStream adapter" of spec section 2.
func FromReader(r io.Reader) *SimpleByteSource {
	return &SimpleByteSource{r: r, chunk: DefaultChunkSize}
}

// Read implements ByteSource.
func (s *SimpleByteSource) Read() *async.Async[*Buffer] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ReadAsync(nil, rawerrors.NewIOError("read", "source closed", nil))
	}
	buf := make([]byte, s.chunk)
	n, err := s.r.Read(buf)
	if n > 0 {
		return ReadAsync(NewBuffer(buf[:n]), nil)
	}
	if err == io.EOF {
		return ReadAsync(nil, async.End)
	}
	if err != nil {
		return ReadAsync(nil, rawerrors.NewIOError("read", "reading source", err))
	}
	// spurious zero-length read, permitted by contract
	return ReadAsync(NewBuffer(nil), nil)
}

// Close implements ByteSource.
func (s *SimpleByteSource) Close() *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return async.Done(struct{}{}, nil)
	}
	s.closed = true
	if c, ok := s.r.(io.Closer); ok {
		_ = c.Close()
	}
	return async.Done(struct{}{}, nil)
}

type byteSliceReader struct {
	data []byte
	pos  int
}

func newByteSliceReader(data []byte) *byteSliceReader {
	return &byteSliceReader{data: data}
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
