package stream

import (
	"io"
	"os"
	"sync"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
)

// FileReadChunkSize is the size of the pooled buffer FileByteSource reads
// into before copying the completed read to a fresh heap buffer for the
// caller.
const FileReadChunkSize = 16 * 1024

var fileReadBufPool = sync.Pool{New: func() any { return make([]byte, FileReadChunkSize) }}

// FileByteSource reads a file's contents via a provider, opening it on the
// first read (simple provider) or sharing a reference-counted handle
// (pooled provider), and releasing it exactly once on Close.
type FileByteSource struct {
	NoSkip

	path     string
	provider FileChannelProvider

	mu     sync.Mutex
	f      *os.File
	pos    int64
	closed bool
}

// NewFileByteSource streams path from byte offset 0, via provider (or a
// fresh SimpleFileChannelProvider if provider is nil).
func NewFileByteSource(path string, provider FileChannelProvider) *FileByteSource {
	if provider == nil {
		provider = SimpleFileChannelProvider{}
	}
	return &FileByteSource{path: path, provider: provider}
}

// Read implements ByteSource.
func (s *FileByteSource) Read() *async.Async[*Buffer] {
	out, complete, fail := async.New[*Buffer]()
	go s.serve(complete, fail)
	return out
}

func (s *FileByteSource) serve(complete func(*Buffer), fail func(error)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fail(rawerrors.NewIOError("read", "file source closed", nil))
		return
	}
	if s.f == nil {
		f, err := s.provider.Acquire(s.path)
		if err != nil {
			s.mu.Unlock()
			fail(err)
			return
		}
		s.f = f
	}
	f := s.f
	pos := s.pos
	s.mu.Unlock()

	pooled := fileReadBufPool.Get().([]byte)
	defer fileReadBufPool.Put(pooled) //nolint:staticcheck
	n, err := f.ReadAt(pooled, pos)
	if n > 0 {
		out := make([]byte, n)
		copy(out, pooled[:n])
		s.mu.Lock()
		s.pos += int64(n)
		s.mu.Unlock()
		complete(NewBuffer(out))
		return
	}
	if err == io.EOF {
		fail(async.End)
		return
	}
	if err != nil {
		fail(rawerrors.NewIOError("read", "reading file", err))
		return
	}
	complete(NewBuffer(nil))
}

// Skip implements ByteSource by advancing the read position without I/O.
func (s *FileByteSource) Skip(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos += n
	return n
}

// Close implements ByteSource: idempotent, releases the handle exactly
// once.
func (s *FileByteSource) Close() *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return async.Done(struct{}{}, nil)
	}
	s.closed = true
	if s.f != nil {
		if _, simple := s.provider.(SimpleFileChannelProvider); simple {
			s.f.Close()
		}
		s.provider.Release(s.path)
		s.f = nil
	}
	return async.Done(struct{}{}, nil)
}

// FileByteSink writes to a file at an advancing position; writes are never
// produced out of order.
type FileByteSink struct {
	mu     sync.Mutex
	f      *os.File
	pos    int64
	closed bool
}

// NewFileByteSink creates (or truncates) path for writing.
func NewFileByteSink(path string) (*FileByteSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, rawerrors.NewIOError("open", "creating file", err)
	}
	return &FileByteSink{f: f}, nil
}

// Write implements ByteSink.
func (s *FileByteSink) Write(buf *Buffer) *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return async.Done(struct{}{}, rawerrors.NewIOError("write", "file sink closed", nil))
	}
	n, err := s.f.WriteAt(buf.Bytes(), s.pos)
	if err != nil {
		return async.Done(struct{}{}, rawerrors.NewIOError("write", "writing file", err))
	}
	s.pos += int64(n)
	return async.Done(struct{}{}, nil)
}

// Error implements ByteSink. The underlying file is left in place;
// lifecycle/removal is owned by the caller.
func (s *FileByteSink) Error(err error) *async.Async[struct{}] {
	return async.Done(struct{}{}, nil)
}

// Close implements ByteSink: flushes to disk and closes the handle.
func (s *FileByteSink) Close() *async.Async[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return async.Done(struct{}{}, nil)
	}
	s.closed = true
	if err := s.f.Sync(); err != nil {
		return async.Done(struct{}{}, rawerrors.NewIOError("close", "flushing file", err))
	}
	if err := s.f.Close(); err != nil {
		return async.Done(struct{}{}, rawerrors.NewIOError("close", "closing file", err))
	}
	return async.Done(struct{}{}, nil)
}

// Path exposes the destination path, including after the sink has closed.
func (s *FileByteSink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ""
	}
	return s.f.Name()
}
