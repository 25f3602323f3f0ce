package stream

import (
	"errors"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
)

// ByteSource is a cursor over a logically finite byte sequence. Read and
// close are the only operations every source must support; skip is an
// optional acceleration. Read and close are single-in-flight: starting a
// second read before the first has resolved is a programming error.
type ByteSource interface {
	// Read returns the next chunk, async.End at EOF, or another error.
	// A zero-length buffer is a legal (if discouraged) result.
	Read() *async.Async[*Buffer]

	// Skip attempts to advance by n bytes without delivering them and
	// returns how many bytes were actually skipped, m in [0, n]. Skipping
	// past the end of the source is allowed and simply yields fewer bytes
	// on the reads that follow. The default implementation returns 0.
	Skip(n int64) int64

	// Close is idempotent and never fails in a way the caller must handle.
	Close() *async.Async[struct{}]
}

// ByteSink is a cursor-absorbing counterpart to ByteSource.
type ByteSink interface {
	// Write accepts buf. On failure the sink enters an error state and
	// must still be closed.
	Write(buf *Buffer) *async.Async[struct{}]

	// Error marks the byte sequence as corrupt. Idempotent: only the
	// first call has effect.
	Error(err error) *async.Async[struct{}]

	// Close flushes on the success path; it may fail if flushing fails.
	Close() *async.Async[struct{}]
}

// NoSkip is embeddable by sources that do not implement Skip; it always
// returns 0, matching the spec's default.
type NoSkip struct{}

// Skip always returns 0.
func (NoSkip) Skip(int64) int64 { return 0 }

// ReadAll accumulates every byte s produces, failing with an over-limit
// error if the total exceeds max. max <= 0 means unlimited.
func ReadAll(s ByteSource, max int64) ([]byte, error) {
	var out []byte
	for {
		buf, err := s.Read().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				return out, nil
			}
			return out, err
		}
		out = append(out, buf.Bytes()...)
		if max > 0 && int64(len(out)) > max {
			return nil, rawerrors.NewOverLimitError("read_all", "max", max)
		}
	}
}

// AsString accumulates every byte s produces and decodes it with charset
// (UTF-8 when decoder is nil), failing over-limit if the byte count exceeds
// max before decoding.
func AsString(s ByteSource, max int64, decode func([]byte) (string, error)) (string, error) {
	raw, err := ReadAll(s, max)
	if err != nil {
		return "", err
	}
	if decode == nil {
		return string(raw), nil
	}
	return decode(raw)
}
