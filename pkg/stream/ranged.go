package stream

import (
	"errors"

	"github.com/opsnet/asyncio/pkg/async"
)

// RangedByteSource presents the half-open sub-range [min, max) of src. It
// fails silently (reports async.End) when the underlying source ends before
// max; it uses Skip aggressively to reach min, reads and discards whatever
// Skip did not cover, and trims the final buffer's tail to respect max.
type RangedByteSource struct {
	NoSkip

	src      ByteSource
	min, max int64
	pos      int64
	started  bool
}

// NewRangedByteSource returns a view of src covering [min, max).
func NewRangedByteSource(src ByteSource, min, max int64) *RangedByteSource {
	return &RangedByteSource{src: src, min: min, max: max}
}

func (r *RangedByteSource) ensureStarted() {
	if r.started {
		return
	}
	r.started = true
	remaining := r.min
	for remaining > 0 {
		n := r.src.Skip(remaining)
		if n <= 0 {
			break
		}
		remaining -= n
	}
	for remaining > 0 {
		buf, err := r.src.Read().Wait()
		if err != nil {
			break
		}
		n := int64(buf.Len())
		if n > remaining {
			pb := NewPushbackByteSource(r.src)
			pb.Unread(buf.Slice(int(remaining), buf.Len()))
			r.src = pb
			break
		}
		remaining -= n
	}
	r.pos = r.min
}

// Read implements ByteSource.
func (r *RangedByteSource) Read() *async.Async[*Buffer] {
	r.ensureStarted()
	if r.pos >= r.max {
		return ReadAsync(nil, async.End)
	}
	out, complete, fail := async.New[*Buffer]()
	r.src.Read().OnComplete(func(buf *Buffer, err error) {
		if err != nil {
			if errors.Is(err, async.End) {
				fail(async.End)
				return
			}
			fail(err)
			return
		}
		avail := r.max - r.pos
		n := int64(buf.Len())
		if n > avail {
			buf = buf.Slice(0, int(avail))
			n = avail
		}
		r.pos += n
		complete(buf)
	})
	return out
}

// Close implements ByteSource.
func (r *RangedByteSource) Close() *async.Async[struct{}] {
	return r.src.Close()
}
