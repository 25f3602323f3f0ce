package stream

import (
	"sync"
	"time"

	"github.com/opsnet/asyncio/pkg/async"
)

// ThrottleCurve describes a monotonically non-decreasing byte budget b(t):
// how many bytes a ThrottledByteSource may have served by elapsed time t
// since its first read, and the inverse, how much elapsed time is needed
// before a given byte count is allowed.
type ThrottleCurve interface {
	AllowedBytes(elapsed time.Duration) int64
	TimeForBytes(bytes int64) time.Duration
}

// LinearCurve is the typical throttle shape: an initial allowance served
// immediately, then a constant rate thereafter.
type LinearCurve struct {
	Initial     int64
	BytesPerSec float64
}

// AllowedBytes implements ThrottleCurve.
func (c LinearCurve) AllowedBytes(elapsed time.Duration) int64 {
	if elapsed <= 0 {
		return c.Initial
	}
	return c.Initial + int64(c.BytesPerSec*elapsed.Seconds())
}

// TimeForBytes implements ThrottleCurve.
func (c LinearCurve) TimeForBytes(bytes int64) time.Duration {
	if bytes <= c.Initial || c.BytesPerSec <= 0 {
		return 0
	}
	secs := float64(bytes-c.Initial) / c.BytesPerSec
	return time.Duration(secs * float64(time.Second))
}

// ThrottledByteSource caps throughput to curve. Skipped bytes never count
// against the served tally and are guaranteed to skip exactly n.
type ThrottledByteSource struct {
	origin ByteSource
	curve  ThrottleCurve

	mu      sync.Mutex
	t0      time.Time
	started bool
	served  int64
	hoard   []byte

	now   func() time.Time
	sleep func(time.Duration)
}

// NewThrottledByteSource wraps origin, capping throughput to curve.
func NewThrottledByteSource(origin ByteSource, curve ThrottleCurve) *ThrottledByteSource {
	return &ThrottledByteSource{
		origin: origin,
		curve:  curve,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Read implements ByteSource.
func (t *ThrottledByteSource) Read() *async.Async[*Buffer] {
	out, complete, fail := async.New[*Buffer]()
	go t.serve(complete, fail)
	return out
}

func (t *ThrottledByteSource) serve(complete func(*Buffer), fail func(error)) {
	t.mu.Lock()
	if !t.started {
		t.started = true
		t.t0 = t.now()
	}
	if len(t.hoard) == 0 {
		t.mu.Unlock()
		buf, err := t.origin.Read().Wait()
		if err != nil {
			fail(err)
			return
		}
		t.mu.Lock()
		t.hoard = append(t.hoard, buf.Bytes()...)
	}

	s := int64(len(t.hoard))
	tServe := t.t0.Add(t.curve.TimeForBytes(t.served + s))
	t.mu.Unlock()

	if now := t.now(); tServe.After(now) {
		t.sleep(tServe.Sub(now))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := t.now().Sub(t.t0)
	deficit := t.curve.AllowedBytes(elapsed) - t.served
	n := s
	if deficit > n {
		n = deficit
	}
	if n > int64(len(t.hoard)) {
		n = int64(len(t.hoard))
	}
	if n <= 0 {
		n = s // always serve at least the hint once we've waited for it
	}
	out := t.hoard[:n]
	t.hoard = t.hoard[n:]
	t.served += n
	complete(NewBuffer(append([]byte(nil), out...)))
}

// Skip implements ByteSource. Skipped bytes bypass the throttle entirely,
// never count toward served, and are guaranteed to skip exactly n unless
// origin is exhausted first: when origin.Skip under-delivers (e.g. an
// origin with no real skip support), the shortfall is made up by reading
// and discarding directly from origin.
func (t *ThrottledByteSource) Skip(n int64) int64 {
	t.mu.Lock()
	if int64(len(t.hoard)) >= n {
		t.hoard = t.hoard[n:]
		t.mu.Unlock()
		return n
	}
	fromHoard := int64(len(t.hoard))
	t.hoard = nil
	t.mu.Unlock()

	remaining := n - fromHoard
	skipped := t.origin.Skip(remaining)
	remaining -= skipped

	for remaining > 0 {
		buf, err := t.origin.Read().Wait()
		if err != nil {
			return fromHoard + skipped
		}
		b := buf.Bytes()
		if int64(len(b)) > remaining {
			t.mu.Lock()
			t.hoard = append(t.hoard, b[remaining:]...)
			t.mu.Unlock()
			skipped += remaining
			remaining = 0
			break
		}
		skipped += int64(len(b))
		remaining -= int64(len(b))
	}
	return fromHoard + skipped
}

// Close implements ByteSource.
func (t *ThrottledByteSource) Close() *async.Async[struct{}] {
	return t.origin.Close()
}
