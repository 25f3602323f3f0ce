package stream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
)

// CacheBufferSize is 8 KiB. ByteSourceCache does not re-chunk to this size:
// cached buffers keep whatever sizes the origin source delivered.
const CacheBufferSize = 8 * 1024

// ByteSourceCache lazily copies all bytes of an origin source into a vector
// of buffers, storing each non-empty origin buffer as delivered (no
// re-chunking to a fixed size). NewView returns an independent cursor that reads
// cached buffers as they become available; once copying completes, every
// view sees identical, deterministic data. The cache itself is safe for
// concurrent use; a single view is not.
type ByteSourceCache struct {
	mu        sync.Mutex
	origin    ByteSource
	buffers   []*Buffer
	done      bool
	err       error
	copying   bool
	totalSize int64 // -1 if unknown up front
	waiters   map[int][]func()
}

// NewByteSourceCache begins lazily caching origin. totalSize, if >= 0, is
// only checked against the actual copied size when copying completes (a
// mismatch is a sticky error); it does not affect buffer sizes. Pass -1
// when the size is not known up front.
func NewByteSourceCache(origin ByteSource, totalSize int64) *ByteSourceCache {
	return &ByteSourceCache{origin: origin, totalSize: totalSize, waiters: map[int][]func(){}}
}

// String reports the cache's current progress for log lines: how many
// buffers have been copied and whether copying has finished or failed.
func (c *ByteSourceCache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := "copying"
	if c.err != nil {
		state = "failed"
	} else if c.done {
		state = "done"
	}
	return fmt.Sprintf("ByteSourceCache{buffers=%d state=%s}", len(c.buffers), state)
}

// NewView returns an independent cursor over the cached bytes. The very
// first call to NewView starts the background copy; the idiomatic way to
// force an eager copy without reading is cache.NewView().Close().
func (c *ByteSourceCache) NewView() *CacheView {
	c.mu.Lock()
	if !c.copying {
		c.copying = true
		go c.runCopy()
	}
	c.mu.Unlock()
	return &CacheView{cache: c}
}

func (c *ByteSourceCache) runCopy() {
	for {
		buf, err := c.origin.Read().Wait()
		if err != nil {
			c.mu.Lock()
			if errors.Is(err, async.End) {
				if c.totalSize >= 0 {
					var got int64
					for _, b := range c.buffers {
						got += int64(b.Len())
					}
					if got != c.totalSize {
						c.err = rawerrors.NewCacheError(rawerrors.NewValidationError(
							"copy", "copied size does not match declared total size"))
					}
				}
				c.done = true
			} else {
				c.err = rawerrors.NewCacheError(err)
			}
			c.notifyAllLocked()
			c.mu.Unlock()
			return
		}
		if buf.Len() == 0 {
			continue
		}
		c.mu.Lock()
		idx := len(c.buffers)
		c.buffers = append(c.buffers, buf)
		cbs := c.waiters[idx]
		delete(c.waiters, idx)
		c.mu.Unlock()
		for _, cb := range cbs {
			cb()
		}
	}
}

// notifyAllLocked wakes every still-pending waiter once the cache reaches a
// terminal state (done or sticky error). Caller holds c.mu.
func (c *ByteSourceCache) notifyAllLocked() {
	all := c.waiters
	c.waiters = map[int][]func(){}
	for _, cbs := range all {
		for _, cb := range cbs {
			cb()
		}
	}
}

// CacheView is one independent read cursor into a ByteSourceCache.
type CacheView struct {
	cache *ByteSourceCache
	idx   int
}

// Read implements ByteSource.
func (v *CacheView) Read() *async.Async[*Buffer] {
	c := v.cache
	c.mu.Lock()
	if v.idx < len(c.buffers) {
		buf := c.buffers[v.idx]
		v.idx++
		c.mu.Unlock()
		return ReadAsync(buf, nil)
	}
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return ReadAsync(nil, err)
	}
	if c.done {
		c.mu.Unlock()
		return ReadAsync(nil, async.End)
	}
	idx := v.idx
	out, complete, fail := async.New[*Buffer]()
	c.waiters[idx] = append(c.waiters[idx], func() {
		c.mu.Lock()
		if c.err != nil {
			err := c.err
			c.mu.Unlock()
			fail(err)
			return
		}
		if idx < len(c.buffers) {
			buf := c.buffers[idx]
			v.idx = idx + 1
			c.mu.Unlock()
			complete(buf)
			return
		}
		// done with no more buffers at this index
		c.mu.Unlock()
		fail(async.End)
	})
	c.mu.Unlock()
	return out
}

// Skip advances by whole cached buffers to stay bounded-cost; it never
// blocks and never triggers additional copying beyond what is already
// available.
func (v *CacheView) Skip(n int64) int64 {
	c := v.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	var skipped int64
	for n > 0 && v.idx < len(c.buffers) {
		bl := int64(c.buffers[v.idx].Len())
		if bl > n {
			break
		}
		n -= bl
		skipped += bl
		v.idx++
	}
	return skipped
}

// Close implements ByteSource. Closing a view does not affect the shared
// copy or other views.
func (v *CacheView) Close() *async.Async[struct{}] {
	return async.Done(struct{}{}, nil)
}
