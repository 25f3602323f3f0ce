package stream

import (
	"errors"

	"github.com/opsnet/asyncio/pkg/async"
)

// ConcatSource reads a fully before switching to b, never reading ahead from
// b while a is still open. Used to splice a synthetic prefix onto a source
// the caller does not control, e.g. the injected leading CRLF in front of a
// multipart body per spec section 4.12.
type ConcatSource struct {
	NoSkip

	a, b  ByteSource
	aDone bool
}

// Concat returns a ByteSource that yields all of a's bytes, then all of b's.
func Concat(a, b ByteSource) *ConcatSource {
	return &ConcatSource{a: a, b: b}
}

// Read implements ByteSource.
func (c *ConcatSource) Read() *async.Async[*Buffer] {
	if c.aDone {
		return c.b.Read()
	}
	out, complete, fail := async.New[*Buffer]()
	go func() {
		buf, err := c.a.Read().Wait()
		if err == nil {
			complete(buf)
			return
		}
		if errors.Is(err, async.End) {
			c.aDone = true
			c.b.Read().OnComplete(func(buf *Buffer, err error) {
				if err != nil {
					fail(err)
					return
				}
				complete(buf)
			})
			return
		}
		fail(err)
	}()
	return out
}

// Close closes both sources.
func (c *ConcatSource) Close() *async.Async[struct{}] {
	c.a.Close()
	return c.b.Close()
}
