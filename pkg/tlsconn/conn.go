package tlsconn

import (
	"crypto/tls"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/stream"
)

// BufferChunkSize is the chunk size offered to tls.Conn.Read, matching the
// 16960-byte pooled buffer of spec section 4.14 (one max TLS record plus a
// 1/n-1 split remainder).
const BufferChunkSize = 16960

// closeDrainTimeout bounds how long Close waits for the peer's close_notify
// and any final flush before giving up and releasing resources anyway.
const closeDrainTimeout = 3 * time.Second

var readBufPool = sync.Pool{New: func() any { return make([]byte, BufferChunkSize) }}

// Conn is a live TLS connection satisfying stream.ByteSource and
// stream.ByteSink, backed by crypto/tls.Conn over a netconn bridge.
// Renegotiation attempts surface as an ordinary TLS protocol error because
// the handshake config forces tls.RenegotiateNever.
type Conn struct {
	stream.NoSkip

	tlsConn *tls.Conn
	raw     *netconn

	mu      sync.Mutex
	closed  bool
	errored bool
}

// NewServerConn wraps raw (already primed with any pushed-back detect-mode
// bytes) as a TLS server connection using cfg.
func NewServerConn(src stream.ByteSource, snk stream.ByteSink, cfg *tls.Config) *Conn {
	raw := newNetConn(src, snk)
	return &Conn{tlsConn: tls.Server(raw, cfg), raw: raw}
}

// NewClientConn wraps raw as a TLS client connection, for outbound
// connections this core initiates (e.g. reverse-proxying upstream).
func NewClientConn(src stream.ByteSource, snk stream.ByteSink, cfg *tls.Config) *Conn {
	raw := newNetConn(src, snk)
	return &Conn{tlsConn: tls.Client(raw, cfg), raw: raw}
}

// Handshake drives the TLS handshake to completion. An EOF from the peer
// mid-handshake, or any other handshake failure, is a fatal TLS error.
func (c *Conn) Handshake() *async.Async[struct{}] {
	out, complete, fail := async.New[struct{}]()
	go func() {
		if err := c.tlsConn.Handshake(); err != nil {
			if errors.Is(err, io.EOF) {
				fail(rawerrors.NewTLSError("handshake", "peer closed connection during handshake", err))
				return
			}
			fail(rawerrors.NewTLSError("handshake", "handshake failed", err))
			return
		}
		complete(struct{}{})
	}()
	return out
}

// Read implements stream.ByteSource. A close-notify from the peer surfaces
// as async.End, matching every other source's EOF contract; a subsequent
// renegotiation attempt by the peer is rejected by the handshake config and
// surfaces here as a TLS protocol error.
//
// crypto/tls never reassembles a 1/n-1 split itself (it only re-reads a
// second buffered record to detect a close-notify alert), so a 1-byte
// result is treated as a possible split (spec section 4.14): if raw
// already has more bytes buffered from the same underlying network read,
// a second unwrap is attempted immediately and, on success, concatenated
// with the first byte before completing.
func (c *Conn) Read() *async.Async[*stream.Buffer] {
	out, complete, fail := async.New[*stream.Buffer]()
	go func() {
		buf := readBufPool.Get().([]byte)
		defer readBufPool.Put(buf) //nolint:staticcheck // buf is copied out before reuse
		n, err := c.tlsConn.Read(buf)

		if n == 1 && err == nil && c.raw.Buffered() > 0 {
			buf2 := readBufPool.Get().([]byte)
			n2, err2 := c.tlsConn.Read(buf2)
			if err2 == nil && n2 > 0 {
				merged := make([]byte, 0, n+n2)
				merged = append(merged, buf[:n]...)
				merged = append(merged, buf2[:n2]...)
				readBufPool.Put(buf2)
				complete(stream.NewBuffer(merged))
				return
			}
			readBufPool.Put(buf2)
		}

		if n > 0 {
			complete(stream.NewBuffer(append([]byte(nil), buf[:n]...)))
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fail(async.End)
				return
			}
			fail(rawerrors.NewTLSError("read", "tls record read failed", err))
			return
		}
		complete(stream.NewBuffer(nil))
	}()
	return out
}

// Write implements stream.ByteSink, wrapping buf into one or more TLS
// records.
func (c *Conn) Write(buf *stream.Buffer) *async.Async[struct{}] {
	out, complete, fail := async.New[struct{}]()
	go func() {
		if _, err := c.tlsConn.Write(buf.Bytes()); err != nil {
			fail(rawerrors.NewTLSError("write", "tls record write failed", err))
			return
		}
		complete(struct{}{})
	}()
	return out
}

// Error implements stream.ByteSink; a corrupted write-side just skips the
// close_notify on Close.
func (c *Conn) Error(err error) *async.Async[struct{}] {
	c.mu.Lock()
	c.errored = true
	c.mu.Unlock()
	return async.Done(struct{}{}, nil)
}

// Close sends close_notify (best-effort, bounded by closeDrainTimeout) and
// releases the underlying channel. Idempotent.
func (c *Conn) Close() *async.Async[struct{}] {
	out, complete, _ := async.New[struct{}]()
	go func() {
		c.mu.Lock()
		already := c.closed
		errored := c.errored
		c.closed = true
		c.mu.Unlock()
		if !already {
			done := make(chan struct{})
			go func() {
				if errored {
					c.raw.Close()
				} else {
					c.tlsConn.Close()
				}
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(closeDrainTimeout):
			}
		}
		complete(struct{}{})
	}()
	return out
}

// ConnectionState exposes the negotiated TLS connection state (version,
// cipher suite, peer certificates) once the handshake has completed.
func (c *Conn) ConnectionState() tls.ConnectionState {
	return c.tlsConn.ConnectionState()
}
