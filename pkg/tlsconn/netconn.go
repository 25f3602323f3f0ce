package tlsconn

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/stream"
)

// netconnAddr is a placeholder net.Addr for channels that have no real
// socket address (the raw substrate may be anything ByteSource/ByteSink
// can front: an in-memory pipe, a test harness, or a real socket already
// wrapped elsewhere).
type netconnAddr struct{}

func (netconnAddr) Network() string { return "asyncio" }
func (netconnAddr) String() string  { return "asyncio-channel" }

// netconn adapts a stream.ByteSource/stream.ByteSink pair into a blocking
// net.Conn, the shape crypto/tls.Conn requires. Deadlines are accepted but
// not enforced: the underlying channel has no deadline concept of its own,
// matching the spec's description of a channel whose readability/writability
// the caller awaits rather than time-bounds.
type netconn struct {
	src stream.ByteSource
	snk stream.ByteSink

	readBuf []byte
}

func newNetConn(src stream.ByteSource, snk stream.ByteSink) *netconn {
	return &netconn{src: src, snk: snk}
}

func (c *netconn) Read(p []byte) (int, error) {
	for len(c.readBuf) == 0 {
		buf, err := c.src.Read().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				return 0, io.EOF
			}
			return 0, err
		}
		c.readBuf = buf.Bytes()
	}
	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

// Buffered reports how many already-received bytes are sitting in the read
// buffer left over from the last underlying Read, without blocking or
// pulling any more bytes from src.
func (c *netconn) Buffered() int { return len(c.readBuf) }

func (c *netconn) Write(p []byte) (int, error) {
	if _, err := c.snk.Write(stream.NewBuffer(append([]byte(nil), p...))).Wait(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *netconn) Close() error {
	c.src.Close().Wait()
	_, err := c.snk.Close().Wait()
	return err
}

func (c *netconn) LocalAddr() net.Addr                { return netconnAddr{} }
func (c *netconn) RemoteAddr() net.Addr               { return netconnAddr{} }
func (c *netconn) SetDeadline(t time.Time) error      { return nil }
func (c *netconn) SetReadDeadline(t time.Time) error  { return nil }
func (c *netconn) SetWriteDeadline(t time.Time) error { return nil }
