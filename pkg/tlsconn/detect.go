package tlsconn

import (
	"crypto/tls"

	"github.com/opsnet/asyncio/pkg/stream"
)

// tlsHandshakeRecordType is the first byte of a TLS record carrying a
// handshake message (RFC 8446 ContentType.handshake = 22).
const tlsHandshakeRecordType = 0x16

// Accept inspects the first byte of a freshly opened connection: 0x16
// means a TLS client hello is starting, so Accept drives the handshake and
// returns a live Conn usable as both ByteSource and ByteSink; anything else
// means a plain-text connection, so Accept pushes the peeked byte back and
// returns the original channel untouched. This is detect mode from spec
// section 4.14, server-side only.
func Accept(src stream.ByteSource, snk stream.ByteSink, cfg *tls.Config) (plainSrc stream.ByteSource, plainSnk stream.ByteSink, tlsConn *Conn, err error) {
	pb := stream.NewPushbackByteSource(src)

	buf, readErr := pb.Read().Wait()
	if readErr != nil {
		return pb, snk, nil, readErr
	}
	if buf.Len() == 0 {
		// Spurious zero-length read; treat as plain and let the caller's
		// next read observe the real first byte.
		pb.Unread(buf)
		return pb, snk, nil, nil
	}

	first := buf.Bytes()[0]
	pb.Unread(buf)

	if first != tlsHandshakeRecordType {
		return pb, snk, nil, nil
	}

	conn := NewServerConn(pb, snk, cfg)
	if _, hsErr := conn.Handshake().Wait(); hsErr != nil {
		return nil, nil, nil, hsErr
	}
	return conn, conn, conn, nil
}
