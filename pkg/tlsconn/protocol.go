// Package tlsconn wraps a raw plaintext channel (a stream.ByteSource /
// stream.ByteSink pair) in a TLS connection that exposes the same
// ByteSource/ByteSink contract used by the rest of the core, per spec
// section 4.14: connection-start detect mode, a handshake phase, and a
// live read/write phase that rejects renegotiation.
//
// Go's crypto/tls models a TLS connection as a blocking net.Conn rather
// than the wrap/unwrap record engine the spec describes (that shape comes
// from a non-blocking SSLEngine-style runtime); this package bridges the
// two by adapting our async channel into a net.Conn (netconn.go) and
// letting crypto/tls own record framing and 0-byte records. crypto/tls
// does not reassemble a 1/n-1 split itself (it only re-reads a second
// buffered record to detect a close-notify alert), so Conn.Read does that
// part: a 1-byte result with more already buffered on the raw channel
// triggers an immediate second unwrap, concatenated before returning. The
// 16960-byte pooled buffer the spec specifies is kept as the chunk size
// offered to tls.Conn.Read.
package tlsconn

import "crypto/tls"

// Protocol names accepted by Config.Protocol, mirroring the version
// profiles a Java-style context protocol name would select.
const (
	ProtocolModern     = "modern"     // TLS 1.3 only
	ProtocolSecure     = "secure"     // TLS 1.2 - 1.3 (default)
	ProtocolCompatible = "compatible" // TLS 1.0 - 1.3
)

// VersionProfile bounds the negotiable TLS version range.
type VersionProfile struct {
	Min uint16
	Max uint16
}

var profiles = map[string]VersionProfile{
	ProtocolModern:     {Min: tls.VersionTLS13, Max: tls.VersionTLS13},
	ProtocolSecure:     {Min: tls.VersionTLS12, Max: tls.VersionTLS13},
	ProtocolCompatible: {Min: tls.VersionTLS10, Max: tls.VersionTLS13},
}

// cipherSuitesFor returns the recommended cipher suite list for minVersion;
// TLS 1.3 suites are fixed by the runtime and never included explicitly.
func cipherSuitesFor(minVersion uint16) []uint16 {
	switch {
	case minVersion >= tls.VersionTLS12:
		return []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		}
	default:
		return []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
		}
	}
}

// GetVersionName returns a human-readable name for version, for logging.
func GetVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "unknown"
	}
}
