package staticfile

import (
	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

// Request is the minimal slice of an HTTP request the static handler
// needs. The request parser itself is out of scope (spec section 1); a
// caller built on any HTTP/1.x implementation adapts its parsed request
// into this shape.
type Request struct {
	// Method is the HTTP method, e.g. "GET", "HEAD".
	Method string
	// URI is the request target as sent on the wire: an absolute path,
	// optionally followed by "?" and a query string.
	URI string
	// Headers holds the request headers. The handler consults only
	// Accept-Encoding, if present; all others are ignored.
	Headers *httptype.HeaderMap
}

// Response is a fully populated response ready for an HTTP/1.x writer to
// serialize: a status line, headers, and (for GET) a body source.
type Response struct {
	Status  int
	Reason  string
	Headers *httptype.HeaderMap
	// Body is nil for a successful HEAD request; error responses always
	// carry a short plain-text body, HEAD included. When non-nil, callers
	// MUST Close it once done (even on error paths) per the ByteSource
	// ownership contract.
	Body stream.ByteSource
}

func newResponse(status int, reason string) *Response {
	return &Response{Status: status, Reason: reason, Headers: httptype.NewHeaderMap()}
}

func errorResponse(status int, reason string) *Response {
	r := newResponse(status, reason)
	r.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	r.Body = stream.NewSimpleByteSource([]byte(reason))
	return r
}
