package httptype

import "strings"

// UriPath is the canonical representation of a URI path as a list of
// decoded segments. Equality and hashing are by byte content of the
// decoded segments, not by any particular percent-encoded rendering.
type UriPath struct {
	segments []string
}

// NewUriPath splits a slash-separated, percent-encoded path into segments.
func NewUriPath(path string) UriPath {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return UriPath{}
	}
	parts := strings.Split(path, "/")
	segs := make([]string, len(parts))
	for i, p := range parts {
		segs[i] = percentDecode(p)
	}
	return UriPath{segments: segs}
}

// Segments returns the decoded path segments.
func (u UriPath) Segments() []string { return u.segments }

// Equal compares two UriPaths by decoded byte content.
func (u UriPath) Equal(o UriPath) bool {
	if len(u.segments) != len(o.segments) {
		return false
	}
	for i := range u.segments {
		if u.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// String renders the path with each segment minimally percent-encoded
// (only characters outside the URL-safe path set).
func (u UriPath) String() string {
	var b strings.Builder
	for _, s := range u.segments {
		b.WriteByte('/')
		b.WriteString(percentEncode(s, isPathSafe))
	}
	return b.String()
}

func isPathSafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case strings.IndexByte("-_.~!$&'()*+,;=:@", c) >= 0:
		return true
	default:
		return false
	}
}

func isQuerySafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case strings.IndexByte("-_.~!$'()*,:@", c) >= 0:
		return true
	default:
		return false
	}
}

// percentEncode escapes every byte for which safe returns false as %HH. It
// never emits '+' for space; space is escaped as %20 like any other unsafe
// byte.
func percentEncode(s string, safe func(byte) bool) string {
	var b strings.Builder
	const hex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		if safe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xF])
	}
	return b.String()
}

func percentDecode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 < len(s) {
				if v, ok := hexByte(s[i+1], s[i+2]); ok {
					b.WriteByte(v)
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		case '+':
			// Open question (spec sec. 9): the tagged-URI comparator accepts
			// '+' as space even though the encoder never emits one. Matched
			// here as-is rather than guessed away.
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexDigit(hi)
	l, ok2 := hexDigit(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// EncodeQueryMinimal percent-encodes s for use as a bare query-string value
// (no leading '?'), escaping only characters outside the URL-safe query
// set. It never introduces '+'.
func EncodeQueryMinimal(s string) string {
	return percentEncode(s, isQuerySafe)
}

// DecodeQueryMinimal reverses EncodeQueryMinimal. Per the open question
// above, '+' decodes to space for compatibility with the comparator even
// though the encoder never emits one.
func DecodeQueryMinimal(s string) string {
	return percentDecode(s)
}
