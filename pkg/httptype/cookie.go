package httptype

import "strings"

// Cookie is one name/value pair from a Cookie request header or a
// Set-Cookie response header's name/value portion.
type Cookie struct {
	Name  string
	Value string
}

// ParseCookieHeader splits a request "Cookie: a=1; b=2" header into its
// individual name/value pairs.
func ParseCookieHeader(header string) []Cookie {
	var out []Cookie
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		out = append(out, Cookie{Name: part[:eq], Value: part[eq+1:]})
	}
	return out
}

// FindCookie returns the first cookie with the given name, case-sensitive
// per RFC 6265, and whether it was found.
func FindCookie(cookies []Cookie, name string) (Cookie, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Cookie{}, false
}

// IsValidCookieName reports whether name is a legal cookie-name token (RFC
// 6265 token = RFC 2616 token), used to validate a configurable CSRF token
// cookie name.
func IsValidCookieName(name string) bool {
	return name != "" && isToken(name)
}

// SetCookieHeader renders a minimal "Set-Cookie" value for name=value with
// the given attributes; attrs is a list of already-formatted
// "Attr" or "Attr=Value" strings (e.g. "HttpOnly", "Path=/", "Max-Age=3600").
func SetCookieHeader(name, value string, attrs ...string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
	for _, a := range attrs {
		b.WriteString("; ")
		b.WriteString(a)
	}
	return b.String()
}
