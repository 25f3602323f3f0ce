package httptype

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// HostPort is a parsed Host header: a bracketed-or-plain hostname and an
// optional port.
type HostPort struct {
	Host string
	Port int // 0 if absent
}

// ParseHostPort parses a Host header value ("example.com", "example.com:8080",
// "[::1]:8080", or an internationalized domain name), converting IDN labels
// to their ASCII (punycode) form via golang.org/x/net/idna.
func ParseHostPort(raw string) (HostPort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return HostPort{}, nil
	}

	if strings.HasPrefix(raw, "[") {
		end := strings.IndexByte(raw, ']')
		if end < 0 {
			return HostPort{}, errInvalidToken
		}
		host := raw[1:end]
		rest := raw[end+1:]
		hp := HostPort{Host: "[" + host + "]"}
		if strings.HasPrefix(rest, ":") {
			p, err := strconv.Atoi(rest[1:])
			if err != nil {
				return HostPort{}, errInvalidToken
			}
			hp.Port = p
		}
		return hp, nil
	}

	host, port := raw, ""
	if idx := strings.LastIndexByte(raw, ':'); idx >= 0 {
		host, port = raw[:idx], raw[idx+1:]
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err == nil {
		host = ascii
	}
	hp := HostPort{Host: host}
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return HostPort{}, errInvalidToken
		}
		hp.Port = p
	}
	return hp, nil
}

// String renders "host" or "host:port".
func (hp HostPort) String() string {
	if hp.Port == 0 {
		return hp.Host
	}
	return hp.Host + ":" + strconv.Itoa(hp.Port)
}

// MatchesOrigin reports whether an Origin/Referer header's host corresponds
// to this Host header — used by the CSRF check's Origin/Referer fallback.
// Hosts are compared case-insensitively; ports are not compared.
func (hp HostPort) MatchesOrigin(originHost string) bool {
	other, err := ParseHostPort(originHost)
	if err != nil {
		return false
	}
	return strings.EqualFold(hp.Host, other.Host)
}

// MatchesOriginURL reports whether the host component of a full Origin or
// Referer URL (e.g. "https://example.com/path") corresponds to this Host
// header.
func (hp HostPort) MatchesOriginURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	return hp.MatchesOrigin(u.Host)
}
