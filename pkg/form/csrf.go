package form

import (
	"crypto/rand"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/httptype"
)

// DefaultCSRFTokenName is the form field and cookie name used when a
// CSRFConfig does not name one explicitly.
const DefaultCSRFTokenName = "_csrf_token"

// CSRFTokenLength is the length of a generated CSRF token (spec section
// 4.10: "a 12-character alphanumeric random string").
const CSRFTokenLength = 12

const csrfAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CSRFConfig names the form field / cookie pair CheckCSRF compares.
type CSRFConfig struct {
	// TokenName is both the form field name and the cookie name. Defaults
	// to DefaultCSRFTokenName; must be a legal cookie-name token.
	TokenName string
}

// DefaultCSRFConfig returns the default token name.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{TokenName: DefaultCSRFTokenName}
}

func (c CSRFConfig) tokenName() string {
	if c.TokenName == "" {
		return DefaultCSRFTokenName
	}
	return c.TokenName
}

// NewCSRFToken returns a fresh CSRFTokenLength-character alphanumeric
// token, suitable for issuing as a session cookie the first time a form is
// rendered.
func NewCSRFToken() (string, error) {
	raw := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", rawerrors.NewIOError("csrf-token", "generating random token", err)
	}
	out := make([]byte, CSRFTokenLength)
	for i, b := range raw {
		out[i] = csrfAlphabet[int(b)%len(csrfAlphabet)]
	}
	return string(out), nil
}

// CSRFCookie renders a Set-Cookie value issuing token under cfg's token
// name as a session (non-persistent) HttpOnly cookie scoped to the whole
// site.
func CSRFCookie(cfg CSRFConfig, token string) (string, error) {
	name := cfg.tokenName()
	if !httptype.IsValidCookieName(name) {
		return "", rawerrors.NewValidationError("csrf-cookie", "invalid cookie name: "+name)
	}
	return httptype.SetCookieHeader(name, token, "Path=/", "HttpOnly", "SameSite=Lax"), nil
}

// CheckCSRF applies spec section 4.10's three-way CSRF check to an already
// parsed Data: (a) the form token equals the same-named cookie; or, only
// when the form carries no token field at all, (b) Origin matches host or
// (c) Referer matches host. A present-but-mismatched token fails
// unconditionally, regardless of Origin/Referer — this is deliberate: a
// forged cross-site form can spoof Origin/Referer far more easily than it
// can read the victim's cookie jar.
func CheckCSRF(data *Data, cookies []httptype.Cookie, origin, referer, host string, cfg CSRFConfig) error {
	name := cfg.tokenName()
	if formVals, ok := data.Params[name]; ok && len(formVals) > 0 {
		cookie, found := httptype.FindCookie(cookies, name)
		if found && cookie.Value == formVals[0] {
			return nil
		}
		return rawerrors.NewCSRFError("csrf token does not match cookie")
	}

	hp, err := httptype.ParseHostPort(host)
	if err == nil {
		if origin != "" && hp.MatchesOriginURL(origin) {
			return nil
		}
		if referer != "" && hp.MatchesOriginURL(referer) {
			return nil
		}
	}
	return rawerrors.NewCSRFError("no csrf token, and neither origin nor referer matched host")
}
