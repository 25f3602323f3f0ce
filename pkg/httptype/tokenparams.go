package httptype

import "strings"

// TokenParams is a bare token followed by ';'-separated key=value
// parameters, the same shape as ContentType but without the type/subtype
// split — the form Content-Disposition uses: `form-data; name="f";
// filename="x.png"`.
type TokenParams struct {
	token  string
	params map[string]string
}

// ParseTokenParams parses a header value of the form
// `token; key1=value1; key2="value 2"`.
func ParseTokenParams(s string) (TokenParams, error) {
	parts := splitSemicolon(strings.TrimSpace(s))
	if len(parts) == 0 {
		return TokenParams{}, errInvalidToken
	}
	token := strings.ToLower(strings.TrimSpace(parts[0]))
	if !isToken(token) {
		return TokenParams{}, errInvalidToken
	}
	params := map[string]string{}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(p[:eq]))
		params[key] = unquote(strings.TrimSpace(p[eq+1:]))
	}
	return TokenParams{token: token, params: params}, nil
}

// Token returns the lower-cased leading token ("form-data", "attachment").
func (t TokenParams) Token() string { return t.token }

// Param returns a parameter's value and whether it was present.
func (t TokenParams) Param(name string) (string, bool) {
	v, ok := t.params[strings.ToLower(name)]
	return v, ok
}

// String renders the canonical "token; key=value" form.
func (t TokenParams) String() string {
	var b strings.Builder
	b.WriteString(t.token)
	for k, v := range t.params {
		b.WriteString("; ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(v))
	}
	return b.String()
}
