package httptype

import "testing"

func TestParseContentTypeBasic(t *testing.T) {
	ct, err := ParseContentType(`multipart/form-data; boundary="X"; Charset=UTF-8`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ct.Type() != "multipart" || ct.Subtype() != "form-data" {
		t.Fatalf("type/subtype = %s/%s", ct.Type(), ct.Subtype())
	}
	if v, ok := ct.Param("boundary"); !ok || v != "X" {
		t.Fatalf("boundary = %q, ok=%v", v, ok)
	}
	if v, ok := ct.Param("CHARSET"); !ok || v != "UTF-8" {
		t.Fatalf("charset lookup case-insensitive = %q, ok=%v", v, ok)
	}
}

func TestParseContentTypeQuotedValueWithEscape(t *testing.T) {
	ct, err := ParseContentType(`text/plain; name="a \"quoted\" value"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := ct.Param("name"); v != `a "quoted" value` {
		t.Fatalf("name = %q", v)
	}
}

func TestNewContentTypeRejectsInvalidToken(t *testing.T) {
	if _, err := NewContentType("te xt", "plain", nil); err == nil {
		t.Fatal("expected error for token with a space")
	}
}

func TestHeaderMapCaseInsensitiveCanonicalForm(t *testing.T) {
	h := NewHeaderMap()
	h.Add("content-type", "text/plain")
	h.Add("X-Custom", "a")
	h.Add("x-custom", "b")

	if h.Get("Content-Type") != "text/plain" {
		t.Fatalf("Get Content-Type = %q", h.Get("Content-Type"))
	}
	if got := h.Values("X-CUSTOM"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Values = %v", got)
	}
	keys := h.Keys()
	if len(keys) != 2 || keys[0] != "Content-Type" || keys[1] != "X-Custom" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestHeaderMapSetReplacesValues(t *testing.T) {
	h := NewHeaderMap()
	h.Add("etag", "a")
	h.Add("etag", "b")
	h.Set("ETag", "c")
	if got := h.Values("etag"); len(got) != 1 || got[0] != "c" {
		t.Fatalf("values after Set = %v", got)
	}
}

func TestHeaderMapDel(t *testing.T) {
	h := NewHeaderMap()
	h.Add("Vary", "Accept-Encoding")
	h.Del("vary")
	if h.Has("Vary") {
		t.Fatal("expected Vary removed")
	}
	if len(h.Keys()) != 0 {
		t.Fatalf("keys after delete = %v", h.Keys())
	}
}

func TestParseTokenParamsFormData(t *testing.T) {
	tp, err := ParseTokenParams(`form-data; name="f"; filename="a b.txt"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tp.Token() != "form-data" {
		t.Fatalf("token = %q", tp.Token())
	}
	if v, _ := tp.Param("name"); v != "f" {
		t.Fatalf("name = %q", v)
	}
	if v, _ := tp.Param("filename"); v != "a b.txt" {
		t.Fatalf("filename = %q", v)
	}
}

func TestUriPathPercentEncodesSpace(t *testing.T) {
	u := NewUriPath("x/a b.txt")
	if got := u.String(); got != "/x/a%20b.txt" {
		t.Fatalf("String = %q", got)
	}
}

func TestUriPathEqualByDecodedContent(t *testing.T) {
	a := NewUriPath("a%20b")
	b := NewUriPath("a b")
	if !a.Equal(b) {
		t.Fatal("expected equal decoded paths")
	}
}

func TestEncodeDecodeQueryMinimalRoundTrip(t *testing.T) {
	enc := EncodeQueryMinimal("t-1-2")
	if enc != "t-1-2" {
		t.Fatalf("encode of already-safe string changed it: %q", enc)
	}
	enc2 := EncodeQueryMinimal("a b")
	if enc2 != "a%20b" {
		t.Fatalf("encode with space = %q", enc2)
	}
	if DecodeQueryMinimal(enc2) != "a b" {
		t.Fatalf("round trip failed: %q", DecodeQueryMinimal(enc2))
	}
}

func TestParseHostPortWithPort(t *testing.T) {
	hp, err := ParseHostPort("example.com:8080")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hp.Host != "example.com" || hp.Port != 8080 {
		t.Fatalf("hp = %+v", hp)
	}
	if hp.String() != "example.com:8080" {
		t.Fatalf("String = %q", hp.String())
	}
}

func TestParseHostPortBracketedIPv6(t *testing.T) {
	hp, err := ParseHostPort("[::1]:9090")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hp.Host != "[::1]" || hp.Port != 9090 {
		t.Fatalf("hp = %+v", hp)
	}
}

func TestHostPortMatchesOriginURL(t *testing.T) {
	hp, _ := ParseHostPort("example.com")
	if !hp.MatchesOriginURL("https://example.com/path") {
		t.Fatal("expected origin host match")
	}
	if hp.MatchesOriginURL("https://evil.example/path") {
		t.Fatal("expected origin host mismatch")
	}
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader("a=1; b=2 ; _csrf_token=abc123")
	if len(cookies) != 3 {
		t.Fatalf("expected 3 cookies, got %+v", cookies)
	}
	c, ok := FindCookie(cookies, "_csrf_token")
	if !ok || c.Value != "abc123" {
		t.Fatalf("csrf cookie = %+v, ok=%v", c, ok)
	}
}

func TestIsValidCookieName(t *testing.T) {
	if !IsValidCookieName("_csrf_token") {
		t.Fatal("expected valid cookie name")
	}
	if IsValidCookieName("has space") {
		t.Fatal("expected invalid cookie name")
	}
}

func TestCharsetDecoderFallsBackToUTF8(t *testing.T) {
	decode := CharsetDecoder("")
	s, err := decode([]byte("hi"))
	if err != nil || s != "hi" {
		t.Fatalf("decode = %q, err = %v", s, err)
	}
}

func TestCharsetDecoderISO88591(t *testing.T) {
	decode := CharsetDecoder("iso-8859-1")
	s, err := decode([]byte{0xE9}) // 'é' in ISO-8859-1
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s != "é" {
		t.Fatalf("decoded = %q", s)
	}
}
