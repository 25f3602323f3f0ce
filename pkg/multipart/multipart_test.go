package multipart

import (
	"errors"
	"testing"

	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/headparse"
	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

func readAllParts(t *testing.T, p *MultipartParser) []struct {
	headers *httptype.HeaderMap
	body    string
} {
	t.Helper()
	var out []struct {
		headers *httptype.HeaderMap
		body    string
	}
	for {
		part, err := p.NextPart()
		if err != nil {
			if errors.Is(err, async.End) {
				return out
			}
			t.Fatalf("NextPart: %v", err)
		}
		body, err := stream.ReadAll(part.Body, 0)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		out = append(out, struct {
			headers *httptype.HeaderMap
			body    string
		}{part.Headers, string(body)})
	}
}

func TestMultipartParserTwoParts(t *testing.T) {
	boundary := "X-Boundary-Test"
	wire := "--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"field1\"\r\n\r\n" +
		"value1" +
		"\r\n--" + boundary + "\r\n" +
		"Content-Disposition: form-data; name=\"file1\"; filename=\"a.txt\"\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"hello\nworld" +
		"\r\n--" + boundary + "--\r\n"

	origin := stream.NewSimpleByteSource([]byte(wire))
	p := NewMultipartParser(origin, boundary, headparse.Limits{MaxTotalBytes: 1 << 20})

	parts := readAllParts(t, p)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].body != "value1" {
		t.Errorf("part0 body = %q, want %q", parts[0].body, "value1")
	}
	if parts[1].body != "hello\nworld" {
		t.Errorf("part1 body = %q, want %q", parts[1].body, "hello\nworld")
	}
	if got := parts[1].headers.Get("Content-Type"); got != "text/plain" {
		t.Errorf("part1 content-type = %q", got)
	}
	disp, err := httptype.ParseTokenParams(parts[1].headers.Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse disposition: %v", err)
	}
	if name, _ := disp.Param("filename"); name != "a.txt" {
		t.Errorf("filename = %q, want a.txt", name)
	}
}

func TestMultipartParserWithPreamble(t *testing.T) {
	boundary := "B1"
	wire := "this is a preamble that should be discarded\r\n" +
		"--" + boundary + "\r\n" +
		"X-Foo: bar\r\n\r\n" +
		"body" +
		"\r\n--" + boundary + "--\r\n"

	origin := stream.NewSimpleByteSource([]byte(wire))
	p := NewMultipartParser(origin, boundary, headparse.Limits{})
	parts := readAllParts(t, p)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0].body != "body" {
		t.Errorf("body = %q", parts[0].body)
	}
}

func TestMultipartParserSkipsUndrainedBody(t *testing.T) {
	boundary := "B2"
	wire := "--" + boundary + "\r\n\r\n" +
		"this body is never read by the caller" +
		"\r\n--" + boundary + "\r\n\r\n" +
		"second" +
		"\r\n--" + boundary + "--\r\n"

	origin := stream.NewSimpleByteSource([]byte(wire))
	p := NewMultipartParser(origin, boundary, headparse.Limits{})

	first, err := p.NextPart()
	if err != nil {
		t.Fatalf("NextPart 1: %v", err)
	}
	_ = first // deliberately not read

	second, err := p.NextPart()
	if err != nil {
		t.Fatalf("NextPart 2: %v", err)
	}
	body, err := stream.ReadAll(second.Body, 0)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "second" {
		t.Errorf("second body = %q, want %q", body, "second")
	}

	if _, err := p.NextPart(); !errors.Is(err, async.End) {
		t.Errorf("expected async.End, got %v", err)
	}
}

func TestMultipartRoundTrip(t *testing.T) {
	boundary := "roundtrip-boundary"
	h1 := httptype.NewHeaderMap()
	h1.Set("Content-Disposition", `form-data; name="a"`)
	h2 := httptype.NewHeaderMap()
	h2.Set("Content-Disposition", `form-data; name="b"; filename="b.bin"`)
	h2.Set("Content-Type", "application/octet-stream")

	parts := []*PartToWrite{
		{Headers: h1, Body: stream.NewSimpleByteSource([]byte("alpha"))},
		{Headers: h2, Body: stream.NewSimpleByteSource([]byte("beta-bytes"))},
	}
	gen := NewMultipartByteSource(boundary, NewSlicePartSupplier(parts))
	wire, err := stream.ReadAll(gen, 0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	p := NewMultipartParser(stream.NewSimpleByteSource(wire), boundary, headparse.Limits{})
	got := readAllParts(t, p)
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d: %q", len(got), wire)
	}
	if got[0].body != "alpha" {
		t.Errorf("part0 = %q", got[0].body)
	}
	if got[1].body != "beta-bytes" {
		t.Errorf("part1 = %q", got[1].body)
	}
	if got[1].headers.Get("Content-Type") != "application/octet-stream" {
		t.Errorf("part1 content-type = %q", got[1].headers.Get("Content-Type"))
	}
}
