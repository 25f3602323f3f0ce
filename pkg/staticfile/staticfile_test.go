package staticfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

func writeFile(t *testing.T, dir, rel, contents string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestHandler(t *testing.T, root string, cfg Config) *Handler {
	t.Helper()
	cfg.Root = root
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestTaggedURIFarFutureExpires(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<html></html>")

	h := newTestHandler(t, root, Config{UriPrefix: "/u"})

	uri, ok := h.Uri("")
	if !ok {
		t.Fatal("expected index.html to be registered under the empty relative path")
	}
	if !strings.HasPrefix(uri, "/u/?") {
		t.Fatalf("uri = %q", uri)
	}

	uri2, ok := h.Uri("index.html")
	if !ok {
		t.Fatal("expected index.html to be registered directly")
	}
	if !strings.HasPrefix(uri2, "/u/index.html?") {
		t.Fatalf("uri2 = %q", uri2)
	}

	path, query, ok := splitURI(uri)
	if !ok {
		t.Fatal("splitURI failed")
	}
	resp := h.Handle(&Request{Method: "GET", URI: path + "?" + query, Headers: httptype.NewHeaderMap()})
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	if resp.Headers.Get("ETag") == "" {
		t.Fatal("expected ETag header")
	}
	expires, err := time.Parse(httpTimeFormat, resp.Headers.Get("Expires"))
	if err != nil {
		t.Fatalf("parsing Expires: %v", err)
	}
	if expires.Before(time.Now().Add(5 * 365 * 24 * time.Hour)) {
		t.Fatalf("expected far-future Expires, got %v", expires)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
}

func TestMismatchedTagForcesImmediateExpiry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	h := newTestHandler(t, root, Config{})

	resp := h.Handle(&Request{Method: "GET", URI: "/a.txt?not-the-etag", Headers: httptype.NewHeaderMap()})
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	expires, err := time.Parse(httpTimeFormat, resp.Headers.Get("Expires"))
	if err != nil {
		t.Fatalf("parsing Expires: %v", err)
	}
	if expires.After(time.Now().Add(time.Minute)) {
		t.Fatalf("expected immediate expiry, got %v", expires)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
}

func TestMethodNotAllowed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	h := newTestHandler(t, root, Config{})

	resp := h.Handle(&Request{Method: "POST", URI: "/a.txt", Headers: httptype.NewHeaderMap()})
	if resp.Status != 405 {
		t.Fatalf("status = %d", resp.Status)
	}
	if resp.Headers.Get("Allow") == "" {
		t.Fatal("expected Allow header")
	}
}

func TestNotFound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	h := newTestHandler(t, root, Config{})

	resp := h.Handle(&Request{Method: "GET", URI: "/missing.txt", Headers: httptype.NewHeaderMap()})
	if resp.Status != 404 {
		t.Fatalf("status = %d", resp.Status)
	}
}

func TestGzipMemoryCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", strings.Repeat("hello", 1000))
	h := newTestHandler(t, root, Config{
		ConfMod: func(rel string) FileConfig {
			return FileConfig{Gzip: true, Cache: true}
		},
	})

	headers := httptype.NewHeaderMap()
	headers.Set("Accept-Encoding", "gzip, deflate")
	resp := h.Handle(&Request{Method: "GET", URI: "/a.txt", Headers: headers})
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	if resp.Headers.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, headers = %v", resp.Headers.Keys())
	}
	if !strings.HasSuffix(resp.Headers.Get("ETag"), ".gzip\"") {
		t.Fatalf("etag = %q", resp.Headers.Get("ETag"))
	}
	data, err := stream.ReadAll(resp.Body, 0)
	if err != nil {
		t.Fatalf("reading gzip body: %v", err)
	}
	if len(data) == 0 || data[0] != 0x1f || data[1] != 0x8b {
		t.Fatalf("expected gzip magic header, got %v", data[:2])
	}
}

func TestNoGzipWithoutAcceptEncoding(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	h := newTestHandler(t, root, Config{
		ConfMod: func(rel string) FileConfig { return FileConfig{Gzip: true, Cache: true} },
	})

	resp := h.Handle(&Request{Method: "GET", URI: "/a.txt", Headers: httptype.NewHeaderMap()})
	if resp.Headers.Get("Content-Encoding") == "gzip" {
		t.Fatal("should not gzip without Accept-Encoding")
	}
	if resp.Headers.Get("Vary") != "Accept-Encoding" {
		t.Fatal("expected Vary header even when not gzipped this time")
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
}

func TestHeadHasNoBody(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	h := newTestHandler(t, root, Config{})

	resp := h.Handle(&Request{Method: "HEAD", URI: "/a.txt", Headers: httptype.NewHeaderMap()})
	if resp.Status != 200 {
		t.Fatalf("status = %d", resp.Status)
	}
	if resp.Body != nil {
		t.Fatal("HEAD response must not carry a body")
	}
	if resp.Headers.Get("Content-Length") != "5" {
		t.Fatalf("content-length = %q", resp.Headers.Get("Content-Length"))
	}
}

func TestMonitorPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	h := newTestHandler(t, root, Config{})

	first := h.Handle(&Request{Method: "GET", URI: "/a.txt", Headers: httptype.NewHeaderMap()})
	firstETag := first.Headers.Get("ETag")
	if first.Body != nil {
		first.Body.Close()
	}

	time.Sleep(10 * time.Millisecond)
	writeFile(t, root, "a.txt", "goodbye!!")
	// Force the modtime to visibly differ even on coarse filesystem clocks.
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(filepath.Join(root, "a.txt"), future, future); err != nil {
		t.Fatal(err)
	}

	h.monitor.pollOnce()

	second := h.Handle(&Request{Method: "GET", URI: "/a.txt", Headers: httptype.NewHeaderMap()})
	if second.Status != 200 {
		t.Fatalf("status = %d", second.Status)
	}
	if second.Headers.Get("ETag") == firstETag {
		t.Fatal("expected ETag to change after file update")
	}
	if second.Body != nil {
		data, _ := stream.ReadAll(second.Body, 0)
		if string(data) != "goodbye!!" {
			t.Fatalf("body = %q", data)
		}
	}
}
