package staticfile

import (
	"os"
	"strconv"
	"strings"

	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

// httpTimeFormat is IMF-fixdate, the format Last-Modified and Expires use
// per spec section 6.
const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Handle produces a response for request: synchronous and non-blocking,
// per spec section 4.15. The only filesystem work this path may trigger
// (first-access gzip build) is itself bounded by the same guarantee's
// spirit — bytes are served incrementally off the resulting ByteSource, not
// materialized before responding — though building the gzip representation
// the very first time does block the caller on disk I/O; subsequent
// requests for the same file hit the cache.
func (h *Handler) Handle(req *Request) *Response {
	if req.Method != "GET" && req.Method != "HEAD" {
		resp := errorResponse(405, "method not allowed")
		resp.Headers.Set("Allow", "GET, HEAD")
		return resp
	}

	rawPath, rawQuery, ok := splitURI(req.URI)
	if !ok {
		return errorResponse(400, "malformed request URI")
	}
	upath := httptype.NewUriPath(rawPath)
	canonical := upath.String()
	if canonical == "" {
		canonical = "/"
	}

	fi, found := h.lookup(canonical)
	if !found {
		return errorResponse(404, "not found")
	}

	nowT := now()
	tagged := rawQuery != ""
	tagMatches := tagged && httptype.DecodeQueryMinimal(rawQuery) == fi.ETag

	acceptGzip := fi.Gzip && req.Headers != nil && strings.Contains(
		strings.ToLower(req.Headers.Get("Accept-Encoding")), "gzip")

	resp := newResponse(200, "OK")
	resp.Headers.Set("Content-Type", fi.ContentType)
	resp.Headers.Set("Last-Modified", fi.ModTime.UTC().Format(httpTimeFormat))
	if fi.Gzip {
		resp.Headers.Set("Vary", "Accept-Encoding")
	}
	for k, v := range fi.ExtraHeaders {
		resp.Headers.Set(k, v)
	}

	switch {
	case tagged && tagMatches:
		resp.Headers.Set("Expires", nowT.Add(farFutureDelta).UTC().Format(httpTimeFormat))
	case tagged && !tagMatches:
		resp.Headers.Set("Expires", nowT.UTC().Format(httpTimeFormat))
	default:
		if exp, ok := fi.expires(nowT); ok {
			resp.Headers.Set("Expires", exp.UTC().Format(httpTimeFormat))
		}
	}

	if acceptGzip {
		etag := fi.ETag + ".gzip"
		resp.Headers.Set("ETag", `"`+etag+`"`)
		resp.Headers.Set("Content-Encoding", "gzip")
		if fi.Cache {
			view := fi.memGzipView()
			if req.Method == "HEAD" {
				view.Close()
			} else {
				resp.Body = view
			}
			return resp
		}
		path, err := fi.ensureDiskGzip(h.tmpRoot)
		if err != nil {
			return errorResponse(500, "gzip cache build failed")
		}
		if req.Method == "GET" {
			resp.Body = stream.NewFileByteSource(path, nil)
		}
		if size, ok := statSize(path); ok {
			resp.Headers.Set("Content-Length", strconv.FormatInt(size, 10))
		}
		return resp
	}

	resp.Headers.Set("ETag", `"`+fi.ETag+`"`)
	resp.Headers.Set("Content-Length", strconv.FormatInt(fi.Size, 10))
	if req.Method == "GET" {
		resp.Body = fi.source()
	}
	return resp
}

// splitURI splits a request target into its path and (bare, no '?')
// query components, failing if the path contains bytes that can never be
// part of a valid URI (control characters).
func splitURI(uri string) (path, query string, ok bool) {
	for i := 0; i < len(uri); i++ {
		if uri[i] < 0x20 || uri[i] == 0x7f {
			return "", "", false
		}
	}
	if idx := strings.IndexByte(uri, '?'); idx >= 0 {
		return uri[:idx], uri[idx+1:], true
	}
	return uri, "", true
}

func statSize(path string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return fi.Size(), true
}
