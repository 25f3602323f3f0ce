package staticfile

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/opsnet/asyncio/pkg/stream"
)

// FileConfig is what a Config.ConfMod callback returns to customize a
// single discovered file, per spec section 4.15.
type FileConfig struct {
	// Exclude drops the file from discovery entirely.
	Exclude bool
	// Cache enables the in-memory gzip cache (only meaningful with Gzip).
	Cache bool
	// Gzip enables serving a gzip-compressed representation to clients
	// that accept it.
	Gzip bool
	// IsIndexFile overrides the default (filename == "index.html") when
	// non-nil.
	IsIndexFile *bool
	// ExpiresAbsolute and ExpiresRelative are mutually exclusive; at most
	// one should be set. ExpiresAbsolute wins if both are (a configuration
	// mistake, not validated further).
	ExpiresAbsolute time.Time
	ExpiresRelative time.Duration
	// ContentType overrides the suffix-map default when non-empty.
	ContentType string
	// ETag overrides DefaultETag when non-empty.
	ETag string
	// ExtraHeaders are added to every 200 response for this file.
	ExtraHeaders map[string]string
}

// Config configures a Handler's discovery walk and runtime behavior.
type Config struct {
	// Root is the directory walked at construction and monitored
	// thereafter.
	Root string
	// UriPrefix is prepended to every file's URI ("" or e.g. "/static").
	UriPrefix string
	// PathMatcher, if set, is consulted for every discovered file
	// (relative, slash-separated path); returning false excludes it. A nil
	// PathMatcher accepts everything ConfMod doesn't exclude.
	PathMatcher func(relPath string) bool
	// ConfMod customizes a discovered file; a nil ConfMod applies
	// DefaultFileConfig to everything.
	ConfMod func(relPath string) FileConfig
	// TmpDir roots the on-disk gzip cache (spec section 6's
	// "/tmp/<vendor>/file_handler_gz_cache/..." layout, rooted here
	// instead of a hardcoded vendor path).
	TmpDir string
	// Provider supplies file handles for both plain and gzip-source reads;
	// nil uses stream.SimpleFileChannelProvider{}.
	Provider stream.FileChannelProvider
}

// DefaultFileConfig is applied to every file when Config.ConfMod is nil:
// no gzip, no cache, default content type and ETag, no extra headers.
func DefaultFileConfig(relPath string) FileConfig {
	return FileConfig{}
}

var suffixContentType = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".mjs":  "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".xml":  "application/xml; charset=utf-8",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".pdf":  "application/pdf",
	".wasm": "application/wasm",
}

// ContentTypeForSuffix returns the default content type for a file by
// extension, or "application/octet-stream" when the extension is unknown.
func ContentTypeForSuffix(relPath string) string {
	ext := strings.ToLower(filepath.Ext(relPath))
	if ct, ok := suffixContentType[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// DefaultIsIndexFile reports whether relPath's filename is "index.html",
// the default rule for index-file alternate-URI registration.
func DefaultIsIndexFile(relPath string) bool {
	return filepath.Base(relPath) == "index.html"
}
