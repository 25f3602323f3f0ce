// Package staticfile implements the static-file handler of spec section
// 4.15: per-file metadata cached in memory, ETag computation, pre-gzipped
// representations served from memory or disk, a filesystem monitor, and
// 200-or-error responses, with no 304 or range responses (conditional GET is expressed
// entirely through the tagged-URI ETag match, not If-None-Match, per the
// spec's narrower scope).
package staticfile

import (
	"fmt"
	"sync"
	"time"

	"github.com/opsnet/asyncio/pkg/stream"
)

// FileInfo is the immutable-except-for-lazy-gzip-cache per-file record
// held in a Handler's uri2info map. A filesystem change replaces the whole
// FileInfo (old one discarded, including any gzip caches it had built) so
// clients never observe new bytes paired with stale headers.
type FileInfo struct {
	// RelPath is the file's path relative to the handler's root, always
	// slash-separated.
	RelPath string
	// AbsPath is the absolute filesystem path.
	AbsPath string
	Size    int64
	ModTime time.Time

	ContentType string
	ETag        string

	Gzip  bool
	Cache bool // in-memory gzip cache vs disk-backed

	ExpiresAbsolute time.Time     // zero if unset
	ExpiresRelative time.Duration // 0 if unset; mutually exclusive with Absolute

	ExtraHeaders map[string]string

	provider stream.FileChannelProvider

	mu          sync.Mutex
	memCache    *stream.ByteSourceCache
	diskPath    string
	diskErr     error // sticky: sec. 9 open question, no recovery short of mtime change
	diskBuildMu sync.Mutex
}

// NewFileInfo builds the per-file record for a freshly discovered or
// changed file.
func NewFileInfo(relPath, absPath string, size int64, modTime time.Time, provider stream.FileChannelProvider) *FileInfo {
	return &FileInfo{
		RelPath:      relPath,
		AbsPath:      absPath,
		Size:         size,
		ModTime:      modTime,
		ExtraHeaders: map[string]string{},
		provider:     provider,
	}
}

// DefaultETag renders the "t-<epoch-sec-hex>-<nanos-hex>" form spec
// section 4.15 specifies as the default when a confMod does not override
// ETag.
func DefaultETag(modTime time.Time) string {
	return fmt.Sprintf("t-%x-%x", modTime.Unix(), modTime.Nanosecond())
}

// source opens a fresh ByteSource over the plain (uncompressed) file
// contents.
func (fi *FileInfo) source() stream.ByteSource {
	return stream.NewFileByteSource(fi.AbsPath, fi.provider)
}

// String renders a short human-readable summary for log lines.
func (fi *FileInfo) String() string {
	return fmt.Sprintf("FileInfo{%s size=%d etag=%s gzip=%v cache=%v}",
		fi.RelPath, fi.Size, fi.ETag, fi.Gzip, fi.Cache)
}

// DebugString adds modtime and content-type to String's summary.
func (fi *FileInfo) DebugString() string {
	return fmt.Sprintf("%s modTime=%s contentType=%s", fi.String(), fi.ModTime.Format(time.RFC3339), fi.ContentType)
}

// expires computes the Expires header value per the file's configured
// policy, or the zero Time if none is configured.
func (fi *FileInfo) expires(now time.Time) (time.Time, bool) {
	if !fi.ExpiresAbsolute.IsZero() {
		return fi.ExpiresAbsolute, true
	}
	if fi.ExpiresRelative > 0 {
		return now.Add(fi.ExpiresRelative), true
	}
	return time.Time{}, false
}

// farFutureDelta is used when a tagged URI's ETag matches: ten years, chosen
// to read unambiguously as "effectively forever" in a response header
// without overflowing IMF-fixdate rendering the way literal time.Time{}
// max values would.
var farFutureDelta = 10 * 365 * 24 * time.Hour
