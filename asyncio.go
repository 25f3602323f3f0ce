// Package asyncio provides an async byte-stream core for building HTTP-shaped
// protocol stacks: composable ByteSource/ByteSink transforms, a TLS/plain
// connection adapter, streaming multipart and URL-encoded form parsing, and
// a static file handler, all built on a minimal single-completion future
// primitive instead of an ambient goroutine-per-request runtime.
package asyncio

import (
	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/form"
	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/multipart"
	"github.com/opsnet/asyncio/pkg/staticfile"
	"github.com/opsnet/asyncio/pkg/stream"
	"github.com/opsnet/asyncio/pkg/tlsconn"
)

// Version is the current version of the asyncio library.
const Version = "1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}

// Re-export the core types callers reach for most often, so a single import
// of this package covers the common path; the pkg/* subpackages remain the
// canonical home for everything else.
type (
	// ByteSource is a readable, ownership-transferring byte stream.
	ByteSource = stream.ByteSource

	// ByteSink is a writable, ownership-transferring byte stream.
	ByteSink = stream.ByteSink

	// Buffer is an immutable chunk of bytes read off a ByteSource.
	Buffer = stream.Buffer

	// Async is a single-completion future with identity-safe cancellation.
	Async[T any] = async.Async[T]

	// Error is a structured error with context information.
	Error = rawerrors.Error

	// ErrorType categorizes an Error.
	ErrorType = rawerrors.ErrorType

	// HeaderMap is an ordered, case-insensitive multi-value header map.
	HeaderMap = httptype.HeaderMap

	// ContentType is a parsed MIME media type plus its parameters.
	ContentType = httptype.ContentType

	// TLSConfig configures the plain/TLS detect-mode connection adapter.
	TLSConfig = tlsconn.Config

	// FormData holds the parsed fields and uploaded files of a form submission.
	FormData = form.Data

	// FormLimits bounds a form parse (entry counts, field and file sizes).
	FormLimits = form.Limits

	// MultipartParser yields the parts of a multipart/form-data body.
	MultipartParser = multipart.MultipartParser

	// StaticFileHandler serves a directory tree as tagged, cacheable URIs.
	StaticFileHandler = staticfile.Handler

	// StaticFileConfig configures a StaticFileHandler.
	StaticFileConfig = staticfile.Config
)

// Re-export error type constants for convenience.
const (
	ErrorTypeProtocol   = rawerrors.ErrorTypeProtocol
	ErrorTypeIO         = rawerrors.ErrorTypeIO
	ErrorTypeTLS        = rawerrors.ErrorTypeTLS
	ErrorTypeOverLimit  = rawerrors.ErrorTypeOverLimit
	ErrorTypeCSRF       = rawerrors.ErrorTypeCSRF
	ErrorTypeCache      = rawerrors.ErrorTypeCache
	ErrorTypeValidation = rawerrors.ErrorTypeValidation
	ErrorTypeEOF        = rawerrors.ErrorTypeEOF
)

// End is the sentinel error signaling a clean end of stream, returned by a
// ByteSource's Read once every byte has been delivered.
var End = async.End

// IsTimeoutError reports whether err is a network timeout.
func IsTimeoutError(err error) bool {
	return rawerrors.IsTimeoutError(err)
}

// IsTemporaryError reports whether err is likely safe to retry.
func IsTemporaryError(err error) bool {
	return rawerrors.IsTemporaryError(err)
}

// IsOverLimit reports whether err is a bounded-parser over-limit failure.
func IsOverLimit(err error) bool {
	return rawerrors.IsOverLimit(err)
}

// IsCSRF reports whether err is a failed cross-site request forgery check.
func IsCSRF(err error) bool {
	return rawerrors.IsCSRF(err)
}

// GetErrorType returns the error type if err is a structured *Error.
func GetErrorType(err error) ErrorType {
	return rawerrors.GetErrorType(err)
}

// NewStaticFileHandler walks cfg.Root and returns a Handler ready to serve,
// starting its filesystem monitor lazily on the first request.
func NewStaticFileHandler(cfg StaticFileConfig) (*StaticFileHandler, error) {
	return staticfile.New(cfg)
}

// DefaultFormLimits returns the conservative default bounds applied to a
// form parse when the caller has no stricter policy of its own.
func DefaultFormLimits() FormLimits {
	return form.DefaultLimits()
}
