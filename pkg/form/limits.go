// Package form implements the form-data pipeline of spec section 4.10: a
// streaming URL-encoded parser, a multipart-to-form parser that spills file
// parts to disk, and the CSRF check that runs over either parser's result.
package form

// Limits bounds the resource use of a single form parse. Zero means
// unlimited for that dimension, matching headparse.Limits' convention.
type Limits struct {
	// MaxEntryKeyBytes bounds a single param or file field name.
	MaxEntryKeyBytes int64
	// MaxParamValueTotalBytes bounds the sum of all in-memory param value
	// bytes across the whole parse (URL-encoded or multipart non-file
	// parts share this budget, per spec section 4.10).
	MaxParamValueTotalBytes int64
	// MaxParamEntries bounds the number of name/value param pairs.
	MaxParamEntries int

	// MaxFileSize bounds a single uploaded file's size.
	MaxFileSize int64
	// MaxFileEntries bounds the number of file parts accepted.
	MaxFileEntries int
	// MaxFileNameBytes bounds a file part's filename parameter.
	MaxFileNameBytes int

	// MaxPartHeaderNameBytes, MaxPartHeaderValueBytes, and
	// MaxPartHeadTotalBytes bound a single multipart part's header block
	// (spec section 4.12: "configurable between getNextPart calls").
	MaxPartHeaderNameBytes  int
	MaxPartHeaderValueBytes int
	MaxPartHeadTotalBytes   int

	// Charset names the encoding percent-decoded bytes are interpreted as
	// (the Content-Type "charset=" parameter of the submission). Empty
	// means UTF-8, the MIME default when no charset parameter is present.
	Charset string
}

// DefaultLimits returns generous but finite bounds suitable for most form
// submissions: 1 MiB of param values, 100 params, 32 MiB per file, 16
// files, 8 KiB header blocks.
func DefaultLimits() Limits {
	return Limits{
		MaxEntryKeyBytes:        4096,
		MaxParamValueTotalBytes: 1 << 20,
		MaxParamEntries:         100,
		MaxFileSize:             32 << 20,
		MaxFileEntries:          16,
		MaxFileNameBytes:        1024,
		MaxPartHeaderNameBytes:  1024,
		MaxPartHeaderValueBytes: 4096,
		MaxPartHeadTotalBytes:   8192,
	}
}
