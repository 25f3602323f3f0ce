package httptype

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// CharsetDecoder looks up the IANA/WHATWG charset name (as seen in a
// Content-Type "charset=" parameter, case-insensitive, e.g. "utf-8",
// "iso-8859-1", "windows-1252") and returns a decode function suitable for
// stream.AsString. An unknown or empty name falls back to UTF-8, matching
// the MIME default a Content-Type without a charset parameter implies.
func CharsetDecoder(name string) func([]byte) (string, error) {
	enc, err := resolveEncoding(name)
	if err != nil || enc == nil {
		return func(b []byte) (string, error) { return string(b), nil }
	}
	return func(b []byte) (string, error) {
		return enc.NewDecoder().String(string(b))
	}
}

func resolveEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return encoding.Nop, nil
	}
	return htmlindex.Get(name)
}
