// Package headparse implements a generic RFC-822-style header block parser:
// CRLF-terminated "Name: value" lines ending at a blank line, with
// per-field and total size limits enforced while scanning so a malicious or
// broken peer cannot force unbounded buffering.
package headparse

import (
	"bytes"
	"errors"
	"strings"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/stream"
)

// Limits bounds a single header block parse. Zero means unlimited for that
// dimension.
type Limits struct {
	MaxFieldNameBytes  int
	MaxFieldValueBytes int
	MaxTotalBytes      int
}

// Field is one parsed header line, preserving original insertion order so
// callers that care about header order (HeaderMap) can rebuild it exactly.
type Field struct {
	Name  string
	Value string
}

// Scanner splits a ByteSource into CRLF-terminated lines, buffering no more
// than one line's worth of bytes past the configured limit before failing.
type Scanner struct {
	src   stream.ByteSource
	buf   []byte
	eof   bool
	total int
	limits Limits
}

// NewScanner wraps src for line-oriented reading.
func NewScanner(src stream.ByteSource, limits Limits) *Scanner {
	return &Scanner{src: src, limits: limits}
}

// NextLine returns the next line with its trailing CRLF (or LF) stripped,
// or (nil, io.EOF-equivalent async.End) once the source is exhausted with
// no trailing partial line. Folded continuation lines (starting with a
// space or tab, per RFC 822) are NOT unfolded here; ParseBlock handles
// folding because it alone knows which line continues a previous field.
func (s *Scanner) NextLine() ([]byte, error) {
	for {
		if idx := bytes.IndexByte(s.buf, '\n'); idx >= 0 {
			line := s.buf[:idx]
			s.buf = s.buf[idx+1:]
			line = bytes.TrimSuffix(line, []byte{'\r'})
			return line, nil
		}
		if s.limits.MaxTotalBytes > 0 && len(s.buf) > s.limits.MaxTotalBytes {
			return nil, rawerrors.NewOverLimitError("head-parse", "maxTotalBytes", int64(s.limits.MaxTotalBytes))
		}
		if s.eof {
			if len(s.buf) == 0 {
				return nil, async.End
			}
			line := s.buf
			s.buf = nil
			return line, nil
		}
		chunk, err := s.src.Read().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				s.eof = true
				continue
			}
			return nil, err
		}
		s.total += chunk.Len()
		if s.limits.MaxTotalBytes > 0 && s.total > s.limits.MaxTotalBytes {
			return nil, rawerrors.NewOverLimitError("head-parse", "maxTotalBytes", int64(s.limits.MaxTotalBytes))
		}
		s.buf = append(s.buf, chunk.Bytes()...)
	}
}

// Unconsumed returns and clears any bytes already read from src into the
// scanner's internal buffer but not yet delivered as a line. A caller that
// switches from line-oriented header reads to raw body reads on the same
// underlying source must prepend these bytes to its own first read, or they
// are lost.
func (s *Scanner) Unconsumed() []byte {
	b := s.buf
	s.buf = nil
	return b
}

// ParseBlock reads lines from s until a blank line (end of header block) or
// error, returning the parsed fields in wire order. A line beginning with a
// space or tab continues the previous field's value (RFC 822 folding); a
// malformed line (no ':') is a fatal protocol error.
func ParseBlock(s *Scanner, limits Limits) ([]Field, error) {
	var fields []Field
	for {
		line, err := s.NextLine()
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return fields, nil
		}
		if (line[0] == ' ' || line[0] == '\t') && len(fields) > 0 {
			last := &fields[len(fields)-1]
			last.Value += " " + strings.TrimSpace(string(line))
			if limits.MaxFieldValueBytes > 0 && len(last.Value) > limits.MaxFieldValueBytes {
				return nil, rawerrors.NewOverLimitError("head-parse", "maxFieldValueBytes", int64(limits.MaxFieldValueBytes))
			}
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return nil, rawerrors.NewProtocolError("head-parse", "malformed header line (no colon)", nil)
		}
		name := strings.TrimSpace(string(line[:colon]))
		value := strings.TrimSpace(string(line[colon+1:]))
		if limits.MaxFieldNameBytes > 0 && len(name) > limits.MaxFieldNameBytes {
			return nil, rawerrors.NewOverLimitError("head-parse", "maxFieldNameBytes", int64(limits.MaxFieldNameBytes))
		}
		if limits.MaxFieldValueBytes > 0 && len(value) > limits.MaxFieldValueBytes {
			return nil, rawerrors.NewOverLimitError("head-parse", "maxFieldValueBytes", int64(limits.MaxFieldValueBytes))
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
}
