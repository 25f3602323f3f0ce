package multipart

import (
	"errors"
	"strings"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

// PartToWrite is one part the generator emits: its headers and the
// ByteSource supplying its body. The generator reads Body to completion and
// closes it before requesting the next part.
type PartToWrite struct {
	Headers *httptype.HeaderMap
	Body    stream.ByteSource
}

// PartSupplier yields parts lazily; NextPart returns async.End once
// exhausted. This lets a caller stream parts (e.g. one per uploaded file)
// without holding them all in memory at once.
type PartSupplier interface {
	NextPart() (*PartToWrite, error)
}

// SlicePartSupplier adapts a fixed slice of parts into a PartSupplier.
type SlicePartSupplier struct {
	parts []*PartToWrite
	i     int
}

// NewSlicePartSupplier wraps a fixed, already-known list of parts.
func NewSlicePartSupplier(parts []*PartToWrite) *SlicePartSupplier {
	return &SlicePartSupplier{parts: parts}
}

// NextPart implements PartSupplier.
func (s *SlicePartSupplier) NextPart() (*PartToWrite, error) {
	if s.i >= len(s.parts) {
		return nil, async.End
	}
	p := s.parts[s.i]
	s.i++
	return p, nil
}

// NewMultipartByteSource generates a multipart/form-data body on the fly:
// the first delimiter without a leading CRLF, then for each part
// "\r\n--"+boundary+CRLF+headers+CRLF+body, then the close delimiter
// "\r\n--"+boundary+"--"+CRLF, per spec section 4.13. Generation happens on
// a background goroutine feeding an unbuffered BytePipe, so the returned
// source can be consumed at the reader's own pace.
func NewMultipartByteSource(boundary string, parts PartSupplier) stream.ByteSource {
	pipe := stream.NewBytePipe()
	go generate(pipe.Sink(), boundary, parts)
	return pipe.Source()
}

func generate(sink stream.ByteSink, boundary string, parts PartSupplier) {
	write := func(s string) error {
		_, err := sink.Write(stream.NewBuffer([]byte(s))).Wait()
		return err
	}

	first := true
	for {
		part, err := parts.NextPart()
		if err != nil {
			if errors.Is(err, async.End) {
				break
			}
			sink.Error(err)
			return
		}

		delim := "--" + boundary
		if !first {
			delim = "\r\n--" + boundary
		}
		first = false
		if err := write(delim + "\r\n"); err != nil {
			return
		}

		for _, name := range part.Headers.Keys() {
			for _, value := range part.Headers.Values(name) {
				if !isValidHeaderValue(value) {
					sink.Error(rawerrors.NewValidationError("multipart-generate", "header value contains CR or LF: "+name))
					return
				}
				if err := write(name + ": " + value + "\r\n"); err != nil {
					return
				}
			}
		}
		if err := write("\r\n"); err != nil {
			return
		}

		if err := pumpBody(sink, part.Body); err != nil {
			return
		}
		part.Body.Close()
	}

	if err := write("\r\n--" + boundary + "--\r\n"); err != nil {
		return
	}
	sink.Close()
}

func pumpBody(sink stream.ByteSink, body stream.ByteSource) error {
	for {
		buf, err := body.Read().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				return nil
			}
			sink.Error(err)
			return err
		}
		if _, err := sink.Write(buf).Wait(); err != nil {
			return err
		}
	}
}

func isValidHeaderValue(v string) bool {
	return !strings.ContainsAny(v, "\r\n")
}
