package multipart

import (
	"errors"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/headparse"
	"github.com/opsnet/asyncio/pkg/httptype"
	"github.com/opsnet/asyncio/pkg/stream"
)

// Part is one parsed multipart body part. Body is only valid until the
// next call to MultipartParser.NextPart; requesting the next part
// implicitly drains and closes the current one.
type Part struct {
	Headers *httptype.HeaderMap
	Body    stream.ByteSource
}

// MultipartParser turns a boundary and an origin ByteSource holding a
// multipart/form-data (or any RFC 2046) body into a lazy sequence of Parts.
// It wraps origin in a single DelimitedByteSource scanning for
// "\r\n--"+boundary, matching the grammar of spec section 4.12: a leading
// CRLF is synthesized so the parser behaves identically whether or not
// origin's bytes start with one.
type MultipartParser struct {
	delim  *stream.DelimitedByteSource
	seg    *boundaryAwareSource
	limits headparse.Limits

	// pending holds bytes a header Scanner read ahead of the blank line
	// that ends a part's headers; they belong to that part's body and must
	// be replayed before the next real read from seg.
	pending []byte

	finished bool
}

// NewMultipartParser returns a parser for origin using boundary, enforcing
// limits on each part's header block.
func NewMultipartParser(origin stream.ByteSource, boundary string, limits headparse.Limits) *MultipartParser {
	prefixed := stream.Concat(stream.NewSimpleByteSource([]byte("\r\n")), origin)
	delim := stream.NewDelimitedByteSource(prefixed, []byte("\r\n--"+boundary))
	return &MultipartParser{
		delim:  delim,
		seg:    &boundaryAwareSource{delim: delim},
		limits: limits,
	}
}

// boundaryAwareSource adapts a DelimitedByteSource for one segment's worth
// of reads: it surfaces ordinary buffers untouched but turns the delimiter
// sentinel into async.End, remembering that a real boundary (not source
// EOF) ended the segment.
type boundaryAwareSource struct {
	delim       *stream.DelimitedByteSource
	hitSentinel bool
}

func (b *boundaryAwareSource) read() *async.Async[*stream.Buffer] {
	out, complete, fail := async.New[*stream.Buffer]()
	b.delim.Read().OnComplete(func(buf *stream.Buffer, err error) {
		if err != nil {
			fail(err)
			return
		}
		if buf == b.delim.Sentinel() {
			b.hitSentinel = true
			fail(async.End)
			return
		}
		complete(buf)
	})
	return out
}

// readBody serves one Read call for the currently active part's body: any
// bytes a header Scanner read ahead are replayed first, then reads fall
// through to the shared delimited segment.
func (p *MultipartParser) readBody() *async.Async[*stream.Buffer] {
	if len(p.pending) > 0 {
		buf := stream.NewBuffer(p.pending)
		p.pending = nil
		return async.Done(buf, nil)
	}
	return p.seg.read()
}

// partBody is the ByteSource handed to callers as Part.Body. It always
// delegates to the owning parser so pending lookahead bytes are respected.
type partBody struct {
	stream.NoSkip
	p *MultipartParser
}

func (b partBody) Read() *async.Async[*stream.Buffer] { return b.p.readBody() }
func (b partBody) Close() *async.Async[struct{}]       { return async.Done(struct{}{}, nil) }

// drainSegment reads and discards the remainder of the current segment
// until a boundary sentinel is hit. Used both to skip a part's preamble (on
// the very first call) and to skip the remainder of a body the caller did
// not fully read before requesting the next part.
func (p *MultipartParser) drainSegment() error {
	for {
		if p.seg.hitSentinel {
			p.seg.hitSentinel = false
			return nil
		}
		_, err := p.readBody().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				if p.seg.hitSentinel {
					p.seg.hitSentinel = false
					return nil
				}
				return rawerrors.NewProtocolError("multipart", "unexpected end of stream before boundary", nil)
			}
			return err
		}
	}
}

// NextPart closes the previous part (if any) and returns the next one. It
// returns async.End once the closing "--boundary--" delimiter has been
// consumed.
func (p *MultipartParser) NextPart() (*Part, error) {
	if p.finished {
		return nil, async.End
	}
	if err := p.drainSegment(); err != nil {
		return nil, err
	}

	scanner := headparse.NewScanner(partBody{p: p}, p.limits)
	line, err := scanner.NextLine()
	if err != nil {
		return nil, err
	}
	switch string(line) {
	case "--":
		p.finished = true
		if _, err := p.delim.Close().Wait(); err != nil {
			return nil, err
		}
		return nil, async.End
	case "":
		// falls through to header parsing below
	default:
		return nil, rawerrors.NewProtocolError("multipart", "malformed boundary line", nil)
	}

	fields, err := headparse.ParseBlock(scanner, p.limits)
	if err != nil {
		return nil, err
	}
	p.pending = scanner.Unconsumed()

	headers := httptype.NewHeaderMap()
	for _, f := range fields {
		headers.Add(f.Name, f.Value)
	}
	return &Part{Headers: headers, Body: partBody{p: p}}, nil
}

// Close releases the underlying origin source.
func (p *MultipartParser) Close() *async.Async[struct{}] {
	return p.delim.Close()
}
