package stream

import (
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/opsnet/asyncio/pkg/async"
)

// gzipChunkCap bounds each write handed to the deflater, avoiding
// pathologically large single writes when origin buffers are big.
const gzipChunkCap = 32 * 1024

// GzipByteSource streams origin's bytes through an RFC 1952 gzip encoder:
// the 10-byte header is emitted first, compressed blocks follow as they are
// produced, and the 8-byte trailer (CRC-32 and the original length mod
// 2^32) is emitted once origin reaches end of stream. It progresses
// header -> reading -> deflating -> trailer -> done -> closed, driven
// internally by a pump goroutine feeding a klauspost/compress gzip.Writer
// through an io.Pipe.
type GzipByteSource struct {
	*SimpleByteSource

	origin   ByteSource
	pw       *io.PipeWriter
	closeErr error
	once     sync.Once
}

// NewGzipByteSource wraps origin, compressing at the given level (0-9;
// gzip.DefaultCompression is accepted).
func NewGzipByteSource(origin ByteSource, level int) *GzipByteSource {
	pr, pw := io.Pipe()
	g := &GzipByteSource{origin: origin, pw: pw}
	g.SimpleByteSource = FromReader(pr)
	go g.pump(pw, level)
	return g
}

func (g *GzipByteSource) pump(pw *io.PipeWriter, level int) {
	zw, err := gzip.NewWriterLevel(pw, level)
	if err != nil {
		pw.CloseWithError(err)
		return
	}
	for {
		buf, err := g.origin.Read().Wait()
		if err != nil {
			if errors.Is(err, async.End) {
				if cerr := zw.Close(); cerr != nil {
					pw.CloseWithError(cerr)
					return
				}
				pw.Close()
				return
			}
			zw.Close()
			pw.CloseWithError(err)
			return
		}
		data := buf.Bytes()
		for len(data) > 0 {
			n := len(data)
			if n > gzipChunkCap {
				n = gzipChunkCap
			}
			if _, werr := zw.Write(data[:n]); werr != nil {
				pw.CloseWithError(werr)
				return
			}
			data = data[n:]
		}
	}
}

// Close implements ByteSource: it closes the origin and releases the pipe.
func (g *GzipByteSource) Close() *async.Async[struct{}] {
	g.once.Do(func() {
		g.origin.Close().Wait()
		g.SimpleByteSource.Close().Wait()
	})
	return async.Done(struct{}{}, nil)
}
