package stream

import (
	"sync"

	"github.com/opsnet/asyncio/internal/rawerrors"
	"github.com/opsnet/asyncio/pkg/async"
)

// BytePipe is a sink/source rendezvous with no buffering: each write is
// released by exactly one read. It implements the state machine of spec
// section 4.4 over {init, writePending, readPending, writeClosed,
// readClosed, rwClosed}, all transitions under a single mutex; no I/O ever
// happens under that lock.
type BytePipe struct {
	mu sync.Mutex

	pendingWrite *pipeTicket
	pendingRead  *pipeTicket

	writeClosed bool
	readClosed  bool
	sinkErrored bool
	sinkErr     error
}

// pipeTicket identifies one pending write or read so a cancel racing a
// completion can be recognized as stale (the ticket that completed is no
// longer the one stored on the pipe) and ignored.
type pipeTicket struct {
	buf     *Buffer // set for a pending write
	resolve func(*Buffer, error)
}

// NewBytePipe returns a new, unbuffered pipe.
func NewBytePipe() *BytePipe {
	return &BytePipe{}
}

// Sink returns the write/error/close end of the pipe.
func (p *BytePipe) Sink() ByteSink { return pipeSink{p} }

// Source returns the read/skip/close end of the pipe.
func (p *BytePipe) Source() ByteSource { return pipeSource{p} }

type pipeSink struct{ p *BytePipe }
type pipeSource struct{ p *BytePipe }

func (s pipeSink) Write(buf *Buffer) *async.Async[struct{}] {
	p := s.p
	p.mu.Lock()
	if p.writeClosed {
		p.mu.Unlock()
		return async.Done(struct{}{}, rawerrors.NewIOError("write", "pipe sink closed", nil))
	}
	if p.readClosed {
		p.mu.Unlock()
		return async.Done(struct{}{}, rawerrors.NewIOError("write", "pipe source closed", nil))
	}
	if rt := p.pendingRead; rt != nil {
		p.pendingRead = nil
		p.mu.Unlock()
		rt.resolve(buf, nil)
		return async.Done(struct{}{}, nil)
	}

	out, complete, fail := async.New[struct{}]()
	ticket := &pipeTicket{buf: buf, resolve: func(_ *Buffer, err error) {
		if err != nil {
			fail(err)
		} else {
			complete(struct{}{})
		}
	}}
	p.pendingWrite = ticket
	p.mu.Unlock()

	out.OnCancel(func(reason error) {
		p.mu.Lock()
		if p.pendingWrite == ticket {
			p.pendingWrite = nil
		} else {
			p.mu.Unlock()
			return // stale cancel, already matched
		}
		p.mu.Unlock()
		fail(reason)
	})
	return out
}

func (s pipeSink) Error(err error) *async.Async[struct{}] {
	p := s.p
	p.mu.Lock()
	if p.sinkErrored {
		p.mu.Unlock()
		return async.Done(struct{}{}, nil)
	}
	p.sinkErrored = true
	p.sinkErr = rawerrors.NewIOError("write", "byte sequence corrupted", err)
	rt := p.pendingRead
	p.pendingRead = nil
	sinkErr := p.sinkErr
	p.mu.Unlock()
	if rt != nil {
		rt.resolve(nil, sinkErr)
	}
	return async.Done(struct{}{}, nil)
}

func (s pipeSink) Close() *async.Async[struct{}] {
	p := s.p
	p.mu.Lock()
	if p.writeClosed {
		p.mu.Unlock()
		return async.Done(struct{}{}, nil)
	}
	wt := p.pendingWrite
	rt := p.pendingRead
	p.pendingWrite = nil
	p.pendingRead = nil
	p.writeClosed = true
	p.mu.Unlock()

	if wt != nil {
		wt.resolve(nil, rawerrors.NewIOError("write", "pipe sink closed while write pending", nil))
	}
	if rt != nil {
		rt.resolve(nil, async.End)
	}
	return async.Done(struct{}{}, nil)
}

func (s pipeSource) Skip(int64) int64 { return 0 }

func (s pipeSource) Read() *async.Async[*Buffer] {
	p := s.p
	p.mu.Lock()
	if wt := p.pendingWrite; wt != nil {
		p.pendingWrite = nil
		buf := wt.buf
		p.mu.Unlock()
		wt.resolve(nil, nil)
		return ReadAsync(buf, nil)
	}
	if p.writeClosed {
		p.mu.Unlock()
		return ReadAsync(nil, async.End)
	}
	if p.sinkErrored {
		err := p.sinkErr
		p.mu.Unlock()
		return ReadAsync(nil, err)
	}

	out, complete, fail := async.New[*Buffer]()
	ticket := &pipeTicket{resolve: func(buf *Buffer, err error) {
		if err != nil {
			fail(err)
		} else {
			complete(buf)
		}
	}}
	p.pendingRead = ticket
	p.mu.Unlock()

	out.OnCancel(func(reason error) {
		p.mu.Lock()
		if p.pendingRead == ticket {
			p.pendingRead = nil
		} else {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		fail(reason)
	})
	return out
}

func (s pipeSource) Close() *async.Async[struct{}] {
	p := s.p
	p.mu.Lock()
	if p.readClosed {
		p.mu.Unlock()
		return async.Done(struct{}{}, nil)
	}
	wt := p.pendingWrite
	p.pendingWrite = nil
	p.readClosed = true
	p.mu.Unlock()

	if wt != nil {
		wt.resolve(nil, rawerrors.NewIOError("write", "pipe source closed", nil))
	}
	return async.Done(struct{}{}, nil)
}
