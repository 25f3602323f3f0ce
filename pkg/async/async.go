// Package async provides the single-completion future primitive used
// throughout the byte-stream core. It stands in for the ambient async
// runtime's Promise/Future type (spec section "Async primitive", listed as
// an external collaborator) so this module is self-contained and testable
// without a reactor.
//
// An Async[T] completes exactly once, with either a value or an error.
// Completion invokes at most one registered callback chain; cancellation
// races completion and is resolved by identity, never by guesswork.
package async

import (
	"errors"
	"sync"
)

// End is the sentinel error reported by a ByteSource at end of stream. It is
// a control signal, never a framework-level failure; components compare
// against it with errors.Is.
var End = errors.New("async: end of stream")

// Canceled is the reason handed to a registered canceler when Cancel is
// called with a nil reason. Cancel itself does not complete the Async.
var Canceled = errors.New("async: canceled")

// Async is a single-completion handle for a future value of T.
type Async[T any] struct {
	mu       sync.Mutex
	done     bool
	val      T
	err      error
	waiters  []func(T, error)
	canceler func(error) // registered by the producer; called on Cancel
}

// New returns an unresolved Async together with the completion functions the
// producer uses to resolve it. complete and fail are safe to call from any
// goroutine; only the first call has effect.
func New[T any]() (a *Async[T], complete func(T), fail func(error)) {
	a = &Async[T]{}
	var once sync.Once
	resolve := func(v T, err error) {
		once.Do(func() {
			a.mu.Lock()
			a.done = true
			a.val = v
			a.err = err
			cbs := a.waiters
			a.waiters = nil
			a.mu.Unlock()
			for _, cb := range cbs {
				cb(v, err)
			}
		})
	}
	complete = func(v T) { resolve(v, nil) }
	fail = func(err error) { resolve(*new(T), err) }
	return a, complete, fail
}

// Done returns an already-resolved Async, for producers that know the
// result synchronously (e.g. PushbackByteSource returning a stored buffer).
func Done[T any](v T, err error) *Async[T] {
	a := &Async[T]{done: true, val: v, err: err}
	return a
}

// OnCancel registers the function the producer wants invoked if the caller
// cancels this Async before it completes. Only one canceler may be
// registered; registering after completion is a no-op.
func (a *Async[T]) OnCancel(fn func(reason error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return
	}
	a.canceler = fn
}

// Cancel requests cancellation with reason. If the Async has already
// completed (the completion raced the cancel), Cancel is a no-op: a stale
// cancel must never be applied to a value that already settled.
func (a *Async[T]) Cancel(reason error) {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	canceler := a.canceler
	a.mu.Unlock()
	if canceler != nil {
		if reason == nil {
			reason = Canceled
		}
		canceler(reason)
	}
}

// OnComplete registers fn to run when the Async resolves. If it has already
// resolved, fn runs synchronously before OnComplete returns.
func (a *Async[T]) OnComplete(fn func(T, error)) {
	a.mu.Lock()
	if a.done {
		v, err := a.val, a.err
		a.mu.Unlock()
		fn(v, err)
		return
	}
	a.waiters = append(a.waiters, fn)
	a.mu.Unlock()
}

// Poll returns the resolved value/error and true, or the zero value and
// false if the Async has not yet completed. Non-blocking.
func (a *Async[T]) Poll() (T, error, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.val, a.err, a.done
}

// Wait blocks the calling goroutine until the Async resolves and returns its
// result. It exists for synchronous call sites (tests, simple adapters); the
// core itself never blocks a reactor thread this way.
func (a *Async[T]) Wait() (T, error) {
	done := make(chan struct{})
	var v T
	var err error
	a.OnComplete(func(rv T, rerr error) {
		v, err = rv, rerr
		close(done)
	})
	<-done
	return v, err
}

// Map transforms a completed value, leaving errors untouched.
func Map[T, U any](a *Async[T], fn func(T) U) *Async[U] {
	out, complete, fail := New[U]()
	a.OnComplete(func(v T, err error) {
		if err != nil {
			fail(err)
			return
		}
		complete(fn(v))
	})
	out.OnCancel(func(reason error) { a.Cancel(reason) })
	return out
}

// Then chains a into a producer of a second Async, flattening the result.
func Then[T, U any](a *Async[T], fn func(T) *Async[U]) *Async[U] {
	out, complete, fail := New[U]()
	a.OnComplete(func(v T, err error) {
		if err != nil {
			fail(err)
			return
		}
		next := fn(v)
		next.OnComplete(func(v2 U, err2 error) {
			if err2 != nil {
				fail(err2)
				return
			}
			complete(v2)
		})
	})
	out.OnCancel(func(reason error) { a.Cancel(reason) })
	return out
}
