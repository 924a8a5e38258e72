package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/lispcore/lisp"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("heap worker stopped")

// heapRequest represents a unit of work to be executed on the heap goroutine.
type heapRequest struct {
	fn   func(*lisp.Context) (any, error)
	done chan heapResult
}

// heapResult holds the return value from a heap operation.
type heapResult struct {
	value any
	err   error
}

// HeapWorker serializes all heap access through a single goroutine.
// A lisp.Context belongs to the goroutine that created it, so the worker
// creates its context on its own goroutine and every handler goes through
// Do.
type HeapWorker struct {
	cx       *lisp.Context
	env      *lisp.Env
	requests chan heapRequest
	quit     chan struct{}
	quitOnce sync.Once
	stopped  chan struct{}
}

// NewHeapWorker starts the processing goroutine and creates its context
// there with opts.
func NewHeapWorker(opts ...lisp.Option) (*HeapWorker, error) {
	w := &HeapWorker{
		env:      lisp.NewEnv(),
		requests: make(chan heapRequest, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	ready := make(chan error, 1)
	go w.loop(opts, ready)
	if err := <-ready; err != nil {
		return nil, fmt.Errorf("starting heap worker: %w", err)
	}
	return w, nil
}

// loop processes heap requests sequentially on a dedicated goroutine.
func (w *HeapWorker) loop(opts []lisp.Option, ready chan<- error) {
	defer close(w.stopped)

	cx, err := lisp.NewContext(opts...)
	if err != nil {
		ready <- err
		return
	}
	defer cx.Close()
	cx.AttachEnv(w.env)
	w.cx = cx
	ready <- nil

	for {
		select {
		case req := <-w.requests:
			result, broken := w.execute(req.fn)
			req.done <- result
			if broken {
				log.Criticalf("heap worker stopping: %s", result.err)
				w.closeQuit()
				return
			}
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the heap, recovering from panics. Stale
// references and other fatal faults come back as errors wrapping the
// *lisp.FatalError. broken is set when the context can no longer be
// trusted: out-of-memory, protocol misuse, or a request that returned with
// roots still on the stack.
func (w *HeapWorker) execute(fn func(*lisp.Context) (any, error)) (result heapResult, broken bool) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				if fe, ok := r.(*lisp.FatalError); ok {
					result.err = fe
					log.Errorf("heap fault: %s", fe)
					return
				}
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value, result.err = fn(w.cx)
	}()
	if lisp.Unrecoverable(result.err) {
		return result, true
	}
	if depth := w.cx.RootDepth(); depth != 0 {
		result.value = nil
		result.err = &lisp.FatalError{Err: fmt.Errorf("%w: request returned with %d roots on the stack",
			lisp.ErrRootImbalance, depth)}
		return result, true
	}
	return result, false
}

func (w *HeapWorker) closeQuit() {
	w.quitOnce.Do(func() { close(w.quit) })
}

// Do submits a function for execution on the heap goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *HeapWorker) Do(fn func(*lisp.Context) (any, error)) (any, error) {
	req := heapRequest{
		fn:   fn,
		done: make(chan heapResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.stopped:
		// The request that stopped the worker still gets its own result.
		select {
		case result := <-req.done:
			return result.value, result.err
		default:
			return nil, ErrWorkerStopped
		}
	}
}

// Stop shuts down the worker goroutine and closes its context. The worker
// also stops on its own after an unrecoverable fault.
func (w *HeapWorker) Stop() {
	w.closeQuit()
	<-w.stopped
}

// Env returns the environment attached to the worker's context. It must
// only be used inside Do.
func (w *HeapWorker) Env() *lisp.Env {
	return w.env
}
