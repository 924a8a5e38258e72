package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/lispcore/lisp"
)

// handle is a server-side reference to a heap value.
type handle struct {
	id       string
	value    lisp.Word
	kind     string
	display  string
	created  time.Time
	lastUsed time.Time
}

// HandleStore maps opaque string IDs to heap values. The store is a
// global root of the worker's context, so every value it holds survives
// collection and is rewritten in place when relocated.
//
// Values must only be stored and read inside HeapWorker.Do; a word read
// elsewhere may be stale by the time it is used.
type HandleStore struct {
	mu      sync.Mutex
	handles map[string]*handle
	nextID  atomic.Uint64
}

// NewHandleStore creates a handle store and registers it as a root of the
// worker's context.
func NewHandleStore(worker *HeapWorker) (*HandleStore, error) {
	s := &HandleStore{handles: make(map[string]*handle)}
	_, err := worker.Do(func(cx *lisp.Context) (any, error) {
		cx.AddGlobalRoot(s)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create registers a value and returns an opaque handle ID.
func (s *HandleStore) Create(cx *lisp.Context, value lisp.Gc[lisp.Object]) string {
	id := fmt.Sprintf("h-%d", s.nextID.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.handles[id] = &handle{
		id:       id,
		value:    value.Word(),
		kind:     value.Tag().String(),
		display:  cx.Format(value),
		created:  now,
		lastUsed: now,
	}
	return id
}

// Lookup retrieves the value for a handle.
func (s *HandleStore) Lookup(id string) (lisp.Gc[lisp.Object], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return lisp.Nil.Object(), false
	}
	h.lastUsed = time.Now()
	return lisp.Gc[lisp.Object](h.value), true
}

// Describe returns the kind and the display string captured at creation.
func (s *HandleStore) Describe(id string) (kind, display string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return "", "", false
	}
	return h.kind, h.display, true
}

// Release removes a handle, letting its value be collected.
func (s *HandleStore) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[id]; !ok {
		return false
	}
	delete(s.handles, id)
	return true
}

// Len returns the number of live handles.
func (s *HandleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Trace implements lisp.Tracer.
func (s *HandleStore) Trace(v *lisp.Visitor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.handles {
		v.Visit(&h.value)
	}
}

// Sweep removes handles that haven't been accessed within the TTL.
func (s *HandleStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, h := range s.handles {
		if h.lastUsed.Before(cutoff) {
			delete(s.handles, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *HandleStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(ttl); n > 0 {
					log.Debugf("swept %d expired handles", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
