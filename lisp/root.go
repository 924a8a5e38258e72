package lisp

import "fmt"

// ---------------------------------------------------------------------------
// Root stack
// ---------------------------------------------------------------------------

// rootEntry is one slot on a Context's root stack.
type rootEntry interface {
	Tracer
	kill()
	alive() bool
}

func (cx *Context) push(e rootEntry) int {
	if cx.closed {
		cx.fatal(ErrClosed)
	}
	cx.roots = append(cx.roots, e)
	return len(cx.roots) - 1
}

// pop removes e, which must be the top of the stack.
func (cx *Context) pop(e rootEntry, depth int) {
	top := len(cx.roots) - 1
	if depth != top || cx.roots[top] != e {
		cx.fatal(fmt.Errorf("%w: unrooting depth %d with %d entries on the stack",
			ErrRootImbalance, depth, len(cx.roots)))
	}
	cx.roots[top] = nil
	cx.roots = cx.roots[:top]
	e.kill()
}

// RootDepth returns the number of entries on the root stack.
func (cx *Context) RootDepth() int {
	return len(cx.roots)
}

// ---------------------------------------------------------------------------
// Rooted
// ---------------------------------------------------------------------------

// Rooted holds a single value on the root stack. The value lives in its
// own cell so the collector can rewrite it in place; Get always returns
// the current location.
type Rooted[K Kind] struct {
	cx    *Context
	slot  *Word
	depth int
	live  bool
}

// Root registers v on cx's root stack. The handle must be released with
// Unroot in LIFO order, or created through a Scope.
func Root[K Kind](cx *Context, v Gc[K]) *Rooted[K] {
	cx.validate(Word(v))
	r := &Rooted[K]{cx: cx, slot: new(Word), live: true}
	*r.slot = Word(v)
	r.depth = cx.push(r)
	return r
}

func (r *Rooted[K]) check() {
	if !r.live {
		r.cx.fatal(ErrUnrooted)
	}
}

// Get returns the rooted value.
func (r *Rooted[K]) Get() Gc[K] {
	r.check()
	return Gc[K](*r.slot)
}

// Set replaces the rooted value.
func (r *Rooted[K]) Set(v Gc[K]) {
	r.check()
	r.cx.validate(Word(v))
	*r.slot = Word(v)
}

// Unroot pops the handle. It must be the most recent live root.
func (r *Rooted[K]) Unroot() {
	r.check()
	r.cx.pop(r, r.depth)
}

func (r *Rooted[K]) Trace(v *Visitor) { v.Visit(r.slot) }
func (r *Rooted[K]) kill()            { r.live = false }
func (r *Rooted[K]) alive() bool      { return r.live }

// ---------------------------------------------------------------------------
// RootedVec
// ---------------------------------------------------------------------------

// RootedVec is a growable sequence of values kept on the root stack.
type RootedVec struct {
	cx    *Context
	items []Word
	depth int
	live  bool
}

// RootVec registers a new vector holding init.
func (cx *Context) RootVec(init ...Gc[Object]) *RootedVec {
	rv := &RootedVec{cx: cx, live: true}
	for _, v := range init {
		cx.validate(Word(v))
		rv.items = append(rv.items, Word(v))
	}
	rv.depth = cx.push(rv)
	return rv
}

func (rv *RootedVec) check() {
	if !rv.live {
		rv.cx.fatal(ErrUnrooted)
	}
}

func (rv *RootedVec) Push(v Gc[Object]) {
	rv.check()
	rv.cx.validate(Word(v))
	rv.items = append(rv.items, Word(v))
}

func (rv *RootedVec) Get(i int) Gc[Object] {
	rv.check()
	return Gc[Object](rv.items[i])
}

func (rv *RootedVec) Set(i int, v Gc[Object]) {
	rv.check()
	rv.cx.validate(Word(v))
	rv.items[i] = Word(v)
}

func (rv *RootedVec) Len() int {
	rv.check()
	return len(rv.items)
}

// Truncate drops every element from n on.
func (rv *RootedVec) Truncate(n int) {
	rv.check()
	rv.items = rv.items[:n]
}

// Slice returns a copy of the elements. The copy is not rooted.
func (rv *RootedVec) Slice() []Gc[Object] {
	rv.check()
	out := make([]Gc[Object], len(rv.items))
	for i, w := range rv.items {
		out[i] = Gc[Object](w)
	}
	return out
}

func (rv *RootedVec) Unroot() {
	rv.check()
	rv.cx.pop(rv, rv.depth)
}

func (rv *RootedVec) Trace(v *Visitor) { v.VisitSlice(rv.items) }
func (rv *RootedVec) kill()            { rv.live = false }
func (rv *RootedVec) alive() bool      { return rv.live }

// ---------------------------------------------------------------------------
// RootedTracer
// ---------------------------------------------------------------------------

// RootedTracer keeps an arbitrary Tracer on the root stack.
type RootedTracer struct {
	cx    *Context
	t     Tracer
	depth int
	live  bool
}

// RootTracer registers t as a root.
func (cx *Context) RootTracer(t Tracer) *RootedTracer {
	rt := &RootedTracer{cx: cx, t: t, live: true}
	rt.depth = cx.push(rt)
	return rt
}

func (rt *RootedTracer) Unroot() {
	if !rt.live {
		rt.cx.fatal(ErrUnrooted)
	}
	rt.cx.pop(rt, rt.depth)
}

func (rt *RootedTracer) Trace(v *Visitor) { rt.t.Trace(v) }
func (rt *RootedTracer) kill()            { rt.live = false }
func (rt *RootedTracer) alive() bool      { return rt.live }

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// Scope pops every root created through it when the enclosing cx.Scope
// call returns.
type Scope struct {
	cx      *Context
	base    int
	entries []rootEntry
}

// Scope runs fn with a fresh root scope. The scope's roots are popped when
// fn returns or panics. A scope exit that finds roots it did not create
// still on the stack is a root imbalance.
func (cx *Context) Scope(fn func(*Scope) error) error {
	s := &Scope{cx: cx, base: len(cx.roots)}
	defer func() {
		if r := recover(); r != nil {
			s.unwind()
			panic(r)
		}
		s.close()
	}()
	return fn(s)
}

// ScopeRoot roots v for the lifetime of s.
func ScopeRoot[K Kind](s *Scope, v Gc[K]) *Rooted[K] {
	r := Root(s.cx, v)
	s.entries = append(s.entries, r)
	return r
}

// RootVec roots a vector for the lifetime of s.
func (s *Scope) RootVec(init ...Gc[Object]) *RootedVec {
	rv := s.cx.RootVec(init...)
	s.entries = append(s.entries, rv)
	return rv
}

// RootTracer roots t for the lifetime of s.
func (s *Scope) RootTracer(t Tracer) *RootedTracer {
	rt := s.cx.RootTracer(t)
	s.entries = append(s.entries, rt)
	return rt
}

func (s *Scope) Context() *Context { return s.cx }

func (s *Scope) close() {
	cx := s.cx
	var live []rootEntry
	for _, e := range s.entries {
		if e.alive() {
			live = append(live, e)
		}
	}
	if len(cx.roots) != s.base+len(live) {
		s.unwind()
		cx.fatal(fmt.Errorf("%w: scope expected %d roots above depth %d, found %d",
			ErrRootImbalance, len(live), s.base, len(cx.roots)-s.base))
	}
	for i, e := range live {
		if cx.roots[s.base+i] != e {
			s.unwind()
			cx.fatal(fmt.Errorf("%w: scope root %d out of order", ErrRootImbalance, i))
		}
	}
	s.unwind()
}

func (s *Scope) unwind() {
	cx := s.cx
	for len(cx.roots) > s.base {
		top := len(cx.roots) - 1
		cx.roots[top].kill()
		cx.roots[top] = nil
		cx.roots = cx.roots[:top]
	}
	for _, e := range s.entries {
		e.kill()
	}
	rootLog.Debug("scope closed", "depth", s.base)
}
