package lisp

import (
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

// Tracer is implemented by anything holding words the collector must
// update: root handles, environments, server handle tables.
type Tracer interface {
	Trace(v *Visitor)
}

// Visitor forwards words during a collection.
type Visitor struct {
	cx       *Context
	newEpoch uint32
	forward  []uint32 // old slot -> new slot + 1
	to       []heapObject
	symbols  map[SymbolID]struct{}
	// checking is set during the pre-pass that validates every root word
	// without forwarding anything.
	checking bool
}

// Visit forwards the word at w, copying its object to to-space on first
// visit, and rewrites w to the new location.
func (v *Visitor) Visit(w *Word) {
	word := *w
	t := word.Tag()
	switch {
	case t == TagSymbol:
		if id := word.symbolID(); id >= uninternedBase {
			v.symbols[id] = struct{}{}
		}
		return
	case !t.IsHeap():
		return
	}
	if v.checking {
		v.cx.load(word)
		return
	}
	if word.epoch() == v.newEpoch {
		// Already forwarded; the same slot was traced twice.
		return
	}
	obj := v.cx.load(word)
	idx := word.index()
	if v.forward[idx] == 0 {
		v.to = append(v.to, obj.clone())
		v.forward[idx] = uint32(len(v.to))
	}
	*w = heapWord(t, v.forward[idx]-1, v.newEpoch)
}

// VisitSlice forwards every word in ws.
func (v *Visitor) VisitSlice(ws []Word) {
	for i := range ws {
		v.Visit(&ws[i])
	}
}

// VisitSymbol keeps an uninterned symbol referenced only by ID alive.
func (v *Visitor) VisitSymbol(id SymbolID) {
	if id >= uninternedBase {
		v.symbols[id] = struct{}{}
	}
}

// AddGlobalRoot registers t to be traced by every collection until it is
// removed. Environments are registered through AttachEnv.
func (cx *Context) AddGlobalRoot(t Tracer) {
	cx.globals = append(cx.globals, t)
}

// RemoveGlobalRoot unregisters t. It reports whether t was registered.
func (cx *Context) RemoveGlobalRoot(t Tracer) bool {
	for i, g := range cx.globals {
		if g == t {
			cx.globals = append(cx.globals[:i], cx.globals[i+1:]...)
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Statistics
// ---------------------------------------------------------------------------

// Stats describes one collection.
type Stats struct {
	ContextID     string
	Epoch         uint32
	ObjectsBefore int
	ObjectsAfter  int
	BytesBefore   int
	BytesAfter    int
	Roots         int
	SymbolsSwept  int
	Duration      time.Duration
	Timestamp     time.Time
}

// StatsSink receives statistics after every collection.
type StatsSink interface {
	RecordCollection(s *Stats)
}

// StatsFunc adapts a function to StatsSink.
type StatsFunc func(s *Stats)

func (f StatsFunc) RecordCollection(s *Stats) { f(s) }

// ---------------------------------------------------------------------------
// Collection
// ---------------------------------------------------------------------------

// GarbageCollect runs a collection if force is set or one is pending, and
// returns its statistics, or nil if nothing ran.
//
// Every heap word not reachable from the root stack or a global root is
// invalid afterward, as is every heap struct pointer obtained before the
// call. Collection needs exclusive access: it faults if any Borrow is
// outstanding or if called off the owner goroutine.
func (cx *Context) GarbageCollect(force bool) *Stats {
	if cx.closed {
		cx.fatal(ErrClosed)
	}
	if !force && !cx.pending {
		return nil
	}
	cx.checkOwner()
	if cx.borrows > 0 {
		cx.fatal(fmt.Errorf("%w: %d outstanding", ErrSharedAccess, cx.borrows))
	}

	start := time.Now()
	stats := &Stats{
		ContextID:     cx.id,
		ObjectsBefore: len(cx.heap),
		BytesBefore:   cx.bytes,
		Roots:         len(cx.roots) + len(cx.globals),
		Timestamp:     start,
	}

	v := &Visitor{
		cx:       cx,
		newEpoch: (cx.epoch + 1) & epochMask,
		forward:  make([]uint32, len(cx.heap)),
		to:       make([]heapObject, 0, len(cx.heap)/2),
		symbols:  make(map[SymbolID]struct{}),
	}
	// Check every root before rewriting any, so a stale root word aborts
	// the collection with the heap and all root slots untouched.
	v.checking = true
	cx.traceRoots(v)
	v.checking = false
	clear(v.symbols)

	cx.traceRoots(v)
	// Cheney scan: the to-space slice grows as objects are copied.
	for scan := 0; scan < len(v.to); scan++ {
		v.to[scan].trace(v)
	}

	for _, obj := range cx.heap {
		obj.header().dead = true
	}
	cx.heap = v.to
	cx.epoch = v.newEpoch
	cx.bytes = 0
	for _, obj := range cx.heap {
		cx.bytes += obj.size()
		if h, ok := obj.(*HashTable); ok {
			cx.rehash(h)
		}
	}
	stats.SymbolsSwept = cx.symbols.sweep(v.symbols)

	cx.threshold = cx.cfg.GCThreshold
	if next := int(float64(cx.bytes) * cx.cfg.GrowthFactor); next > cx.threshold {
		cx.threshold = next
	}
	cx.pending = false
	cx.collections++

	stats.Epoch = cx.epoch
	stats.ObjectsAfter = len(cx.heap)
	stats.BytesAfter = cx.bytes
	stats.Duration = time.Since(start)
	cx.lastStats = stats

	cx.log.Debug("collection",
		"epoch", stats.Epoch,
		"objects", fmt.Sprintf("%d->%d", stats.ObjectsBefore, stats.ObjectsAfter),
		"bytes", fmt.Sprintf("%d->%d", stats.BytesBefore, stats.BytesAfter),
		"roots", stats.Roots,
		"symbols-swept", stats.SymbolsSwept,
		"duration", stats.Duration)

	if cx.bytes > cx.cfg.MaxHeapBytes {
		cx.fatal(fmt.Errorf("%w: %d bytes live after collection, limit %d",
			ErrOutOfMemory, cx.bytes, cx.cfg.MaxHeapBytes))
	}
	if cx.sink != nil {
		cx.sink.RecordCollection(stats)
	}
	return stats
}

func (cx *Context) traceRoots(v *Visitor) {
	for _, r := range cx.roots {
		r.Trace(v)
	}
	for _, g := range cx.globals {
		g.Trace(v)
	}
}
