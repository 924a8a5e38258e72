package lisp

import (
	"math"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// heapObject is implemented by every struct the collector manages.
type heapObject interface {
	Variant
	header() *gcHeader
	tag() Tag
	trace(v *Visitor)
	size() int
	clone() heapObject
}

// gcHeader is embedded in every heap struct. The collector sets dead on
// the from-space copy so reads through a pointer obtained before the
// collection fault instead of seeing stale data.
type gcHeader struct {
	dead bool
}

func (h *gcHeader) header() *gcHeader { return h }

func (h *gcHeader) check(t Tag) {
	if h.dead {
		fatal(&StaleReferenceError{Reason: t.String() + " accessed after it was relocated"})
	}
}

const (
	headerBytes = int(unsafe.Sizeof(gcHeader{})) + 16
	wordBytes   = 8
)

// ---------------------------------------------------------------------------
// LispFloat
// ---------------------------------------------------------------------------

// LispFloat is a boxed float64.
type LispFloat struct {
	gcHeader
	f float64
}

func (f *LispFloat) Float() float64 {
	f.check(TagFloat)
	return f.f
}

func (f *LispFloat) tag() Tag          { return TagFloat }
func (f *LispFloat) trace(*Visitor)    {}
func (f *LispFloat) size() int         { return headerBytes + wordBytes }
func (f *LispFloat) clone() heapObject { n := *f; return &n }

// ---------------------------------------------------------------------------
// Cons
// ---------------------------------------------------------------------------

// Cons is a pair.
type Cons struct {
	gcHeader
	car Word
	cdr Word
}

func (c *Cons) Car() Gc[Object] {
	c.check(TagCons)
	return Gc[Object](c.car)
}

func (c *Cons) Cdr() Gc[Object] {
	c.check(TagCons)
	return Gc[Object](c.cdr)
}

func (c *Cons) tag() Tag { return TagCons }
func (c *Cons) trace(v *Visitor) {
	v.Visit(&c.car)
	v.Visit(&c.cdr)
}
func (c *Cons) size() int         { return headerBytes + 2*wordBytes }
func (c *Cons) clone() heapObject { n := *c; return &n }

// ---------------------------------------------------------------------------
// LispString
// ---------------------------------------------------------------------------

// LispString holds either UTF-8 text or raw unibyte data.
type LispString struct {
	gcHeader
	data      []byte
	multibyte bool
}

func (s *LispString) String() string {
	s.check(TagString)
	return string(s.data)
}

// Bytes returns a copy of the contents.
func (s *LispString) Bytes() []byte {
	s.check(TagString)
	return append([]byte(nil), s.data...)
}

func (s *LispString) Multibyte() bool {
	s.check(TagString)
	return s.multibyte
}

func (s *LispString) Len() int {
	s.check(TagString)
	return len(s.data)
}

func (s *LispString) tag() Tag          { return TagString }
func (s *LispString) trace(*Visitor)    {}
func (s *LispString) size() int         { return headerBytes + len(s.data) }
func (s *LispString) clone() heapObject { n := *s; return &n }

// ---------------------------------------------------------------------------
// LispVec
// ---------------------------------------------------------------------------

// LispVec is a fixed-length vector.
type LispVec struct {
	gcHeader
	items []Word
}

func (v *LispVec) Len() int {
	v.check(TagVec)
	return len(v.items)
}

func (v *LispVec) Get(i int) Gc[Object] {
	v.check(TagVec)
	return Gc[Object](v.items[i])
}

// Items returns a copy of the elements.
func (v *LispVec) Items() []Gc[Object] {
	v.check(TagVec)
	out := make([]Gc[Object], len(v.items))
	for i, w := range v.items {
		out[i] = Gc[Object](w)
	}
	return out
}

func (v *LispVec) tag() Tag { return TagVec }
func (v *LispVec) trace(vis *Visitor) {
	vis.VisitSlice(v.items)
}
func (v *LispVec) size() int { return headerBytes + len(v.items)*wordBytes }
func (v *LispVec) clone() heapObject {
	return &LispVec{items: append([]Word(nil), v.items...)}
}

// ---------------------------------------------------------------------------
// Record
// ---------------------------------------------------------------------------

// Record is a vector-like object whose first slot names its type.
type Record struct {
	gcHeader
	slots []Word
}

// RecordType returns slot 0.
func (r *Record) RecordType() Gc[Object] {
	r.check(TagRecord)
	return Gc[Object](r.slots[0])
}

func (r *Record) Len() int {
	r.check(TagRecord)
	return len(r.slots)
}

func (r *Record) Get(i int) Gc[Object] {
	r.check(TagRecord)
	return Gc[Object](r.slots[i])
}

func (r *Record) tag() Tag { return TagRecord }
func (r *Record) trace(v *Visitor) {
	v.VisitSlice(r.slots)
}
func (r *Record) size() int { return headerBytes + len(r.slots)*wordBytes }
func (r *Record) clone() heapObject {
	return &Record{slots: append([]Word(nil), r.slots...)}
}

// ---------------------------------------------------------------------------
// ByteFn
// ---------------------------------------------------------------------------

// ByteFn is a compiled function object: opcodes, a constant vector and an
// argument signature. Nothing in this package executes it.
type ByteFn struct {
	gcHeader
	args      FnArgs
	ops       []byte
	constants []Word
}

func (f *ByteFn) Args() FnArgs {
	f.check(TagByteFn)
	return f.args
}

// Ops returns a copy of the opcodes.
func (f *ByteFn) Ops() []byte {
	f.check(TagByteFn)
	return append([]byte(nil), f.ops...)
}

func (f *ByteFn) Constant(i int) Gc[Object] {
	f.check(TagByteFn)
	return Gc[Object](f.constants[i])
}

func (f *ByteFn) NumConstants() int {
	f.check(TagByteFn)
	return len(f.constants)
}

func (f *ByteFn) tag() Tag { return TagByteFn }
func (f *ByteFn) trace(v *Visitor) {
	v.VisitSlice(f.constants)
}
func (f *ByteFn) size() int {
	return headerBytes + len(f.ops) + len(f.constants)*wordBytes + 8
}
func (f *ByteFn) clone() heapObject {
	return &ByteFn{args: f.args, ops: f.ops, constants: append([]Word(nil), f.constants...)}
}

// floatBits is the eql key of a float: NaNs with equal payloads are eql
// and 0.0 is distinct from -0.0.
func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}
