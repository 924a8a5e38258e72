package lisp

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds heap tuning parameters.
type Config struct {
	// GCThreshold is the allocated byte count at which a collection
	// becomes pending.
	GCThreshold int
	// MaxHeapBytes is the hard limit. Going over it is fatal.
	MaxHeapBytes int
	// GrowthFactor scales live bytes after a collection to get the next
	// threshold.
	GrowthFactor float64
	// CheckOwner enables the goroutine check on collection. Allocation,
	// dereference and rooting are not checked: reading the goroutine ID
	// costs a stack walk, too much for every allocation.
	CheckOwner bool
}

// DefaultConfig returns the default heap configuration.
func DefaultConfig() Config {
	return Config{
		GCThreshold:  4 << 20,
		MaxHeapBytes: 1 << 30,
		GrowthFactor: 2.0,
		CheckOwner:   true,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.GCThreshold <= 0 {
		c.GCThreshold = d.GCThreshold
	}
	if c.MaxHeapBytes <= 0 {
		c.MaxHeapBytes = d.MaxHeapBytes
	}
	if c.GrowthFactor < 1 {
		c.GrowthFactor = d.GrowthFactor
	}
	return c
}

// ---------------------------------------------------------------------------
// Context
// ---------------------------------------------------------------------------

// Context owns a heap: every object, the symbol table, the primitive table
// and the root stack. It is used from a single goroutine.
//
// Only GarbageCollect verifies the calling goroutine (see
// Config.CheckOwner). Allocating or dereferencing from another goroutine is
// an unchecked data race; hand work to the owner instead, as
// server.HeapWorker does.
type Context struct {
	id  string
	cfg Config
	log commonlog.Logger

	heap      []heapObject
	epoch     uint32
	bytes     int
	threshold int
	pending   bool

	symbols *SymbolTable
	subrs   []*SubrFn

	roots   []rootEntry
	globals []Tracer
	borrows int

	gid      int64
	detached bool
	closed   bool

	sink        StatsSink
	collections int
	lastStats   *Stats
}

// Option configures a Context.
type Option func(*Context)

// WithConfig sets the heap configuration.
func WithConfig(cfg Config) Option {
	return func(cx *Context) { cx.cfg = cfg.normalize() }
}

// WithStatsSink delivers collection statistics to sink.
func WithStatsSink(sink StatsSink) Option {
	return func(cx *Context) { cx.sink = sink }
}

// WithLogger replaces the collector logger.
func WithLogger(log commonlog.Logger) Option {
	return func(cx *Context) { cx.log = log }
}

// Detached opts out of the one-context-per-goroutine guard.
func Detached() Option {
	return func(cx *Context) { cx.detached = true }
}

// NewContext creates a heap owned by the calling goroutine. It fails with
// ErrOwnerExists if the goroutine already owns one, unless Detached is
// given.
func NewContext(opts ...Option) (*Context, error) {
	cx := &Context{
		id:      uuid.New().String(),
		cfg:     DefaultConfig(),
		symbols: NewSymbolTable(),
	}
	for _, opt := range opts {
		opt(cx)
	}
	if cx.log == nil {
		cx.log = commonlog.NewKeyValueLogger(gcLog, "context", cx.id)
	}
	cx.threshold = cx.cfg.GCThreshold
	if err := cx.claimOwner(); err != nil {
		return nil, err
	}
	cx.log.Debug("context created", "threshold", cx.threshold, "detached", cx.detached)
	return cx, nil
}

// Close releases the owner guard and drops the heap.
func (cx *Context) Close() {
	if cx.closed {
		return
	}
	cx.releaseOwner()
	cx.closed = true
	cx.heap = nil
	cx.roots = nil
	cx.globals = nil
}

func (cx *Context) ID() string            { return cx.id }
func (cx *Context) Config() Config        { return cx.cfg }
func (cx *Context) Symbols() *SymbolTable { return cx.symbols }
func (cx *Context) Epoch() uint32         { return cx.epoch }
func (cx *Context) Objects() int          { return len(cx.heap) }
func (cx *Context) Bytes() int            { return cx.bytes }
func (cx *Context) Threshold() int        { return cx.threshold }
func (cx *Context) Pending() bool         { return cx.pending }
func (cx *Context) Collections() int      { return cx.collections }
func (cx *Context) LastStats() *Stats     { return cx.lastStats }
func (cx *Context) Closed() bool          { return cx.closed }

// Intern is shorthand for cx.Symbols().Intern.
func (cx *Context) Intern(name string) Gc[Symbol] {
	return cx.symbols.Intern(name)
}

// SymbolName returns the name of sym.
func (cx *Context) SymbolName(sym Gc[Symbol]) string {
	return cx.symbols.Name(sym)
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

func (cx *Context) alloc(obj heapObject) Word {
	if cx.closed {
		cx.fatal(ErrClosed)
	}
	n := obj.size()
	if cx.bytes+n > cx.cfg.MaxHeapBytes {
		cx.fatal(fmt.Errorf("%w: %d bytes live, %d requested, limit %d",
			ErrOutOfMemory, cx.bytes, n, cx.cfg.MaxHeapBytes))
	}
	if len(cx.heap) >= maxHeapSlots {
		cx.fatal(fmt.Errorf("%w: heap slots exhausted", ErrOutOfMemory))
	}
	idx := uint32(len(cx.heap))
	cx.heap = append(cx.heap, obj)
	cx.bytes += n
	if !cx.pending && cx.bytes >= cx.threshold {
		cx.pending = true
		cx.log.Debug("collection pending", "bytes", cx.bytes, "threshold", cx.threshold)
	}
	return heapWord(obj.tag(), idx, cx.epoch)
}

// NewCons allocates a pair.
func (cx *Context) NewCons(car, cdr Gc[Object]) Gc[Cons] {
	cx.validate(Word(car))
	cx.validate(Word(cdr))
	return Gc[Cons](cx.alloc(&Cons{car: Word(car), cdr: Word(cdr)}))
}

// NewList allocates a proper list of items.
func (cx *Context) NewList(items ...Gc[Object]) Gc[List] {
	tail := Nil.Object()
	for i := len(items) - 1; i >= 0; i-- {
		tail = cx.NewCons(items[i], tail).Object()
	}
	return Gc[List](tail)
}

// NewString allocates a string. Text that is valid UTF-8 is multibyte.
func (cx *Context) NewString(s string) Gc[LispString] {
	return Gc[LispString](cx.alloc(&LispString{data: []byte(s), multibyte: utf8.ValidString(s)}))
}

// NewUnibyteString allocates a string of raw bytes.
func (cx *Context) NewUnibyteString(b []byte) Gc[LispString] {
	return Gc[LispString](cx.alloc(&LispString{data: append([]byte(nil), b...)}))
}

// NewFloat allocates a boxed float.
func (cx *Context) NewFloat(f float64) Gc[LispFloat] {
	return Gc[LispFloat](cx.alloc(&LispFloat{f: f}))
}

// NewVec allocates a vector holding items.
func (cx *Context) NewVec(items ...Gc[Object]) Gc[LispVec] {
	ws := make([]Word, len(items))
	for i, it := range items {
		cx.validate(Word(it))
		ws[i] = Word(it)
	}
	return Gc[LispVec](cx.alloc(&LispVec{items: ws}))
}

// NewRecord allocates a record of type typ with the given slots.
func (cx *Context) NewRecord(typ Gc[Object], slots ...Gc[Object]) Gc[Record] {
	ws := make([]Word, 0, len(slots)+1)
	cx.validate(Word(typ))
	ws = append(ws, Word(typ))
	for _, s := range slots {
		cx.validate(Word(s))
		ws = append(ws, Word(s))
	}
	return Gc[Record](cx.alloc(&Record{slots: ws}))
}

// NewHashTable allocates an empty table using test for key comparison.
func (cx *Context) NewHashTable(test HashTest) Gc[HashTable] {
	return Gc[HashTable](cx.alloc(&HashTable{test: test, index: make(map[uint64][]int)}))
}

// NewByteFn allocates a compiled function object.
func (cx *Context) NewByteFn(args FnArgs, ops []byte, constants ...Gc[Object]) Gc[ByteFn] {
	ws := make([]Word, len(constants))
	for i, c := range constants {
		cx.validate(Word(c))
		ws[i] = Word(c)
	}
	return Gc[ByteFn](cx.alloc(&ByteFn{args: args, ops: append([]byte(nil), ops...), constants: ws}))
}

// ---------------------------------------------------------------------------
// Access
// ---------------------------------------------------------------------------

// HeapKind is the set of kinds whose values live on the heap.
type HeapKind interface {
	LispFloat | Cons | LispString | LispVec | Record | HashTable | ByteFn
	Kind
}

// load resolves a heap word, faulting if it is not valid in the current
// epoch.
func (cx *Context) load(w Word) heapObject {
	if cx.closed {
		cx.fatal(ErrClosed)
	}
	t := w.Tag()
	if !t.IsHeap() {
		panic(&TypeError{Expected: TypeObject, Actual: t, Value: w})
	}
	if e := w.epoch(); e != cx.epoch {
		cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "word was issued before the last collection"})
	}
	idx := w.index()
	if int(idx) >= len(cx.heap) {
		cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "slot out of range"})
	}
	obj := cx.heap[idx]
	if obj.tag() != t {
		cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "slot holds a " + obj.tag().String()})
	}
	return obj
}

// validate faults if w could not be dereferenced in this context.
func (cx *Context) validate(w Word) {
	t := w.Tag()
	switch {
	case t == TagInt:
	case t == TagSymbol:
		if !cx.symbols.Contains(Gc[Symbol](w)) {
			cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "symbol not in table"})
		}
	case t == TagSubrFn:
		if int(w.index()) >= len(cx.subrs) {
			cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "unknown primitive"})
		}
	case t.IsHeap():
		cx.load(w)
	default:
		cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "invalid tag"})
	}
}

// Deref returns the heap struct behind v. The pointer is only good until
// the next collection.
func Deref[T HeapKind](cx *Context, v Gc[T]) *T {
	p, ok := any(cx.load(Word(v))).(*T)
	if !ok {
		cx.fatal(&StaleReferenceError{Word: Word(v), Epoch: cx.epoch, Reason: "kind mismatch"})
	}
	return p
}

func (cx *Context) Cons(v Gc[Cons]) *Cons                   { return Deref(cx, v) }
func (cx *Context) Float(v Gc[LispFloat]) *LispFloat        { return Deref(cx, v) }
func (cx *Context) LispString(v Gc[LispString]) *LispString { return Deref(cx, v) }
func (cx *Context) Vec(v Gc[LispVec]) *LispVec              { return Deref(cx, v) }
func (cx *Context) Record(v Gc[Record]) *Record             { return Deref(cx, v) }
func (cx *Context) HashTable(v Gc[HashTable]) *HashTable    { return Deref(cx, v) }
func (cx *Context) ByteFn(v Gc[ByteFn]) *ByteFn             { return Deref(cx, v) }

// Subr returns the primitive behind v.
func (cx *Context) Subr(v Gc[SubrFn]) *SubrFn {
	idx := Word(v).index()
	if int(idx) >= len(cx.subrs) {
		cx.fatal(&StaleReferenceError{Word: Word(v), Epoch: cx.epoch, Reason: "unknown primitive"})
	}
	return cx.subrs[idx]
}

// Car returns the car of a list; the car of nil is nil.
func (cx *Context) Car(l Gc[List]) Gc[Object] {
	if l.IsNil() {
		return Nil.Object()
	}
	return cx.Cons(Gc[Cons](l)).Car()
}

// Cdr returns the cdr of a list; the cdr of nil is nil.
func (cx *Context) Cdr(l Gc[List]) Gc[Object] {
	if l.IsNil() {
		return Nil.Object()
	}
	return cx.Cons(Gc[Cons](l)).Cdr()
}

// ListItems collects the elements of a proper list. An improper tail is a
// type error.
func (cx *Context) ListItems(l Gc[List]) ([]Gc[Object], error) {
	var out []Gc[Object]
	cur := l.Object()
	for !cur.IsNil() {
		c, err := Narrow[Cons](cur)
		if err != nil {
			return nil, &TypeError{Expected: TypeList, Actual: cur.Tag(), Value: Word(cur)}
		}
		cell := cx.Cons(c)
		out = append(out, cell.Car())
		cur = cell.Cdr()
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

func (cx *Context) SetCar(c Gc[Cons], v Gc[Object]) {
	cell := cx.Cons(c)
	cx.validate(Word(v))
	cell.car = Word(v)
}

func (cx *Context) SetCdr(c Gc[Cons], v Gc[Object]) {
	cell := cx.Cons(c)
	cx.validate(Word(v))
	cell.cdr = Word(v)
}

func (cx *Context) VecSet(v Gc[LispVec], i int, x Gc[Object]) {
	vec := cx.Vec(v)
	cx.validate(Word(x))
	vec.items[i] = Word(x)
}

func (cx *Context) RecordSet(r Gc[Record], i int, x Gc[Object]) {
	rec := cx.Record(r)
	cx.validate(Word(x))
	rec.slots[i] = Word(x)
}

// ---------------------------------------------------------------------------
// Borrows
// ---------------------------------------------------------------------------

// Borrow is a shared-access token. While any are outstanding the heap
// cannot be collected.
type Borrow struct {
	cx       *Context
	released bool
}

// Borrow takes a shared-access token.
func (cx *Context) Borrow() *Borrow {
	cx.borrows++
	return &Borrow{cx: cx}
}

// Release returns the token. Releasing twice is a fault.
func (b *Borrow) Release() {
	if b.released {
		b.cx.fatal(fmt.Errorf("%w: borrow released twice", ErrRootImbalance))
	}
	b.released = true
	b.cx.borrows--
}

// Borrows returns the number of outstanding shared-access tokens.
func (cx *Context) Borrows() int { return cx.borrows }

// Walk calls fn with a word for every object currently on the heap, in
// slot order, until fn returns false. Collection must not happen during
// the walk.
func (cx *Context) Walk(fn func(Gc[Object]) bool) {
	b := cx.Borrow()
	defer b.Release()
	for i, obj := range cx.heap {
		if !fn(Gc[Object](heapWord(obj.tag(), uint32(i), cx.epoch))) {
			return
		}
	}
}
