package lisp

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Env: global, dynamic and function bindings
// ---------------------------------------------------------------------------

// Env holds variable values, function cells, property lists and the
// special-binding stack. An Env is attached to at most one Context, which
// traces it as a global root.
type Env struct {
	cx        *Context
	vars      map[SymbolID]Word
	funcs     map[SymbolID]Word
	props     map[SymbolID][]Word // alternating property, value
	specials  map[SymbolID]struct{}
	constants map[SymbolID]struct{}
	specbinds []specBinding
}

type specBinding struct {
	sym   SymbolID
	value Word
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{
		vars:      make(map[SymbolID]Word),
		funcs:     make(map[SymbolID]Word),
		props:     make(map[SymbolID][]Word),
		specials:  make(map[SymbolID]struct{}),
		constants: make(map[SymbolID]struct{}),
	}
}

// AttachEnv registers env as a global root of cx. Every word the
// environment already holds must be valid in cx; a binding that went stale
// while env was detached faults here, before any collection traces it.
func (cx *Context) AttachEnv(env *Env) {
	if env.cx != nil && env.cx != cx {
		cx.fatal(fmt.Errorf("environment already attached to context %s", env.cx.id))
	}
	if env.cx == cx {
		return
	}
	env.validate(cx)
	env.cx = cx
	cx.AddGlobalRoot(env)
}

// DetachEnv unregisters env. Its heap words become invalid at the next
// collection.
func (cx *Context) DetachEnv(env *Env) {
	if cx.RemoveGlobalRoot(env) {
		env.cx = nil
	}
}

func (e *Env) validate(cx *Context) {
	for id, w := range e.vars {
		cx.validate(symbolWord(id))
		cx.validate(w)
	}
	for id, w := range e.funcs {
		cx.validate(symbolWord(id))
		cx.validate(w)
	}
	for id, plist := range e.props {
		cx.validate(symbolWord(id))
		for _, w := range plist {
			cx.validate(w)
		}
	}
	for _, b := range e.specbinds {
		cx.validate(symbolWord(b.sym))
		cx.validate(b.value)
	}
}

func (e *Env) name(sym Gc[Symbol]) string {
	if e.cx != nil && e.cx.symbols.Contains(sym) {
		return e.cx.symbols.Name(sym)
	}
	if id := Word(sym).symbolID(); id < numBuiltins {
		return builtinNames[id]
	}
	return Word(sym).String()
}

func (e *Env) isConstant(sym Gc[Symbol]) bool {
	id := sym.SymbolID()
	if id == NilID || id == TrueID {
		return true
	}
	if _, ok := e.constants[id]; ok {
		return true
	}
	return e.cx != nil && e.cx.symbols.Contains(sym) && e.cx.symbols.Get(sym).Constant
}

func (e *Env) store(v Gc[Object]) Word {
	if e.cx != nil {
		e.cx.validate(Word(v))
	}
	return Word(v)
}

// Define creates or overwrites the global binding of sym.
func (e *Env) Define(sym Gc[Symbol], v Gc[Object]) error {
	if e.isConstant(sym) {
		return &SettingConstantError{Symbol: e.name(sym)}
	}
	e.vars[sym.SymbolID()] = e.store(v)
	return nil
}

// Set assigns to the innermost dynamic binding of sym, or to its global
// binding if it has none.
func (e *Env) Set(sym Gc[Symbol], v Gc[Object]) error {
	if e.isConstant(sym) {
		return &SettingConstantError{Symbol: e.name(sym)}
	}
	id := sym.SymbolID()
	w := e.store(v)
	for i := len(e.specbinds) - 1; i >= 0; i-- {
		if e.specbinds[i].sym == id {
			e.specbinds[i].value = w
			return nil
		}
	}
	e.vars[id] = w
	return nil
}

// Lookup returns the value of sym. nil, t and keywords evaluate to
// themselves. Keywords are recognized by name, which needs the symbol
// table of an attached context; on a detached env an unbound keyword is
// an *UnboundError like any other symbol.
func (e *Env) Lookup(sym Gc[Symbol]) (Gc[Object], error) {
	id := sym.SymbolID()
	for i := len(e.specbinds) - 1; i >= 0; i-- {
		if e.specbinds[i].sym == id {
			return Gc[Object](e.specbinds[i].value), nil
		}
	}
	if w, ok := e.vars[id]; ok {
		return Gc[Object](w), nil
	}
	if id == NilID || id == TrueID || strings.HasPrefix(e.name(sym), ":") {
		return sym.Object(), nil
	}
	return Nil.Object(), &UnboundError{Symbol: e.name(sym)}
}

// Boundp reports whether sym has a value.
func (e *Env) Boundp(sym Gc[Symbol]) bool {
	_, err := e.Lookup(sym)
	return err == nil
}

// Makunbound removes the global binding of sym.
func (e *Env) Makunbound(sym Gc[Symbol]) error {
	if e.isConstant(sym) {
		return &SettingConstantError{Symbol: e.name(sym)}
	}
	delete(e.vars, sym.SymbolID())
	return nil
}

// ---------------------------------------------------------------------------
// Dynamic binding
// ---------------------------------------------------------------------------

// BindDynamic pushes a dynamic binding and returns the stack depth before
// the push, to be passed to UnbindDynamic.
func (e *Env) BindDynamic(sym Gc[Symbol], v Gc[Object]) (int, error) {
	if e.isConstant(sym) {
		return len(e.specbinds), &SettingConstantError{Symbol: e.name(sym)}
	}
	depth := len(e.specbinds)
	e.specbinds = append(e.specbinds, specBinding{sym: sym.SymbolID(), value: e.store(v)})
	return depth, nil
}

// UnbindDynamic pops bindings down to depth.
func (e *Env) UnbindDynamic(depth int) {
	if depth < 0 || depth > len(e.specbinds) {
		fatal(fmt.Errorf("%w: unbind to depth %d with %d special bindings",
			ErrRootImbalance, depth, len(e.specbinds)))
	}
	for i := depth; i < len(e.specbinds); i++ {
		e.specbinds[i] = specBinding{}
	}
	e.specbinds = e.specbinds[:depth]
}

// WithBinding runs fn with sym dynamically bound to v.
func (e *Env) WithBinding(sym Gc[Symbol], v Gc[Object], fn func() error) error {
	depth, err := e.BindDynamic(sym, v)
	if err != nil {
		return err
	}
	defer e.UnbindDynamic(depth)
	return fn()
}

// SpecDepth returns the number of active dynamic bindings.
func (e *Env) SpecDepth() int {
	return len(e.specbinds)
}

// Defvar declares sym special and gives it v if it has no global value.
func (e *Env) Defvar(sym Gc[Symbol], v Gc[Object]) error {
	if e.isConstant(sym) {
		return &SettingConstantError{Symbol: e.name(sym)}
	}
	id := sym.SymbolID()
	e.specials[id] = struct{}{}
	if _, ok := e.vars[id]; !ok {
		e.vars[id] = e.store(v)
	}
	return nil
}

// Defconst binds sym to v globally and makes it constant.
func (e *Env) Defconst(sym Gc[Symbol], v Gc[Object]) error {
	id := sym.SymbolID()
	if id == NilID || id == TrueID {
		return &SettingConstantError{Symbol: e.name(sym)}
	}
	e.vars[id] = e.store(v)
	e.specials[id] = struct{}{}
	e.constants[id] = struct{}{}
	return nil
}

// IsSpecial reports whether sym was declared with Defvar or Defconst.
func (e *Env) IsSpecial(sym Gc[Symbol]) bool {
	_, ok := e.specials[sym.SymbolID()]
	return ok
}

// ---------------------------------------------------------------------------
// Function cells
// ---------------------------------------------------------------------------

// SetFunction stores fn in sym's function cell.
func (e *Env) SetFunction(sym Gc[Symbol], fn Gc[Function]) error {
	if sym.IsNil() {
		return &SettingConstantError{Symbol: "nil"}
	}
	e.funcs[sym.SymbolID()] = e.store(fn.Object())
	return nil
}

// LookupFunction returns sym's function cell.
func (e *Env) LookupFunction(sym Gc[Symbol]) (Gc[Function], error) {
	w, ok := e.funcs[sym.SymbolID()]
	if !ok {
		return Gc[Function](NilWord), &UnboundError{Symbol: e.name(sym), Function: true}
	}
	return Gc[Function](w), nil
}

// Fboundp reports whether sym's function cell is set.
func (e *Env) Fboundp(sym Gc[Symbol]) bool {
	_, ok := e.funcs[sym.SymbolID()]
	return ok
}

// Fmakunbound clears sym's function cell.
func (e *Env) Fmakunbound(sym Gc[Symbol]) {
	delete(e.funcs, sym.SymbolID())
}

// ---------------------------------------------------------------------------
// Property lists
// ---------------------------------------------------------------------------

// Put sets property prop of sym to v.
func (e *Env) Put(sym, prop Gc[Symbol], v Gc[Object]) {
	id := sym.SymbolID()
	w := e.store(v)
	plist := e.props[id]
	for i := 0; i+1 < len(plist); i += 2 {
		if plist[i] == Word(prop) {
			plist[i+1] = w
			return
		}
	}
	e.props[id] = append(plist, Word(prop), w)
}

// Get returns property prop of sym, or nil.
func (e *Env) Get(sym, prop Gc[Symbol]) Gc[Object] {
	plist := e.props[sym.SymbolID()]
	for i := 0; i+1 < len(plist); i += 2 {
		if plist[i] == Word(prop) {
			return Gc[Object](plist[i+1])
		}
	}
	return Nil.Object()
}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

// Trace forwards every word held by the environment.
func (e *Env) Trace(v *Visitor) {
	traceMap(v, e.vars)
	traceMap(v, e.funcs)
	for id, plist := range e.props {
		v.VisitSymbol(id)
		v.VisitSlice(plist)
	}
	for id := range e.specials {
		v.VisitSymbol(id)
	}
	for i := range e.specbinds {
		v.VisitSymbol(e.specbinds[i].sym)
		v.Visit(&e.specbinds[i].value)
	}
}

func traceMap(v *Visitor, m map[SymbolID]Word) {
	for id, w := range m {
		v.VisitSymbol(id)
		v.Visit(&w)
		m[id] = w
	}
}
