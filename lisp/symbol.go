package lisp

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Symbol
// ---------------------------------------------------------------------------

// Symbol is a symbol table entry.
type Symbol struct {
	Name     string
	ID       SymbolID
	Interned bool
	// Constant symbols (nil, t, keywords and defconst'd names) cannot be
	// rebound.
	Constant bool
}

func (s *Symbol) Word() Word { return symbolWord(s.ID) }

func (s *Symbol) String() string {
	if s.Interned {
		return s.Name
	}
	return "#:" + s.Name
}

// uninternedBase is the first ID handed to uninterned symbols.
const uninternedBase SymbolID = 1 << 31

// ---------------------------------------------------------------------------
// SymbolTable
// ---------------------------------------------------------------------------

// SymbolTable interns names to symbols. It belongs to one Context and is
// only touched from that context's owner goroutine, so it carries no lock.
//
// IDs are never reused: Reset leaves tombstones for the dropped interned
// IDs and uninterned symbols get IDs from a separate counter.
type SymbolTable struct {
	byName     map[string]SymbolID
	byID       []*Symbol
	uninterned map[SymbolID]*Symbol
	nextUnint  SymbolID
}

// NewSymbolTable creates a table holding the built-in symbols.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{
		byName:     make(map[string]SymbolID, 256),
		byID:       make([]*Symbol, 0, 256),
		uninterned: make(map[SymbolID]*Symbol),
		nextUnint:  uninternedBase,
	}
	for _, name := range builtinNames {
		st.Intern(name)
	}
	return st
}

// Intern returns the canonical symbol for name, creating it if needed.
func (st *SymbolTable) Intern(name string) Gc[Symbol] {
	if id, ok := st.byName[name]; ok {
		return Gc[Symbol](symbolWord(id))
	}
	id := SymbolID(len(st.byID))
	if id >= uninternedBase {
		fatal(fmt.Errorf("%w: symbol table full", ErrOutOfMemory))
	}
	sym := &Symbol{
		Name:     name,
		ID:       id,
		Interned: true,
		Constant: id == NilID || id == TrueID || strings.HasPrefix(name, ":"),
	}
	st.byName[name] = id
	st.byID = append(st.byID, sym)
	return Gc[Symbol](symbolWord(id))
}

// NewUninterned creates a fresh symbol that is never returned by Intern
// or Lookup. It lives until a collection finds it unreachable.
func (st *SymbolTable) NewUninterned(name string) Gc[Symbol] {
	id := st.nextUnint
	if id == 0 {
		fatal(fmt.Errorf("%w: uninterned symbol IDs exhausted", ErrOutOfMemory))
	}
	st.nextUnint++
	st.uninterned[id] = &Symbol{Name: name, ID: id}
	return Gc[Symbol](symbolWord(id))
}

// Lookup returns the interned symbol for name without creating it.
func (st *SymbolTable) Lookup(name string) (Gc[Symbol], bool) {
	id, ok := st.byName[name]
	if !ok {
		return Nil, false
	}
	return Gc[Symbol](symbolWord(id)), true
}

func (st *SymbolTable) entry(id SymbolID) *Symbol {
	if id >= uninternedBase {
		return st.uninterned[id]
	}
	if int(id) < len(st.byID) {
		return st.byID[id]
	}
	return nil
}

// Get returns the entry for sym. A symbol that was swept or dropped by
// Reset is a stale reference.
func (st *SymbolTable) Get(sym Gc[Symbol]) *Symbol {
	s := st.entry(sym.SymbolID())
	if s == nil {
		fatal(&StaleReferenceError{Word: Word(sym), Reason: "symbol not in table"})
	}
	return s
}

// Name returns the name of sym.
func (st *SymbolTable) Name(sym Gc[Symbol]) string {
	return st.Get(sym).Name
}

// Contains reports whether sym is live in this table.
func (st *SymbolTable) Contains(sym Gc[Symbol]) bool {
	return st.entry(Word(sym).symbolID()) != nil
}

// Len returns the number of live symbols, interned and uninterned.
func (st *SymbolTable) Len() int {
	return len(st.byName) + len(st.uninterned)
}

// All returns the live interned symbols in ID order.
func (st *SymbolTable) All() []*Symbol {
	result := make([]*Symbol, 0, len(st.byName))
	for _, s := range st.byID {
		if s != nil {
			result = append(result, s)
		}
	}
	return result
}

// Reset drops every interned symbol except the built-ins. Words for the
// dropped symbols become stale.
func (st *SymbolTable) Reset() {
	for i := int(numBuiltins); i < len(st.byID); i++ {
		if s := st.byID[i]; s != nil {
			delete(st.byName, s.Name)
			st.byID[i] = nil
		}
	}
}

func (st *SymbolTable) setConstant(id SymbolID) {
	if s := st.entry(id); s != nil {
		s.Constant = true
	}
}

// sweep removes uninterned symbols not present in marked and returns how
// many were removed.
func (st *SymbolTable) sweep(marked map[SymbolID]struct{}) int {
	n := 0
	for id := range st.uninterned {
		if _, ok := marked[id]; !ok {
			delete(st.uninterned, id)
			n++
		}
	}
	return n
}
