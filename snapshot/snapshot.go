// Package snapshot captures the live heap of a lisp.Context as a CBOR
// document for offline inspection.
package snapshot

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/lispcore/lisp"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is a point-in-time copy of every object on a heap.
type Snapshot struct {
	ID        string   `cbor:"1,keyasint"`
	ContextID string   `cbor:"2,keyasint"`
	Epoch     uint32   `cbor:"3,keyasint"`
	TakenAt   int64    `cbor:"4,keyasint"` // unix nanoseconds
	Objects   []Object `cbor:"5,keyasint"`
	Symbols   []Symbol `cbor:"6,keyasint"`
	Bytes     int      `cbor:"7,keyasint"`
}

// Object is one heap slot.
type Object struct {
	Slot      uint32  `cbor:"1,keyasint"`
	Kind      string  `cbor:"2,keyasint"`
	Float     float64 `cbor:"3,keyasint,omitempty"`
	Data      []byte  `cbor:"4,keyasint,omitempty"`
	Multibyte bool    `cbor:"5,keyasint,omitempty"`
	Refs      []Ref   `cbor:"6,keyasint,omitempty"`
	Test      string  `cbor:"7,keyasint,omitempty"`
	Args      []int   `cbor:"8,keyasint,omitempty"` // required, optional, rest
}

// Ref is a word held by an object. Value is the fixnum for ints, the ID
// for symbols and the slot or table index otherwise.
type Ref struct {
	Kind  string `cbor:"1,keyasint"`
	Value int64  `cbor:"2,keyasint"`
}

// Symbol is an interned symbol table entry.
type Symbol struct {
	ID       uint32 `cbor:"1,keyasint"`
	Name     string `cbor:"2,keyasint"`
	Constant bool   `cbor:"3,keyasint,omitempty"`
}

// Capture walks the heap of cx. It must run on cx's owner goroutine and
// holds a borrow for its duration, so it cannot overlap a collection.
func Capture(cx *lisp.Context) *Snapshot {
	s := &Snapshot{
		ID:        uuid.New().String(),
		ContextID: cx.ID(),
		Epoch:     cx.Epoch(),
		TakenAt:   time.Now().UnixNano(),
		Bytes:     cx.Bytes(),
	}
	cx.Walk(func(v lisp.Gc[lisp.Object]) bool {
		s.Objects = append(s.Objects, capture(cx, v))
		return true
	})
	for _, sym := range cx.Symbols().All() {
		s.Symbols = append(s.Symbols, Symbol{ID: uint32(sym.ID), Name: sym.Name, Constant: sym.Constant})
	}
	return s
}

func capture(cx *lisp.Context, v lisp.Gc[lisp.Object]) Object {
	o := Object{Slot: v.Word().Index(), Kind: v.Tag().String()}
	switch x := cx.Untag(v).(type) {
	case *lisp.LispFloat:
		o.Float = x.Float()
	case *lisp.LispString:
		o.Data = x.Bytes()
		o.Multibyte = x.Multibyte()
	case *lisp.Cons:
		o.Refs = refs(x.Car(), x.Cdr())
	case *lisp.LispVec:
		o.Refs = refs(x.Items()...)
	case *lisp.Record:
		for i := 0; i < x.Len(); i++ {
			o.Refs = append(o.Refs, ref(x.Get(i)))
		}
	case *lisp.HashTable:
		o.Test = x.Test().String()
		for i := 0; i < x.Len(); i++ {
			k, val := x.Entry(i)
			o.Refs = append(o.Refs, ref(k), ref(val))
		}
	case *lisp.ByteFn:
		a := x.Args()
		rest := 0
		if a.Rest {
			rest = 1
		}
		o.Args = []int{int(a.Required), int(a.Optional), rest}
		o.Data = x.Ops()
		for i := 0; i < x.NumConstants(); i++ {
			o.Refs = append(o.Refs, ref(x.Constant(i)))
		}
	}
	return o
}

func refs(vs ...lisp.Gc[lisp.Object]) []Ref {
	out := make([]Ref, len(vs))
	for i, v := range vs {
		out[i] = ref(v)
	}
	return out
}

func ref(v lisp.Gc[lisp.Object]) Ref {
	w := v.Word()
	if w.Tag() == lisp.TagInt {
		return Ref{Kind: w.Tag().String(), Value: w.Fixnum()}
	}
	return Ref{Kind: w.Tag().String(), Value: int64(w.Index())}
}

// Marshal serializes s to canonical CBOR.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}

// WriteFile writes s to path.
func WriteFile(path string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a snapshot written by WriteFile.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Taken returns the capture time.
func (s *Snapshot) Taken() time.Time {
	return time.Unix(0, s.TakenAt)
}

// Find returns the object in slot.
func (s *Snapshot) Find(slot uint32) (*Object, bool) {
	i := sort.Search(len(s.Objects), func(i int) bool { return s.Objects[i].Slot >= slot })
	if i < len(s.Objects) && s.Objects[i].Slot == slot {
		return &s.Objects[i], true
	}
	return nil, false
}

// CountByKind tallies objects per kind.
func (s *Snapshot) CountByKind() map[string]int {
	counts := make(map[string]int)
	for _, o := range s.Objects {
		counts[o.Kind]++
	}
	return counts
}

// SymbolName returns the name recorded for a symbol ID.
func (s *Snapshot) SymbolName(id uint32) (string, bool) {
	for _, sym := range s.Symbols {
		if sym.ID == id {
			return sym.Name, true
		}
	}
	return "", false
}
