package lisp

import "fmt"

// Gc is a tagged value whose tag is known to belong to kind K.
//
// All instantiations share the Word encoding, so converting between them
// with a Go conversion is free. Use Narrow for checked conversions and
// Widen for conversions that can never fail.
type Gc[K Kind] Word

// Word returns the raw encoding.
func (g Gc[K]) Word() Word { return Word(g) }

// Tag returns the discriminant.
func (g Gc[K]) Tag() Tag { return Word(g).Tag() }

// IsNil reports whether g is the nil symbol.
func (g Gc[K]) IsNil() bool { return Word(g) == NilWord }

// Object widens g to the top of the hierarchy.
func (g Gc[K]) Object() Gc[Object] { return Gc[Object](g) }

func (g Gc[K]) String() string { return Word(g).String() }

// Int64 decodes a fixnum. It panics with a *TypeError if g is not an Int.
func (g Gc[K]) Int64() int64 {
	w := Word(g)
	if w.Tag() != TagInt {
		panic(&TypeError{Expected: TypeInt, Actual: w.Tag(), Value: w})
	}
	return w.fixnum()
}

// SymbolID decodes a symbol ID. It panics with a *TypeError if g is not a
// Symbol.
func (g Gc[K]) SymbolID() SymbolID {
	w := Word(g)
	if w.Tag() != TagSymbol {
		panic(&TypeError{Expected: TypeSymbol, Actual: w.Tag(), Value: w})
	}
	return w.symbolID()
}

// Narrow converts v to kind To, failing with a *TypeError when v's
// discriminant is outside To.
func Narrow[To, From Kind](v Gc[From]) (Gc[To], error) {
	k := kindOf[To]()
	w := Word(v)
	if !k.accepts(w) {
		return 0, &TypeError{Expected: k.typ, Actual: w.Tag(), Value: w}
	}
	return Gc[To](w), nil
}

// Is reports whether v would narrow to kind K.
func Is[K Kind, From Kind](v Gc[From]) bool {
	return kindOf[K]().accepts(Word(v))
}

// Widen converts v to a kind that admits every value of From. Calling it
// with a pair where that does not hold panics, whatever the value.
func Widen[To, From Kind](v Gc[From]) Gc[To] {
	from, to := kindOf[From](), kindOf[To]()
	if from != to && !from.tags.subsetOf(to.exact) {
		panic(fmt.Sprintf("lisp: cannot widen %s to %s", from.typ, to.typ))
	}
	return Gc[To](v)
}

// Eq is identity: two values are Eq iff their words are equal.
func Eq[A, B Kind](a Gc[A], b Gc[B]) bool {
	return Word(a) == Word(b)
}

// MakeInt encodes n as a fixnum.
func MakeInt(n int64) (Gc[Int], error) {
	if n < MinFixnum || n > MaxFixnum {
		return 0, &RangeError{Value: n}
	}
	return Gc[Int](fixnumWord(n)), nil
}

// MustInt is MakeInt for values known to be in range.
func MustInt(n int64) Gc[Int] {
	g, err := MakeInt(n)
	if err != nil {
		panic(err)
	}
	return g
}

// Bool maps a Go bool to t or nil.
func Bool(b bool) Gc[Symbol] {
	if b {
		return True
	}
	return Nil
}

// IsTruthy reports whether v is anything other than nil.
func IsTruthy[K Kind](v Gc[K]) bool {
	return Word(v) != NilWord
}
