package lisp

// ---------------------------------------------------------------------------
// Variants: exhaustive matching
// ---------------------------------------------------------------------------

// Variant is the decoded form of a Gc[Object]. The concrete type is one of
// Int, *Symbol, *LispFloat, *Cons, *LispString, *LispVec, *Record,
// *HashTable, *ByteFn or *SubrFn, so a type switch over those cases is
// exhaustive.
type Variant interface {
	Type() Type
	isVariant()
}

// NumberVariant is Int or *LispFloat.
type NumberVariant interface {
	Variant
	isNumber()
}

// ListVariant is *Cons or EmptyList.
type ListVariant interface {
	Variant
	isList()
}

// FunctionVariant is *ByteFn, *SubrFn, *Cons or *Symbol.
type FunctionVariant interface {
	Variant
	isFunction()
}

// EmptyList is the ListVariant for nil.
type EmptyList struct{}

func (Int) Type() Type         { return TypeInt }
func (*Symbol) Type() Type     { return TypeSymbol }
func (*LispFloat) Type() Type  { return TypeFloat }
func (*Cons) Type() Type       { return TypeCons }
func (*LispString) Type() Type { return TypeString }
func (*LispVec) Type() Type    { return TypeVec }
func (*Record) Type() Type     { return TypeRecord }
func (*HashTable) Type() Type  { return TypeHashTable }
func (*ByteFn) Type() Type     { return TypeByteFn }
func (*SubrFn) Type() Type     { return TypeSubrFn }
func (EmptyList) Type() Type   { return TypeList }

func (Int) isVariant()         {}
func (*Symbol) isVariant()     {}
func (*LispFloat) isVariant()  {}
func (*Cons) isVariant()       {}
func (*LispString) isVariant() {}
func (*LispVec) isVariant()    {}
func (*Record) isVariant()     {}
func (*HashTable) isVariant()  {}
func (*ByteFn) isVariant()     {}
func (*SubrFn) isVariant()     {}
func (EmptyList) isVariant()   {}

func (Int) isNumber()        {}
func (*LispFloat) isNumber() {}

func (*Cons) isList()     {}
func (EmptyList) isList() {}

func (*ByteFn) isFunction() {}
func (*SubrFn) isFunction() {}
func (*Cons) isFunction()   {}
func (*Symbol) isFunction() {}

// Untag decodes v for a type switch.
func (cx *Context) Untag(v Gc[Object]) Variant {
	w := Word(v)
	switch t := w.Tag(); {
	case t == TagInt:
		return Int(w.fixnum())
	case t == TagSymbol:
		return cx.symbols.Get(Gc[Symbol](w))
	case t == TagSubrFn:
		return cx.Subr(Gc[SubrFn](w))
	case t.IsHeap():
		return cx.load(w)
	default:
		cx.fatal(&StaleReferenceError{Word: w, Epoch: cx.epoch, Reason: "invalid tag"})
		return nil
	}
}

// UntagNumber decodes a number.
func (cx *Context) UntagNumber(v Gc[Number]) NumberVariant {
	if Word(v).Tag() == TagInt {
		return Int(Word(v).fixnum())
	}
	return cx.Float(Gc[LispFloat](v))
}

// UntagList decodes a list.
func (cx *Context) UntagList(v Gc[List]) ListVariant {
	if v.IsNil() {
		return EmptyList{}
	}
	return cx.Cons(Gc[Cons](v))
}

// UntagFunction decodes a function designator.
func (cx *Context) UntagFunction(v Gc[Function]) FunctionVariant {
	w := Word(v)
	switch w.Tag() {
	case TagSymbol:
		return cx.symbols.Get(Gc[Symbol](w))
	case TagSubrFn:
		return cx.Subr(Gc[SubrFn](w))
	case TagCons:
		return cx.Cons(Gc[Cons](w))
	default:
		return cx.ByteFn(Gc[ByteFn](w))
	}
}
