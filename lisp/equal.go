package lisp

import (
	"bytes"
	"hash/fnv"
)

// maxEqualDepth bounds recursion through conses and vectors. Structures
// nested deeper than this compare unequal.
const maxEqualDepth = 1600

// Equal is the structural equality used by equal hash tables and by
// callers comparing values across discriminants: word equality for ints,
// symbols and primitives, value equality for floats, element-wise equality
// for conses, strings and vectors, identity for everything else.
func (cx *Context) Equal(a, b Gc[Object]) bool {
	return cx.equal(Word(a), Word(b), 0)
}

func (cx *Context) equal(a, b Word, depth int) bool {
	if a == b {
		return true
	}
	if a.Tag() != b.Tag() || depth > maxEqualDepth {
		return false
	}
	switch a.Tag() {
	case TagFloat:
		return floatBits(cx.Float(Gc[LispFloat](a)).Float()) == floatBits(cx.Float(Gc[LispFloat](b)).Float())
	case TagString:
		sa, sb := cx.LispString(Gc[LispString](a)), cx.LispString(Gc[LispString](b))
		return sa.Multibyte() == sb.Multibyte() && bytes.Equal(sa.data, sb.data)
	case TagCons:
		ca, cb := cx.Cons(Gc[Cons](a)), cx.Cons(Gc[Cons](b))
		return cx.equal(ca.car, cb.car, depth+1) && cx.equal(ca.cdr, cb.cdr, depth+1)
	case TagVec:
		va, vb := cx.Vec(Gc[LispVec](a)), cx.Vec(Gc[LispVec](b))
		if len(va.items) != len(vb.items) {
			return false
		}
		for i := range va.items {
			if !cx.equal(va.items[i], vb.items[i], depth+1) {
				return false
			}
		}
		return true
	}
	return false
}

// Eql is Eq except that floats compare by value.
func (cx *Context) Eql(a, b Gc[Object]) bool {
	if Word(a) == Word(b) {
		return true
	}
	if a.Tag() != TagFloat || b.Tag() != TagFloat {
		return false
	}
	return floatBits(cx.Float(Gc[LispFloat](a)).Float()) == floatBits(cx.Float(Gc[LispFloat](b)).Float())
}

// hash returns a hash of w consistent with the given test.
func (cx *Context) hash(w Word, test HashTest) uint64 {
	h := fnv.New64a()
	cx.hashInto(h, w, test, 0)
	return h.Sum64()
}

type hashWriter interface {
	Write([]byte) (int, error)
}

func writeUint64(h hashWriter, n uint64) {
	var b [8]byte
	for i := range b {
		b[i] = byte(n >> (8 * i))
	}
	h.Write(b[:])
}

func (cx *Context) hashInto(h hashWriter, w Word, test HashTest, depth int) {
	t := w.Tag()
	h.Write([]byte{byte(t)})
	if test == HashEq || depth > maxEqualDepth {
		writeUint64(h, uint64(w))
		return
	}
	switch t {
	case TagFloat:
		writeUint64(h, floatBits(cx.Float(Gc[LispFloat](w)).Float()))
		return
	}
	if test == HashEql {
		writeUint64(h, uint64(w))
		return
	}
	switch t {
	case TagString:
		h.Write(cx.LispString(Gc[LispString](w)).data)
	case TagCons:
		c := cx.Cons(Gc[Cons](w))
		cx.hashInto(h, c.car, test, depth+1)
		cx.hashInto(h, c.cdr, test, depth+1)
	case TagVec:
		v := cx.Vec(Gc[LispVec](w))
		writeUint64(h, uint64(len(v.items)))
		for _, it := range v.items {
			cx.hashInto(h, it, test, depth+1)
		}
	default:
		writeUint64(h, uint64(w))
	}
}
