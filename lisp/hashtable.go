package lisp

import "fmt"

// HashTest selects how a hash table compares keys.
type HashTest uint8

const (
	HashEq HashTest = iota
	HashEql
	HashEqual
)

func (t HashTest) String() string {
	switch t {
	case HashEq:
		return "eq"
	case HashEql:
		return "eql"
	case HashEqual:
		return "equal"
	}
	return fmt.Sprintf("test(%d)", uint8(t))
}

// HashTable maps keys to values. Entries are kept in insertion order;
// removal swaps the last entry into the hole.
//
// The index hashes words, which change when the collector relocates
// objects, so the collector rebuilds it after every cycle.
type HashTable struct {
	gcHeader
	test  HashTest
	keys  []Word
	vals  []Word
	index map[uint64][]int
}

func (h *HashTable) Test() HashTest {
	h.check(TagHashTable)
	return h.test
}

func (h *HashTable) Len() int {
	h.check(TagHashTable)
	return len(h.keys)
}

// Entry returns the i'th key and value in table order.
func (h *HashTable) Entry(i int) (Gc[Object], Gc[Object]) {
	h.check(TagHashTable)
	return Gc[Object](h.keys[i]), Gc[Object](h.vals[i])
}

func (h *HashTable) tag() Tag { return TagHashTable }
func (h *HashTable) trace(v *Visitor) {
	v.VisitSlice(h.keys)
	v.VisitSlice(h.vals)
}
func (h *HashTable) size() int {
	return headerBytes + 8 + len(h.keys)*3*wordBytes
}
func (h *HashTable) clone() heapObject {
	return &HashTable{
		test: h.test,
		keys: append([]Word(nil), h.keys...),
		vals: append([]Word(nil), h.vals...),
	}
}

func (cx *Context) keysEqual(a, b Word, test HashTest) bool {
	switch test {
	case HashEq:
		return a == b
	case HashEql:
		return cx.Eql(Gc[Object](a), Gc[Object](b))
	default:
		return cx.Equal(Gc[Object](a), Gc[Object](b))
	}
}

// find returns the entry index of key and its hash.
func (cx *Context) find(h *HashTable, key Word) (int, uint64) {
	sum := cx.hash(key, h.test)
	for _, i := range h.index[sum] {
		if cx.keysEqual(h.keys[i], key, h.test) {
			return i, sum
		}
	}
	return -1, sum
}

// rehash rebuilds the index from the current key words.
func (cx *Context) rehash(h *HashTable) {
	h.index = make(map[uint64][]int, len(h.keys))
	for i, k := range h.keys {
		sum := cx.hash(k, h.test)
		h.index[sum] = append(h.index[sum], i)
	}
}

// HashPut associates key with val.
func (cx *Context) HashPut(t Gc[HashTable], key, val Gc[Object]) {
	h := cx.HashTable(t)
	cx.validate(Word(key))
	cx.validate(Word(val))
	i, sum := cx.find(h, Word(key))
	if i >= 0 {
		h.vals[i] = Word(val)
		return
	}
	h.keys = append(h.keys, Word(key))
	h.vals = append(h.vals, Word(val))
	h.index[sum] = append(h.index[sum], len(h.keys)-1)
	cx.bytes += 3 * wordBytes
}

// HashGet returns the value for key.
func (cx *Context) HashGet(t Gc[HashTable], key Gc[Object]) (Gc[Object], bool) {
	h := cx.HashTable(t)
	i, _ := cx.find(h, Word(key))
	if i < 0 {
		return Nil.Object(), false
	}
	return Gc[Object](h.vals[i]), true
}

// HashRemove deletes key and reports whether it was present.
func (cx *Context) HashRemove(t Gc[HashTable], key Gc[Object]) bool {
	h := cx.HashTable(t)
	i, _ := cx.find(h, Word(key))
	if i < 0 {
		return false
	}
	last := len(h.keys) - 1
	h.keys[i], h.vals[i] = h.keys[last], h.vals[last]
	h.keys, h.vals = h.keys[:last], h.vals[:last]
	cx.bytes -= 3 * wordBytes
	cx.rehash(h)
	return true
}
