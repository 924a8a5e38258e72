package lisp

import "fmt"

// Word is the raw 64-bit representation of every Lisp value.
//
// The low 8 bits hold the tag. The remaining bits depend on the tag:
//   - Int: bits 8-63 hold a signed 56-bit fixnum
//   - Symbol: bits 8-39 hold the symbol ID
//   - SubrFn: bits 8-39 hold the index into the owner's primitive table
//   - heap tags: bits 8-39 hold the heap slot, bits 40-63 the collection
//     epoch the word was issued in
//
// The zero Word is nil.
type Word uint64

// Tag is the discriminant stored in the low bits of a Word.
type Tag uint8

const (
	TagSymbol Tag = iota
	TagInt
	TagFloat
	TagCons
	TagString
	TagVec
	TagRecord
	TagHashTable
	TagSubrFn
	TagByteFn

	numTags
)

// Word layout constants
const (
	tagBits         = 8
	tagMask    Word = 0xFF
	indexShift      = 8
	indexMask  Word = 0xFFFFFFFF
	epochShift      = 40
	epochMask       = 0xFFFFFF
)

// Fixnum range (56-bit signed)
const (
	MaxFixnum int64 = 1<<55 - 1
	MinFixnum int64 = -(1 << 55)
)

// maxHeapSlots bounds the heap slot index that fits in a word.
const maxHeapSlots = 1 << 32

// Tag returns the discriminant of w.
func (w Word) Tag() Tag {
	return Tag(w & tagMask)
}

// IsNil reports whether w is the nil symbol.
func (w Word) IsNil() bool {
	return w == NilWord
}

func fixnumWord(n int64) Word {
	return Word(uint64(n)<<tagBits) | Word(TagInt)
}

func (w Word) fixnum() int64 {
	return int64(w) >> tagBits
}

func symbolWord(id SymbolID) Word {
	return Word(id)<<indexShift | Word(TagSymbol)
}

func (w Word) symbolID() SymbolID {
	return SymbolID((w >> indexShift) & indexMask)
}

func subrWord(index uint32) Word {
	return Word(index)<<indexShift | Word(TagSubrFn)
}

func heapWord(tag Tag, index uint32, epoch uint32) Word {
	return Word(epoch&epochMask)<<epochShift | Word(index)<<indexShift | Word(tag)
}

func (w Word) index() uint32 {
	return uint32((w >> indexShift) & indexMask)
}

// Index returns the heap slot of a heap word, the primitive-table index
// of a SubrFn word, or the ID of a symbol word.
func (w Word) Index() uint32 {
	return w.index()
}

// Fixnum returns the value of an Int word.
func (w Word) Fixnum() int64 {
	return w.fixnum()
}

func (w Word) epoch() uint32 {
	return uint32(w>>epochShift) & epochMask
}

// IsHeap reports whether values with this tag live on the collected heap.
func (t Tag) IsHeap() bool {
	switch t {
	case TagFloat, TagCons, TagString, TagVec, TagRecord, TagHashTable, TagByteFn:
		return true
	}
	return false
}

func (t Tag) valid() bool {
	return t < numTags
}

var tagNames = [numTags]string{
	TagSymbol:    "symbol",
	TagInt:       "int",
	TagFloat:     "float",
	TagCons:      "cons",
	TagString:    "string",
	TagVec:       "vector",
	TagRecord:    "record",
	TagHashTable: "hash-table",
	TagSubrFn:    "subr",
	TagByteFn:    "byte-fn",
}

func (t Tag) String() string {
	if !t.valid() {
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
	return tagNames[t]
}

// String describes the word without dereferencing it.
func (w Word) String() string {
	t := w.Tag()
	switch {
	case t == TagInt:
		return fmt.Sprintf("int:%d", w.fixnum())
	case t == TagSymbol:
		return fmt.Sprintf("symbol:%d", w.symbolID())
	case t == TagSubrFn:
		return fmt.Sprintf("subr:%d", w.index())
	case t.IsHeap():
		return fmt.Sprintf("%s@%d/%d", t, w.index(), w.epoch())
	default:
		return fmt.Sprintf("invalid:%#x", uint64(w))
	}
}
