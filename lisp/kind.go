package lisp

// Kind is the payload-kind parameter of Gc. Every kind describes the set
// of tags a Gc of that kind may carry.
type Kind interface {
	kindInfo() *kindInfo
}

type tagSet uint16

func tagsOf(ts ...Tag) tagSet {
	var s tagSet
	for _, t := range ts {
		s |= 1 << t
	}
	return s
}

func (s tagSet) has(t Tag) bool {
	return t < numTags && s&(1<<t) != 0
}

func (s tagSet) subsetOf(o tagSet) bool {
	return s&^o == 0
}

// kindInfo describes a kind. tags is every tag a value of the kind may
// carry; exact is the subset for which any word with that tag belongs to
// the kind. Tags in tags but not exact are decided by accept.
type kindInfo struct {
	typ    Type
	tags   tagSet
	exact  tagSet
	accept func(Word) bool
}

func (k *kindInfo) accepts(w Word) bool {
	t := w.Tag()
	if k.exact.has(t) {
		return true
	}
	if k.tags.has(t) && k.accept != nil {
		return k.accept(w)
	}
	return false
}

func kindOf[K Kind]() *kindInfo {
	var k K
	return k.kindInfo()
}

func exactKind(typ Type, ts ...Tag) *kindInfo {
	s := tagsOf(ts...)
	return &kindInfo{typ: typ, tags: s, exact: s}
}

var (
	objectKind = exactKind(TypeObject,
		TagSymbol, TagInt, TagFloat, TagCons, TagString, TagVec,
		TagRecord, TagHashTable, TagSubrFn, TagByteFn)
	numberKind   = exactKind(TypeNumber, TagInt, TagFloat)
	functionKind = exactKind(TypeFunction, TagByteFn, TagSubrFn, TagCons, TagSymbol)
	listKind     = &kindInfo{
		typ:    TypeList,
		tags:   tagsOf(TagSymbol, TagCons),
		exact:  tagsOf(TagCons),
		accept: func(w Word) bool { return w == NilWord },
	}

	intKind       = exactKind(TypeInt, TagInt)
	symbolKind    = exactKind(TypeSymbol, TagSymbol)
	floatKind     = exactKind(TypeFloat, TagFloat)
	consKind      = exactKind(TypeCons, TagCons)
	stringKind    = exactKind(TypeString, TagString)
	vecKind       = exactKind(TypeVec, TagVec)
	recordKind    = exactKind(TypeRecord, TagRecord)
	hashTableKind = exactKind(TypeHashTable, TagHashTable)
	byteFnKind    = exactKind(TypeByteFn, TagByteFn)
	subrFnKind    = exactKind(TypeSubrFn, TagSubrFn)
)

// Sum kinds. They carry no payload; they exist only as Gc parameters.
type (
	// Object admits every tag.
	Object struct{}
	// Number admits Int and Float.
	Number struct{}
	// List admits Cons and the nil symbol.
	List struct{}
	// Function admits ByteFn, SubrFn, Cons (lambda forms) and Symbol.
	Function struct{}
)

func (Object) kindInfo() *kindInfo   { return objectKind }
func (Number) kindInfo() *kindInfo   { return numberKind }
func (List) kindInfo() *kindInfo     { return listKind }
func (Function) kindInfo() *kindInfo { return functionKind }

// Int is the fixnum kind. As a Variant it carries the decoded value.
type Int int64

func (Int) kindInfo() *kindInfo       { return intKind }
func (Symbol) kindInfo() *kindInfo    { return symbolKind }
func (LispFloat) kindInfo() *kindInfo { return floatKind }
func (Cons) kindInfo() *kindInfo      { return consKind }
func (LispString) kindInfo() *kindInfo {
	return stringKind
}
func (LispVec) kindInfo() *kindInfo   { return vecKind }
func (Record) kindInfo() *kindInfo    { return recordKind }
func (HashTable) kindInfo() *kindInfo { return hashTableKind }
func (ByteFn) kindInfo() *kindInfo    { return byteFnKind }
func (SubrFn) kindInfo() *kindInfo    { return subrFnKind }
