package lisp

// Type names a category of values, used in type-mismatch errors.
type Type uint8

const (
	TypeObject Type = iota
	TypeInt
	TypeFloat
	TypeNumber
	TypeSymbol
	TypeCons
	TypeList
	TypeString
	TypeVec
	TypeRecord
	TypeHashTable
	TypeFunction
	TypeByteFn
	TypeSubrFn
)

// Type names follow the predicate that tests for them.
var typeNames = [...]string{
	TypeObject:    "t",
	TypeInt:       "integerp",
	TypeFloat:     "floatp",
	TypeNumber:    "numberp",
	TypeSymbol:    "symbolp",
	TypeCons:      "consp",
	TypeList:      "listp",
	TypeString:    "stringp",
	TypeVec:       "vectorp",
	TypeRecord:    "recordp",
	TypeHashTable: "hash-table-p",
	TypeFunction:  "functionp",
	TypeByteFn:    "byte-code-function-p",
	TypeSubrFn:    "subrp",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// TypeOf returns the concrete category for a tag.
func TypeOf(t Tag) Type {
	switch t {
	case TagInt:
		return TypeInt
	case TagFloat:
		return TypeFloat
	case TagSymbol:
		return TypeSymbol
	case TagCons:
		return TypeCons
	case TagString:
		return TypeString
	case TagVec:
		return TypeVec
	case TagRecord:
		return TypeRecord
	case TagHashTable:
		return TypeHashTable
	case TagByteFn:
		return TypeByteFn
	case TagSubrFn:
		return TypeSubrFn
	}
	return TypeObject
}
