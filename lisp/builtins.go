package lisp

// SymbolID identifies a symbol within one symbol table.
type SymbolID uint32

// IDs of the built-in symbols. Every table interns them first, in this
// order, so the IDs are the same in every context.
const (
	NilID SymbolID = iota
	TrueID
	QuoteID
	FunctionID
	LambdaID
	ClosureID
	AndOptionalID
	AndRestID
	IfID
	LetID
	LetStarID
	PrognID
	SetqID
	CondID
	AndID
	OrID
	WhileID
	DefvarID
	DefconstID
	CatchID
	ThrowID
	UnwindProtectID
	ConditionCaseID
	ErrorID
	InteractiveID
	MacroID

	numBuiltins
)

var builtinNames = [numBuiltins]string{
	NilID:           "nil",
	TrueID:          "t",
	QuoteID:         "quote",
	FunctionID:      "function",
	LambdaID:        "lambda",
	ClosureID:       "closure",
	AndOptionalID:   "&optional",
	AndRestID:       "&rest",
	IfID:            "if",
	LetID:           "let",
	LetStarID:       "let*",
	PrognID:         "progn",
	SetqID:          "setq",
	CondID:          "cond",
	AndID:           "and",
	OrID:            "or",
	WhileID:         "while",
	DefvarID:        "defvar",
	DefconstID:      "defconst",
	CatchID:         "catch",
	ThrowID:         "throw",
	UnwindProtectID: "unwind-protect",
	ConditionCaseID: "condition-case",
	ErrorID:         "error",
	InteractiveID:   "interactive",
	MacroID:         "macro",
}

// Stable words for nil and t.
const (
	NilWord  Word = Word(NilID)<<indexShift | Word(TagSymbol)
	TrueWord Word = Word(TrueID)<<indexShift | Word(TagSymbol)
)

// Built-in symbol values.
var (
	Nil            = Gc[Symbol](NilWord)
	True           = Gc[Symbol](TrueWord)
	Quote          = builtin(QuoteID)
	FunctionSym    = builtin(FunctionID)
	Lambda         = builtin(LambdaID)
	Closure        = builtin(ClosureID)
	AndOptional    = builtin(AndOptionalID)
	AndRest        = builtin(AndRestID)
	If             = builtin(IfID)
	Let            = builtin(LetID)
	LetStar        = builtin(LetStarID)
	Progn          = builtin(PrognID)
	Setq           = builtin(SetqID)
	Cond           = builtin(CondID)
	And            = builtin(AndID)
	Or             = builtin(OrID)
	While          = builtin(WhileID)
	Defvar         = builtin(DefvarID)
	Defconst       = builtin(DefconstID)
	Catch          = builtin(CatchID)
	Throw          = builtin(ThrowID)
	UnwindProtect  = builtin(UnwindProtectID)
	ConditionCase  = builtin(ConditionCaseID)
	ErrorSym       = builtin(ErrorID)
	InteractiveSym = builtin(InteractiveID)
	Macro          = builtin(MacroID)
)

func builtin(id SymbolID) Gc[Symbol] {
	return Gc[Symbol](symbolWord(id))
}
