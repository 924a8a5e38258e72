package lisp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Format renders v in Lisp read syntax for debugging.
func (cx *Context) Format(v Gc[Object]) string {
	var sb strings.Builder
	cx.format(&sb, Word(v), 0)
	return sb.String()
}

func (cx *Context) format(sb *strings.Builder, w Word, depth int) {
	if depth > maxEqualDepth {
		sb.WriteString("...")
		return
	}
	switch w.Tag() {
	case TagInt:
		sb.WriteString(strconv.FormatInt(w.fixnum(), 10))
	case TagSymbol:
		sb.WriteString(cx.symbols.Get(Gc[Symbol](w)).String())
	case TagSubrFn:
		sb.WriteString(cx.Subr(Gc[SubrFn](w)).String())
	case TagFloat:
		sb.WriteString(formatFloat(cx.Float(Gc[LispFloat](w)).Float()))
	case TagString:
		sb.WriteString(strconv.Quote(cx.LispString(Gc[LispString](w)).String()))
	case TagCons:
		sb.WriteByte('(')
		cur := w
		first := true
		for n := 0; ; n++ {
			c := cx.Cons(Gc[Cons](cur))
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			cx.format(sb, c.car, depth+1)
			cur = c.cdr
			if cur.Tag() != TagCons {
				break
			}
			if n > maxEqualDepth {
				sb.WriteString(" ...")
				cur = NilWord
				break
			}
		}
		if cur != NilWord {
			sb.WriteString(" . ")
			cx.format(sb, cur, depth+1)
		}
		sb.WriteByte(')')
	case TagVec:
		sb.WriteByte('[')
		for i, it := range cx.Vec(Gc[LispVec](w)).items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			cx.format(sb, it, depth+1)
		}
		sb.WriteByte(']')
	case TagRecord:
		sb.WriteString("#s(")
		for i, it := range cx.Record(Gc[Record](w)).slots {
			if i > 0 {
				sb.WriteByte(' ')
			}
			cx.format(sb, it, depth+1)
		}
		sb.WriteByte(')')
	case TagHashTable:
		h := cx.HashTable(Gc[HashTable](w))
		fmt.Fprintf(sb, "#<hash-table %s %d/%d>", h.test, len(h.keys), w.index())
	case TagByteFn:
		f := cx.ByteFn(Gc[ByteFn](w))
		fmt.Fprintf(sb, "#<bytecode %d/%d>", f.args.Required, f.args.Optional)
	default:
		fmt.Fprintf(sb, "#<invalid %#x>", uint64(w))
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "1.0e+INF"
	case math.IsInf(f, -1):
		return "-1.0e+INF"
	case math.IsNaN(f):
		return "0.0e+NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
