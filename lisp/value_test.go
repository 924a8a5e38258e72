package lisp

import (
	"errors"
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

func TestEqual(t *testing.T) {
	cx := newTestContext(t)

	rec := cx.NewRecord(cx.Intern("point").Object(), MustInt(1).Object()).Object()
	tests := []struct {
		name string
		a, b Gc[Object]
		want bool
	}{
		{"ints", MustInt(3).Object(), MustInt(3).Object(), true},
		{"different ints", MustInt(3).Object(), MustInt(4).Object(), false},
		{"floats", cx.NewFloat(1.5).Object(), cx.NewFloat(1.5).Object(), true},
		{"signed zeros", cx.NewFloat(0).Object(), cx.NewFloat(math.Copysign(0, -1)).Object(), false},
		{"int and float", MustInt(1).Object(), cx.NewFloat(1).Object(), false},
		{"strings", cx.NewString("abc").Object(), cx.NewString("abc").Object(), true},
		{"unibyte and multibyte", cx.NewString("abc").Object(), cx.NewUnibyteString([]byte("abc")).Object(), false},
		{"lists", cx.NewList(MustInt(1).Object(), cx.NewString("x").Object()).Object(),
			cx.NewList(MustInt(1).Object(), cx.NewString("x").Object()).Object(), true},
		{"different lists", cx.NewList(MustInt(1).Object()).Object(), cx.NewList(MustInt(2).Object()).Object(), false},
		{"vectors", cx.NewVec(MustInt(1).Object()).Object(), cx.NewVec(MustInt(1).Object()).Object(), true},
		{"same record", rec, rec, true},
		{"distinct records", cx.NewRecord(Nil.Object()).Object(), cx.NewRecord(Nil.Object()).Object(), false},
		{"symbols", True.Object(), True.Object(), true},
	}

	for _, tt := range tests {
		if got := cx.Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal %s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEql(t *testing.T) {
	cx := newTestContext(t)
	if !cx.Eql(cx.NewFloat(2).Object(), cx.NewFloat(2).Object()) {
		t.Error("equal floats should be eql")
	}
	if cx.Eql(cx.NewString("a").Object(), cx.NewString("a").Object()) {
		t.Error("distinct strings should not be eql")
	}
}

// ---------------------------------------------------------------------------
// Hash tables
// ---------------------------------------------------------------------------

func TestHashTableTests(t *testing.T) {
	cx := newTestContext(t)

	tests := []struct {
		test  HashTest
		found bool
	}{
		{HashEq, false},
		{HashEql, false},
		{HashEqual, true},
	}

	for _, tt := range tests {
		h := cx.NewHashTable(tt.test)
		cx.HashPut(h, cx.NewString("k").Object(), MustInt(1).Object())
		_, ok := cx.HashGet(h, cx.NewString("k").Object())
		if ok != tt.found {
			t.Errorf("%s table: found = %v, want %v", tt.test, ok, tt.found)
		}
	}
}

func TestHashTableRemove(t *testing.T) {
	cx := newTestContext(t)
	h := cx.NewHashTable(HashEql)

	for i := 0; i < 5; i++ {
		cx.HashPut(h, MustInt(int64(i)).Object(), MustInt(int64(i*i)).Object())
	}
	cx.HashPut(h, MustInt(2).Object(), MustInt(-1).Object())
	if n := cx.HashTable(h).Len(); n != 5 {
		t.Fatalf("Len() = %d, want 5", n)
	}
	if !cx.HashRemove(h, MustInt(0).Object()) {
		t.Error("HashRemove(0) = false, want true")
	}
	if cx.HashRemove(h, MustInt(0).Object()) {
		t.Error("second HashRemove(0) = true, want false")
	}
	for i, want := range map[int64]int64{1: 1, 2: -1, 3: 9, 4: 16} {
		v, ok := cx.HashGet(h, MustInt(i).Object())
		if !ok || v.Int64() != want {
			t.Errorf("HashGet(%d) = %v, %v; want %d", i, v, ok, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Variants
// ---------------------------------------------------------------------------

func TestUntagExhaustive(t *testing.T) {
	cx := newTestContext(t)
	subr := cx.DefSubr("f", FnArgs{}, nil)

	tests := []struct {
		v    Gc[Object]
		want Type
	}{
		{MustInt(1).Object(), TypeInt},
		{cx.Intern("s").Object(), TypeSymbol},
		{cx.NewFloat(1).Object(), TypeFloat},
		{cx.NewCons(Nil.Object(), Nil.Object()).Object(), TypeCons},
		{cx.NewString("s").Object(), TypeString},
		{cx.NewVec().Object(), TypeVec},
		{cx.NewRecord(Nil.Object()).Object(), TypeRecord},
		{cx.NewHashTable(HashEq).Object(), TypeHashTable},
		{cx.NewByteFn(FnArgs{}, nil).Object(), TypeByteFn},
		{subr.Object(), TypeSubrFn},
	}

	for _, tt := range tests {
		var got Type
		switch x := cx.Untag(tt.v).(type) {
		case Int:
			got = x.Type()
		case *Symbol:
			got = x.Type()
		case *LispFloat:
			got = x.Type()
		case *Cons:
			got = x.Type()
		case *LispString:
			got = x.Type()
		case *LispVec:
			got = x.Type()
		case *Record:
			got = x.Type()
		case *HashTable:
			got = x.Type()
		case *ByteFn:
			got = x.Type()
		case *SubrFn:
			got = x.Type()
		default:
			t.Fatalf("Untag(%v) = %T, not a variant", tt.v, x)
		}
		if got != tt.want {
			t.Errorf("Untag(%v) type = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestUntagNumberAndList(t *testing.T) {
	cx := newTestContext(t)

	n, _ := Narrow[Number](cx.NewFloat(2.5).Object())
	if f, ok := cx.UntagNumber(n).(*LispFloat); !ok || f.Float() != 2.5 {
		t.Errorf("UntagNumber(2.5) = %v", cx.UntagNumber(n))
	}
	if i, ok := cx.UntagNumber(Widen[Number](MustInt(9))).(Int); !ok || i != 9 {
		t.Errorf("UntagNumber(9) = %v", i)
	}

	if _, ok := cx.UntagList(Gc[List](NilWord)).(EmptyList); !ok {
		t.Error("UntagList(nil) should be EmptyList")
	}
	l := cx.NewList(MustInt(1).Object())
	if _, ok := cx.UntagList(l).(*Cons); !ok {
		t.Error("UntagList(cons) should be *Cons")
	}
}

// ---------------------------------------------------------------------------
// Conversion and printing
// ---------------------------------------------------------------------------

func TestAdd(t *testing.T) {
	cx := newTestContext(t)

	tests := []struct {
		in   any
		want string
	}{
		{nil, "nil"},
		{true, "t"},
		{false, "nil"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(255), "255"},
		{2.5, "2.5"},
		{"hi", `"hi"`},
		{[]byte("raw"), `"raw"`},
		{[]Gc[Object]{MustInt(1).Object(), True.Object()}, "[1 t]"},
		{MustInt(3), "3"},
		{Quote, "quote"},
	}

	for _, tt := range tests {
		v, err := cx.Add(tt.in)
		if err != nil {
			t.Errorf("Add(%v) error = %v", tt.in, err)
			continue
		}
		if got := cx.Format(v); got != tt.want {
			t.Errorf("Add(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := cx.Add(uint64(math.MaxUint64)); err == nil {
		t.Error("Add(MaxUint64) succeeded")
	}
	var re *RangeError
	if _, err := cx.Add(int64(MaxFixnum + 1)); !errors.As(err, &re) {
		t.Errorf("Add(MaxFixnum+1) error = %v, want *RangeError", err)
	}
	if _, err := cx.Add(struct{}{}); err == nil {
		t.Error("Add(struct{}) succeeded")
	}
}

func TestFormat(t *testing.T) {
	cx := newTestContext(t)

	dotted := cx.NewCons(MustInt(1).Object(), MustInt(2).Object()).Object()
	quoted := cx.NewList(Quote.Object(), cx.Intern("x").Object()).Object()
	rec := cx.NewRecord(cx.Intern("point").Object(), MustInt(1).Object(), MustInt(2).Object()).Object()
	subr := cx.DefSubr("car", FnArgs{Required: 1}, nil).Object()

	tests := []struct {
		v    Gc[Object]
		want string
	}{
		{dotted, "(1 . 2)"},
		{quoted, "(quote x)"},
		{rec, "#s(point 1 2)"},
		{subr, "#<subr car>"},
		{cx.NewFloat(math.Inf(1)).Object(), "1.0e+INF"},
		{cx.NewFloat(1e21).Object(), "1e+21"},
		{cx.Symbols().NewUninterned("g").Object(), "#:g"},
	}

	for _, tt := range tests {
		if got := cx.Format(tt.v); got != tt.want {
			t.Errorf("Format = %s, want %s", got, tt.want)
		}
	}
}

func TestHashTableBytesAccounting(t *testing.T) {
	cx := newTestContext(t)
	h := cx.NewHashTable(HashEq)
	base := cx.Bytes()

	for i := 0; i < 4; i++ {
		cx.HashPut(h, MustInt(int64(i)).Object(), True.Object())
	}
	if got, want := cx.Bytes(), base+4*3*wordBytes; got != want {
		t.Errorf("Bytes() after puts = %d, want %d", got, want)
	}
	for i := 0; i < 4; i++ {
		cx.HashRemove(h, MustInt(int64(i)).Object())
	}
	if got := cx.Bytes(); got != base {
		t.Errorf("Bytes() after removes = %d, want %d", got, base)
	}
}
