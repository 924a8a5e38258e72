package lisp

import (
	"errors"
	"testing"
)

func TestRootedConsSurvivesCollection(t *testing.T) {
	cx := newTestContext(t)

	c := cx.NewCons(MustInt(42).Object(), Nil.Object())
	r := Root(cx, c)
	defer r.Unroot()

	if stats := cx.GarbageCollect(true); stats == nil {
		t.Fatal("forced collection returned nil stats")
	}

	car := cx.Cons(r.Get()).Car()
	if car.Int64() != 42 {
		t.Errorf("car after collection = %s, want 42", cx.Format(car))
	}
	if r.Get() == c {
		t.Error("rooted word should have been rewritten by the collector")
	}
}

func TestUnrootedWordFaults(t *testing.T) {
	cx := newTestContext(t)

	s := cx.NewString("hello")
	if got := cx.LispString(s).String(); got != "hello" {
		t.Fatalf("string = %q, want hello", got)
	}
	cx.GarbageCollect(true)

	expectStale(t, func() { cx.LispString(s) })
}

func TestHeapPointerFaultsAfterCollection(t *testing.T) {
	cx := newTestContext(t)

	c := cx.NewCons(MustInt(1).Object(), Nil.Object())
	r := Root(cx, c)
	defer r.Unroot()
	cell := cx.Cons(c)

	cx.GarbageCollect(true)

	expectStale(t, func() { cell.Car() })
	if got := cx.Cons(r.Get()).Car().Int64(); got != 1 {
		t.Errorf("car through root = %d, want 1", got)
	}
}

func TestRootLIFO(t *testing.T) {
	cx := newTestContext(t)

	a := Root(cx, MustInt(1))
	b := Root(cx, MustInt(2))
	if cx.RootDepth() != 2 {
		t.Fatalf("RootDepth() = %d, want 2", cx.RootDepth())
	}

	expectFatal(t, ErrRootImbalance, func() { a.Unroot() })

	b.Unroot()
	a.Unroot()
	if cx.RootDepth() != 0 {
		t.Errorf("RootDepth() = %d, want 0", cx.RootDepth())
	}
}

func TestUseAfterUnroot(t *testing.T) {
	cx := newTestContext(t)

	r := Root(cx, MustInt(1))
	r.Unroot()
	expectFatal(t, ErrUnrooted, func() { r.Get() })
}

func TestRootSet(t *testing.T) {
	cx := newTestContext(t)

	r := Root(cx, cx.NewString("a").Object())
	defer r.Unroot()
	r.Set(cx.NewString("b").Object())

	cx.GarbageCollect(true)

	s, err := Narrow[LispString](r.Get())
	if err != nil {
		t.Fatalf("Narrow: %v", err)
	}
	if got := cx.LispString(s).String(); got != "b" {
		t.Errorf("rooted string = %q, want b", got)
	}
	if cx.Objects() != 1 {
		t.Errorf("Objects() = %d, want 1", cx.Objects())
	}
}

func TestRootedVec(t *testing.T) {
	cx := newTestContext(t)

	rv := cx.RootVec()
	defer rv.Unroot()
	for i := 0; i < 10; i++ {
		rv.Push(cx.NewFloat(float64(i)).Object())
	}
	cx.NewString("garbage")

	stats := cx.GarbageCollect(true)
	if stats.ObjectsAfter != 10 {
		t.Errorf("ObjectsAfter = %d, want 10", stats.ObjectsAfter)
	}
	for i := 0; i < rv.Len(); i++ {
		f := cx.Float(Gc[LispFloat](rv.Get(i))).Float()
		if f != float64(i) {
			t.Errorf("rv[%d] = %v, want %d", i, f, i)
		}
	}

	rv.Truncate(3)
	cx.GarbageCollect(true)
	if cx.Objects() != 3 {
		t.Errorf("Objects() after truncate = %d, want 3", cx.Objects())
	}
}

func TestScopePopsRoots(t *testing.T) {
	cx := newTestContext(t)

	var escaped *Rooted[Cons]
	err := cx.Scope(func(s *Scope) error {
		escaped = ScopeRoot(s, cx.NewCons(MustInt(1).Object(), Nil.Object()))
		s.RootVec(MustInt(2).Object())
		if cx.RootDepth() != 2 {
			t.Errorf("RootDepth() in scope = %d, want 2", cx.RootDepth())
		}
		cx.GarbageCollect(true)
		if got := cx.Cons(escaped.Get()).Car().Int64(); got != 1 {
			t.Errorf("car = %d, want 1", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}
	if cx.RootDepth() != 0 {
		t.Errorf("RootDepth() after scope = %d, want 0", cx.RootDepth())
	}
	expectFatal(t, ErrUnrooted, func() { escaped.Get() })
}

func TestScopeReturnsError(t *testing.T) {
	cx := newTestContext(t)
	want := errors.New("boom")

	err := cx.Scope(func(s *Scope) error {
		ScopeRoot(s, MustInt(1))
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Scope error = %v, want %v", err, want)
	}
	if cx.RootDepth() != 0 {
		t.Errorf("RootDepth() = %d, want 0", cx.RootDepth())
	}
}

func TestScopeUnwindsOnPanic(t *testing.T) {
	cx := newTestContext(t)

	func() {
		defer func() { recover() }()
		cx.Scope(func(s *Scope) error {
			ScopeRoot(s, MustInt(1))
			panic("unwind")
		})
	}()
	if cx.RootDepth() != 0 {
		t.Errorf("RootDepth() after panic = %d, want 0", cx.RootDepth())
	}
}

func TestScopeDetectsLeakedRoot(t *testing.T) {
	cx := newTestContext(t)

	expectFatal(t, ErrRootImbalance, func() {
		cx.Scope(func(s *Scope) error {
			Root(cx, MustInt(1))
			return nil
		})
	})
	if cx.RootDepth() != 0 {
		t.Errorf("RootDepth() = %d, want 0", cx.RootDepth())
	}
}

type pair struct {
	a, b Word
}

func (p *pair) Trace(v *Visitor) {
	v.Visit(&p.a)
	v.Visit(&p.b)
}

func TestRootTracer(t *testing.T) {
	cx := newTestContext(t)

	p := &pair{
		a: Word(cx.NewString("left")),
		b: Word(cx.NewString("right")),
	}
	rt := cx.RootTracer(p)
	defer rt.Unroot()

	cx.GarbageCollect(true)

	if got := cx.LispString(Gc[LispString](p.b)).String(); got != "right" {
		t.Errorf("p.b = %q, want right", got)
	}
}
