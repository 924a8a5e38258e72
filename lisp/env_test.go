package lisp

import (
	"errors"
	"testing"
)

func TestEnvDefineLookup(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)
	x := cx.Intern("x")

	if _, err := env.Lookup(x); err == nil {
		t.Fatal("Lookup of unbound symbol succeeded")
	} else {
		var ue *UnboundError
		if !errors.As(err, &ue) || ue.Symbol != "x" {
			t.Errorf("error = %v, want void-variable x", err)
		}
	}

	if err := env.Define(x, MustInt(1).Object()); err != nil {
		t.Fatalf("Define: %v", err)
	}
	v, err := env.Lookup(x)
	if err != nil || v.Int64() != 1 {
		t.Errorf("Lookup(x) = %v, %v; want 1", v, err)
	}
}

func TestEnvSelfEvaluating(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)

	for _, sym := range []Gc[Symbol]{Nil, True, cx.Intern(":key")} {
		v, err := env.Lookup(sym)
		if err != nil || v != sym.Object() {
			t.Errorf("Lookup(%s) = %v, %v; want itself", cx.SymbolName(sym), v, err)
		}
	}
}

func TestEnvConstants(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)

	for _, sym := range []Gc[Symbol]{Nil, True, cx.Intern(":key")} {
		err := env.Define(sym, MustInt(1).Object())
		var sc *SettingConstantError
		if !errors.As(err, &sc) {
			t.Errorf("Define(%s) error = %v, want *SettingConstantError", cx.SymbolName(sym), err)
		}
	}

	pi := cx.Intern("pi")
	if err := env.Defconst(pi, cx.NewFloat(3.14).Object()); err != nil {
		t.Fatalf("Defconst: %v", err)
	}
	if err := env.Set(pi, MustInt(3).Object()); err == nil {
		t.Error("Set of a defconst'd symbol succeeded")
	}
}

func TestEnvDynamicBinding(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)
	x := cx.Intern("x")

	env.Define(x, MustInt(1).Object())
	depth, err := env.BindDynamic(x, MustInt(2).Object())
	if err != nil {
		t.Fatalf("BindDynamic: %v", err)
	}
	if v, _ := env.Lookup(x); v.Int64() != 2 {
		t.Errorf("Lookup(x) under binding = %d, want 2", v.Int64())
	}

	env.Set(x, MustInt(3).Object())
	if v, _ := env.Lookup(x); v.Int64() != 3 {
		t.Errorf("Lookup(x) after Set = %d, want 3", v.Int64())
	}

	env.UnbindDynamic(depth)
	if v, _ := env.Lookup(x); v.Int64() != 1 {
		t.Errorf("Lookup(x) after unbind = %d, want 1", v.Int64())
	}
	if env.SpecDepth() != 0 {
		t.Errorf("SpecDepth() = %d, want 0", env.SpecDepth())
	}
}

func TestEnvWithBinding(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)
	y := cx.Intern("y")

	err := env.WithBinding(y, MustInt(5).Object(), func() error {
		v, err := env.Lookup(y)
		if err != nil || v.Int64() != 5 {
			t.Errorf("Lookup(y) = %v, %v; want 5", v, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBinding: %v", err)
	}
	if env.Boundp(y) {
		t.Error("y still bound after WithBinding")
	}
}

func TestEnvDefvar(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)
	v := cx.Intern("var")

	env.Defvar(v, MustInt(1).Object())
	env.Defvar(v, MustInt(2).Object())
	if got, _ := env.Lookup(v); got.Int64() != 1 {
		t.Errorf("Lookup after second defvar = %d, want 1", got.Int64())
	}
	if !env.IsSpecial(v) {
		t.Error("defvar'd symbol should be special")
	}
}

func TestEnvFunctions(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)
	f := cx.Intern("f")

	if _, err := env.LookupFunction(f); err == nil {
		t.Error("LookupFunction of unbound symbol succeeded")
	} else {
		var ue *UnboundError
		if !errors.As(err, &ue) || !ue.Function {
			t.Errorf("error = %v, want void-function", err)
		}
	}

	subr := cx.DefSubr("identity", FnArgs{Required: 1}, func(args *RootedVec, env *Env, cx *Context) (Gc[Object], error) {
		return args.Get(0), nil
	})
	if err := env.SetFunction(f, Widen[Function](subr)); err != nil {
		t.Fatalf("SetFunction: %v", err)
	}
	if !env.Fboundp(f) {
		t.Error("Fboundp(f) = false, want true")
	}
	fn, err := env.LookupFunction(f)
	if err != nil {
		t.Fatalf("LookupFunction: %v", err)
	}
	if _, ok := cx.UntagFunction(fn).(*SubrFn); !ok {
		t.Errorf("function cell = %T, want *SubrFn", cx.UntagFunction(fn))
	}
}

func TestEnvPlist(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)
	sym, prop := cx.Intern("s"), cx.Intern("color")

	if !env.Get(sym, prop).IsNil() {
		t.Error("unset property should be nil")
	}
	env.Put(sym, prop, cx.NewString("red").Object())
	env.Put(sym, prop, cx.NewString("blue").Object())

	got := env.Get(sym, prop)
	if s := cx.Format(got); s != `"blue"` {
		t.Errorf("Get = %s, want \"blue\"", s)
	}
}

func TestEnvTracedByCollector(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)

	x, y := cx.Intern("x"), cx.Intern("y")
	env.Define(x, cx.NewString("global").Object())
	depth, _ := env.BindDynamic(y, cx.NewVec(MustInt(1).Object()).Object())
	defer env.UnbindDynamic(depth)
	u := cx.Symbols().NewUninterned("hidden")
	env.Put(u, x, cx.NewFloat(1).Object())

	stats := cx.GarbageCollect(true)
	if stats.ObjectsAfter != 3 {
		t.Errorf("ObjectsAfter = %d, want 3", stats.ObjectsAfter)
	}
	if stats.SymbolsSwept != 0 {
		t.Errorf("SymbolsSwept = %d, want 0", stats.SymbolsSwept)
	}
	v, _ := env.Lookup(x)
	if s := cx.Format(v); s != `"global"` {
		t.Errorf("x = %s, want \"global\"", s)
	}
	w, _ := env.Lookup(y)
	if s := cx.Format(w); s != "[1]" {
		t.Errorf("y = %s, want [1]", s)
	}

	cx.DetachEnv(env)
	cx.GarbageCollect(true)
	if cx.Objects() != 0 {
		t.Errorf("Objects() after detach = %d, want 0", cx.Objects())
	}
}

func TestAttachEnvRejectsStaleBindings(t *testing.T) {
	cx := newTestContext(t)
	keep := Root(cx, cx.NewString("keep"))
	defer keep.Unroot()

	env := NewEnv()
	cx.AttachEnv(env)
	x := cx.Intern("x")
	cx.DetachEnv(env)
	env.Define(x, cx.NewString("gone").Object())

	cx.GarbageCollect(true)
	epoch := cx.Epoch()

	expectStale(t, func() { cx.AttachEnv(env) })
	if cx.RemoveGlobalRoot(env) {
		t.Error("env registered as a root despite holding a stale binding")
	}

	if cx.GarbageCollect(true) == nil {
		t.Fatal("collection after rejected attach did not run")
	}
	if cx.Epoch() != epoch+1 {
		t.Errorf("Epoch() = %d, want %d", cx.Epoch(), epoch+1)
	}
	if got := cx.LispString(keep.Get()).String(); got != "keep" {
		t.Errorf("rooted string = %q, want keep", got)
	}
}

func TestLookupKeywordOnDetachedEnv(t *testing.T) {
	cx := newTestContext(t)
	key := cx.Intern(":key")
	env := NewEnv()

	var ue *UnboundError
	if _, err := env.Lookup(key); !errors.As(err, &ue) {
		t.Errorf("detached Lookup(:key) error = %v, want *UnboundError", err)
	}
	if v, err := env.Lookup(True); err != nil || v != True.Object() {
		t.Errorf("detached Lookup(t) = %v, %v; want t", v, err)
	}

	cx.AttachEnv(env)
	if v, err := env.Lookup(key); err != nil || v != key.Object() {
		t.Errorf("attached Lookup(:key) = %v, %v; want itself", v, err)
	}
}
