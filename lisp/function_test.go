package lisp

import (
	"errors"
	"testing"
)

func TestNumFillArgs(t *testing.T) {
	tests := []struct {
		args    FnArgs
		n       uint16
		want    uint16
		wantErr bool
	}{
		{FnArgs{Required: 1}, 1, 0, false},
		{FnArgs{Required: 1}, 0, 0, true},
		{FnArgs{Required: 1}, 2, 0, true},
		{FnArgs{Required: 1, Optional: 2}, 1, 2, false},
		{FnArgs{Required: 1, Optional: 2}, 2, 1, false},
		{FnArgs{Required: 1, Optional: 2}, 3, 0, false},
		{FnArgs{Required: 1, Optional: 2}, 4, 0, true},
		{FnArgs{Required: 0, Optional: 1, Rest: true}, 5, 0, false},
		{FnArgs{Required: 2, Rest: true}, 1, 0, true},
	}

	for _, tt := range tests {
		got, err := tt.args.NumFillArgs(tt.n, "f")
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v.NumFillArgs(%d) error = %v, wantErr %v", tt.args, tt.n, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%+v.NumFillArgs(%d) = %d, want %d", tt.args, tt.n, got, tt.want)
		}
	}
}

func TestArgErrorFields(t *testing.T) {
	_, err := FnArgs{Required: 2, Optional: 1}.NumFillArgs(4, "car")
	var ae *ArgError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *ArgError", err)
	}
	if ae.Expected != 3 || ae.Actual != 4 || ae.Name != "car" {
		t.Errorf("ArgError = %+v, want {car 3 4}", ae)
	}
}

func TestCallPadsOptionals(t *testing.T) {
	cx := newTestContext(t)
	env := NewEnv()
	cx.AttachEnv(env)

	list := cx.DefSubr("list3", FnArgs{Required: 1, Optional: 2}, func(args *RootedVec, env *Env, cx *Context) (Gc[Object], error) {
		// Collection inside a primitive must not invalidate its arguments.
		cx.GarbageCollect(true)
		return cx.NewList(args.Slice()...).Object(), nil
	})

	args := cx.RootVec(cx.NewString("a").Object())
	defer args.Unroot()
	got, err := cx.Call(list, args, env)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if s := cx.Format(got); s != `("a" nil nil)` {
		t.Errorf("result = %s, want (\"a\" nil nil)", s)
	}

	args.Truncate(0)
	if _, err := cx.Call(list, args, env); err == nil {
		t.Error("Call with too few arguments succeeded")
	}
}

func TestByteFn(t *testing.T) {
	cx := newTestContext(t)

	fn := Root(cx, cx.NewByteFn(FnArgs{Required: 1}, []byte{0x01, 0x02}, cx.NewString("k").Object()))
	defer fn.Unroot()
	cx.GarbageCollect(true)

	f := cx.ByteFn(fn.Get())
	if f.Args().Required != 1 || len(f.Ops()) != 2 {
		t.Errorf("ByteFn = %+v %v, want 1 required and 2 ops", f.Args(), f.Ops())
	}
	if s := cx.Format(f.Constant(0)); s != `"k"` {
		t.Errorf("constant 0 = %s, want \"k\"", s)
	}
}
