package server

import (
	"testing"
	"time"

	"github.com/chazu/lispcore/lisp"
)

func TestHandleSurvivesCollection(t *testing.T) {
	result, err := testWorker.Do(func(cx *lisp.Context) (any, error) {
		v := cx.NewVec(cx.NewString("kept").Object(), lisp.MustInt(5).Object())
		cx.NewString("garbage")
		return testHandles.Create(cx, v.Object()), nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	id := result.(string)
	defer testHandles.Release(id)

	if _, err := testCollector.CollectNow(true); err != nil {
		t.Fatalf("CollectNow: %v", err)
	}

	display, err := testWorker.Do(func(cx *lisp.Context) (any, error) {
		v, ok := testHandles.Lookup(id)
		if !ok {
			t.Error("handle missing after collection")
			return "", nil
		}
		return cx.Format(v), nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if display != `["kept" 5]` {
		t.Errorf("display = %v, want %q", display, `["kept" 5]`)
	}

	kind, shown, ok := testHandles.Describe(id)
	if !ok || kind != "vector" || shown != `["kept" 5]` {
		t.Errorf("Describe = %q, %q, %v", kind, shown, ok)
	}
}

func TestHandleReleaseFreesValue(t *testing.T) {
	count := func() int {
		n, err := testWorker.Do(func(cx *lisp.Context) (any, error) {
			cx.GarbageCollect(true)
			return cx.Objects(), nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
		return n.(int)
	}
	before := count()

	result, _ := testWorker.Do(func(cx *lisp.Context) (any, error) {
		return testHandles.Create(cx, cx.NewString("temporary").Object()), nil
	})
	id := result.(string)
	if got := count(); got != before+1 {
		t.Errorf("objects with handle = %d, want %d", got, before+1)
	}

	if !testHandles.Release(id) {
		t.Fatal("Release returned false")
	}
	if testHandles.Release(id) {
		t.Error("second Release returned true")
	}
	if got := count(); got != before {
		t.Errorf("objects after release = %d, want %d", got, before)
	}
}

func TestHandleSweep(t *testing.T) {
	store := &HandleStore{handles: make(map[string]*handle)}
	testWorker.Do(func(cx *lisp.Context) (any, error) {
		store.Create(cx, lisp.MustInt(1).Object())
		store.Create(cx, lisp.MustInt(2).Object())
		return nil, nil
	})

	time.Sleep(5 * time.Millisecond)
	if n := store.Sweep(time.Hour); n != 0 {
		t.Errorf("Sweep(1h) = %d, want 0", n)
	}
	if n := store.Sweep(time.Millisecond); n != 2 {
		t.Errorf("Sweep(1ms) = %d, want 2", n)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}
