package lisp

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// owners maps a goroutine ID to the non-detached Context it owns.
var owners sync.Map

// goroutineID returns the current goroutine's ID, parsed from the
// runtime stack header ("goroutine 123 [running]:").
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}

// claimOwner registers cx as the owner for the current goroutine.
func (cx *Context) claimOwner() error {
	cx.gid = goroutineID()
	if cx.detached {
		return nil
	}
	if _, loaded := owners.LoadOrStore(cx.gid, cx); loaded {
		return ErrOwnerExists
	}
	return nil
}

func (cx *Context) releaseOwner() {
	if !cx.detached {
		owners.CompareAndDelete(cx.gid, cx)
	}
}

// checkOwner faults when called off the goroutine that created cx.
func (cx *Context) checkOwner() {
	if !cx.cfg.CheckOwner {
		return
	}
	if gid := goroutineID(); gid != cx.gid {
		cx.fatal(ErrWrongGoroutine)
	}
}

// OwnerOf returns the non-detached Context owned by the calling goroutine.
func OwnerOf() (*Context, bool) {
	v, ok := owners.Load(goroutineID())
	if !ok {
		return nil, false
	}
	return v.(*Context), true
}
