package lisp

import (
	"errors"
	"fmt"
)

// Misuse and resource errors. Apart from ErrOwnerExists, which NewContext
// returns, these only appear wrapped in a *FatalError panic.
var (
	ErrOwnerExists    = errors.New("goroutine already owns a heap context")
	ErrWrongGoroutine = errors.New("heap context used off its owner goroutine")
	ErrSharedAccess   = errors.New("collection requested while shared borrows are outstanding")
	ErrRootImbalance  = errors.New("root stack imbalance")
	ErrUnrooted       = errors.New("use of a handle after it was unrooted")
	ErrOutOfMemory    = errors.New("out of memory")
	ErrClosed         = errors.New("heap context is closed")
)

// Unrecoverable reports whether err leaves its context unfit for further
// use: out-of-memory and protocol misuse. A stale reference is not in this
// set; it faults before touching the heap.
func Unrecoverable(err error) bool {
	for _, target := range []error{
		ErrOutOfMemory, ErrRootImbalance, ErrSharedAccess,
		ErrUnrooted, ErrWrongGoroutine, ErrClosed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// TypeError reports a narrowing conversion whose discriminant fell
// outside the requested set.
type TypeError struct {
	Expected Type
	Actual   Tag
	Value    Word
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("wrong-type-argument: expected %s, found %s", e.Expected, e.Actual)
}

// RangeError reports an integer that does not fit in a fixnum.
type RangeError struct {
	Value int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("args-out-of-range: %d is not a fixnum", e.Value)
}

// UnboundError reports a lookup miss in the environment.
type UnboundError struct {
	Symbol   string
	Function bool
}

func (e *UnboundError) Error() string {
	if e.Function {
		return "void-function: " + e.Symbol
	}
	return "void-variable: " + e.Symbol
}

// SettingConstantError reports an attempt to bind a constant symbol.
type SettingConstantError struct {
	Symbol string
}

func (e *SettingConstantError) Error() string {
	return "setting-constant: " + e.Symbol
}

// ArgError reports a call with the wrong number of arguments.
type ArgError struct {
	Name     string
	Expected uint16
	Actual   uint16
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("wrong-number-of-arguments: %s expected %d, got %d", e.Name, e.Expected, e.Actual)
}

// StaleReferenceError reports a dereference of a word or heap struct that
// did not survive the most recent collection.
type StaleReferenceError struct {
	Word   Word
	Epoch  uint32
	Reason string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale reference %s (current epoch %d): %s", e.Word, e.Epoch, e.Reason)
}

// FatalError is the panic payload for unrecoverable conditions:
// out-of-memory, stale references and protocol misuse.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "lisp: fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// CatchFatal runs fn and converts a *FatalError panic into an error.
// Other panics propagate unchanged.
func CatchFatal(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*FatalError)
			if !ok {
				panic(r)
			}
			err = fe
		}
	}()
	return fn()
}
