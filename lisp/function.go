package lisp

import "fmt"

// FnArgs is a function's argument signature.
type FnArgs struct {
	Required uint16
	Optional uint16
	Rest     bool
	Advice   bool
}

// NumFillArgs returns how many nil arguments must be appended to a call
// with n arguments so every optional parameter is present.
func (a FnArgs) NumFillArgs(n uint16, name string) (uint16, error) {
	if n < a.Required {
		return 0, &ArgError{Name: name, Expected: a.Required, Actual: n}
	}
	total := a.Required + a.Optional
	if !a.Rest && n > total {
		return 0, &ArgError{Name: name, Expected: total, Actual: n}
	}
	if n >= total {
		return 0, nil
	}
	return total - n, nil
}

// BuiltInFn is the Go implementation of a primitive. args is rooted for
// the duration of the call.
type BuiltInFn func(args *RootedVec, env *Env, cx *Context) (Gc[Object], error)

// SubrFn is a primitive registered in a Context's primitive table.
type SubrFn struct {
	Name string
	Args FnArgs
	Fn   BuiltInFn
}

func (s *SubrFn) String() string {
	return "#<subr " + s.Name + ">"
}

// DefSubr registers a primitive and returns its word. Primitives are never
// collected.
func (cx *Context) DefSubr(name string, args FnArgs, fn BuiltInFn) Gc[SubrFn] {
	if len(cx.subrs) >= maxHeapSlots {
		cx.fatal(fmt.Errorf("%w: primitive table full", ErrOutOfMemory))
	}
	cx.subrs = append(cx.subrs, &SubrFn{Name: name, Args: args, Fn: fn})
	return Gc[SubrFn](subrWord(uint32(len(cx.subrs) - 1)))
}

// Call invokes a primitive with args, padding missing optional arguments
// with nil. The primitive may allocate and collect; args stays valid.
func (cx *Context) Call(fn Gc[SubrFn], args *RootedVec, env *Env) (Gc[Object], error) {
	subr := cx.Subr(fn)
	fill, err := subr.Args.NumFillArgs(uint16(args.Len()), subr.Name)
	if err != nil {
		return Nil.Object(), err
	}
	for i := uint16(0); i < fill; i++ {
		args.Push(Nil.Object())
	}
	return subr.Fn(args, env, cx)
}
