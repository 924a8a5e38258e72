// Package lisp implements the object representation and memory-safety
// core of the lispcore runtime.
//
// This package contains:
//   - Tagged word representation (Word, Gc[K]) and the sum-type hierarchy
//   - The heap owner (Context): allocation and the copying collector
//   - The rooting protocol (Rooted, RootedVec, Scope)
//   - The symbol table and pre-interned built-in symbols
//   - The environment of global, dynamic and function bindings
package lisp
