package env

import (
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// Record is an ECMAScript environment record (ES5.1 §10.2). Exactly one
// of the two backings is used depending on Declarative:
//
//   - Declarative: Bindings' own entry part holds each binding directly
//     (mutable bindings carry heap.PropWritable; immutable ones don't).
//   - ObjectRecord: Target is the binding object (the global object, or
//     a with-statement's expression object); ProvideThis marks the
//     with-statement special case (ES5.1 §10.2.1.2.6), in which
//     ImplicitThisValue returns Target. ThisVal is stored but not read.
//
// A declarative record may additionally be "open": tied live to a
// running activation's register file, so that names present in Varmap
// resolve to a register slot instead of a heap-entry lookup. This is how the
// interpreter avoids allocating a heap object for the common case of a
// function whose variables are never captured by a nested closure or
// introspected via `eval`.
type Record struct {
	Declarative bool

	Bindings *heap.HObject // Declarative
	Target   *heap.HObject // ObjectRecord
	ProvideThis bool
	ThisVal     value.Value

	Parent *Record

	// Open-record register resolution.
	Thread  *heap.HThread
	RegBase int
	Varmap  map[string]int
}

// NewDeclarative creates a closed declarative record (all bindings live
// as ordinary entries on Bindings).
func NewDeclarative(bindings *heap.HObject, parent *Record) *Record {
	return &Record{Declarative: true, Bindings: bindings, Parent: parent}
}

// NewOpenDeclarative creates a declarative record whose names in varmap
// resolve directly to thread's register file starting at regBase,
// falling back to Bindings for any name not in varmap (e.g. one
// introduced after the activation was set up, via a direct eval).
func NewOpenDeclarative(bindings *heap.HObject, parent *Record, thread *heap.HThread, regBase int, varmap map[string]int) *Record {
	r := NewDeclarative(bindings, parent)
	r.Thread = thread
	r.RegBase = regBase
	r.Varmap = varmap
	return r
}

// NewObjectRecord creates an object environment record over target,
// optionally a with-statement scope (provideThis true). this is kept as
// ThisVal, which ImplicitThisValue does not consult: it returns target.
func NewObjectRecord(target *heap.HObject, parent *Record, provideThis bool, this value.Value) *Record {
	return &Record{Target: target, Parent: parent, ProvideThis: provideThis, ThisVal: this}
}

// isOpenRegister reports whether name is resolved via the register fast
// path on this record.
func (r *Record) isOpenRegister(name string) (int, bool) {
	if r.Varmap == nil || r.Thread == nil {
		return 0, false
	}
	off, ok := r.Varmap[name]
	return off, ok
}
