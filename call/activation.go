package call

import (
	"github.com/wippyai/ecmacore/env"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// Activation is a call frame: everything /vm's executor
// needs to resume a compiled function at its next instruction, plus the
// bookkeeping HandleCall needs to unwind it on return or error. Native
// calls never get one of these — they run to completion inside
// HandleCall itself.
type Activation struct {
	Func   *heap.HFunction
	Thread *heap.HThread

	PC int

	// ValstackBottom/NRegs describe this activation's register window
	// within Thread.ValStack: registers live at
	// [ValstackBottom, ValstackBottom+NRegs).
	ValstackBottom int
	NRegs          int

	VarEnv *env.Record
	LexEnv *env.Record

	This       value.Value
	IsConstruct bool
	Strict     bool

	// CatchBase is the length of Thread.CatchStack at the moment this
	// activation was pushed; unwinding past this activation pops every
	// catcher above that floor.
	CatchBase int

	// Tail marks an activation reused in place by a tail call
	// (HandleEcmaCallSetup's in-place reuse path) rather than a fresh
	// one pushed on top — informational only, the VM and HandleCall
	// treat it identically to a fresh activation.
	Tail bool

	// PendingCatchValue is the value a CatchTry catcher just bound,
	// valid only for the OpLoadCaught immediately after the jump into
	// its catch block.
	PendingCatchValue value.Value

	// Pending* park a non-Normal completion while it runs the finally
	// block of a CatchFinally catcher it unwound through. OpEndFin at
	// the end of that finally block resumes whichever is set.
	PendingCompletion Completion
	PendingValue      value.Value
	PendingErr        error
	PendingLabel      int

	// PendingThis/HasPendingThis carry the base object selected by a
	// call-setup op (csprop/csvar) across to the very next OpCall, so
	// a method call's `this` is the receiver rather than undefined.
	PendingThis    value.Value
	HasPendingThis bool

	// Enumerators backs OpInitEnum/OpNextEnum: live object.Enumerator
	// state indexed by the handle OpInitEnum writes to its destination
	// register, mirroring how api.Context keeps Enum/Next's state
	// outside the value-stack representation (a register can hold only
	// a tagged value.Value, not an iterator).
	Enumerators []*object.Enumerator
}

// Completion is the kind of non-Normal control flow parked across a
// finally block (ES5.1 §8.9's completion types, minus Normal itself).
type Completion uint8

const (
	CompletionNone Completion = iota
	CompletionThrow
	CompletionReturn
	CompletionBreak
	CompletionContinue
)

// MarkChildren implements heap.StackEntry so the collector can walk an
// in-flight call stack.
func (a *Activation) MarkChildren(visit func(heap.GCObject)) {
	if a == nil {
		return
	}
	if a.Func != nil {
		visit(a.Func)
	}
	markEnvChildren(a.VarEnv, visit)
	if a.LexEnv != a.VarEnv {
		markEnvChildren(a.LexEnv, visit)
	}
	heap.MarkValueChildren(a.This, visit)
	heap.MarkValueChildren(a.PendingCatchValue, visit)
	heap.MarkValueChildren(a.PendingValue, visit)
	heap.MarkValueChildren(a.PendingThis, visit)
}

// markEnvChildren visits the heap objects backing an environment
// record's bindings. env.Record is a plain struct, not itself a
// heap.GCObject, so the Bindings/Target *heap.HObject it wraps must be
// walked explicitly; the chain is followed via Parent since a whole
// scope chain can be reachable only through the innermost activation.
func markEnvChildren(r *env.Record, visit func(heap.GCObject)) {
	for cur := r; cur != nil; cur = cur.Parent {
		if cur.Bindings != nil {
			visit(cur.Bindings)
		}
		if cur.Target != nil {
			visit(cur.Target)
		}
	}
}
