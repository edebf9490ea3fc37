package heap

import "github.com/wippyai/ecmacore/value"

// ThreadState is the coroutine state machine.
type ThreadState uint8

const (
	ThreadInactive ThreadState = iota
	ThreadRunning
	ThreadResumed
	ThreadYielded
	ThreadTerminated
)

func (s ThreadState) String() string {
	switch s {
	case ThreadInactive:
		return "inactive"
	case ThreadRunning:
		return "running"
	case ThreadResumed:
		return "resumed"
	case ThreadYielded:
		return "yielded"
	case ThreadTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StackEntry is implemented by the /call package's Activation and
// Catcher record types so heap's collector can walk the values they
// hold without heap importing /call (which imports heap for HObject,
// HFunction, etc. — the dependency only runs one way).
type StackEntry interface {
	MarkChildren(visit func(GCObject))
}

// HThread is the heap-allocated coroutine: three stacks (value, call,
// catch), a state, a resumer back-pointer, and its own builtins table
// (each thread may see a distinct global object).
type HThread struct {
	hdr Header

	ValStack *value.Stack

	// CallStack and CatchStack hold the /call package's Activation and
	// Catcher records respectively, typed as StackEntry so heap need not
	// import /call.
	CallStack  []StackEntry
	CatchStack []StackEntry

	State    ThreadState
	Resumer  *HThread
	Builtins *HObject

	// PreventCount counts yield-preventing activations currently on the
	// call stack (native function calls, constructor calls); yield is
	// refused while it is nonzero.
	PreventCount int
}

func NewHThread(valstackMax int, builtins *HObject) *HThread {
	return &HThread{
		hdr:      newHeader(TypeObject),
		ValStack: value.NewStack(valstackMax),
		Builtins: builtins,
		State:    ThreadInactive,
	}
}

func (t *HThread) GCHeader() *Header { return &t.hdr }

// ThreadState implements value.HeapThread.
func (t *HThread) ThreadState() string { return t.State.String() }

func (t *HThread) MarkChildren(visit func(GCObject)) {
	for _, v := range t.ValStack.Each() {
		markValueChildren(v, visit)
	}
	for _, e := range t.CallStack {
		e.MarkChildren(visit)
	}
	for _, e := range t.CatchStack {
		e.MarkChildren(visit)
	}
	if t.Resumer != nil {
		visit(t.Resumer)
	}
	if t.Builtins != nil {
		visit(t.Builtins)
	}
}
