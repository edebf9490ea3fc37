package vm

import (
	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// StepResult is what a Resume call hands back to whoever is driving a
// coroutine: either it ran to completion (Done, carrying Value or an
// Err) or it yielded (not Done, carrying the yielded Value).
type StepResult struct {
	Done  bool
	Value value.Value
	Err   error
}

// Thread drives one heap.HThread's coroutine lifecycle on top of a
// Machine. Resuming a thread that previously yielded re-enters the
// exact Activation it suspended in: act.PC already points past the
// OpYield instruction, so handing the same act back to exec.Run
// resumes exactly where execution left off, with its register window,
// variable environment and catch stack all intact.
//
// Only the coroutine's own top-level activation may yield (enforced at
// OpYield in executor.go). This executor drives nested ECMAScript
// calls through ordinary recursive Go calls rather than a
// non-recursive bytecode dispatcher, so a yield several calls deep
// would need to resume into Go call frames a panic has already
// unwound — Go cannot do that. A future dispatcher built as an
// explicit trampoline over the call stack could lift this restriction;
// until then, a generator-style function must yield directly from its
// own body, not from a function it calls.
type Thread struct {
	Machine *Machine
	H       *heap.HThread

	fn  *heap.HFunction
	act *call.Activation
}

// NewThread wraps an existing heap thread for coroutine driving. The
// heap thread is normally created via the embedding API's Context
//; this
// constructor just attaches the Machine that will run it.
func NewThread(m *Machine, h *heap.HThread) *Thread {
	return &Thread{Machine: m, H: h}
}

// Resume starts the thread (first call, fn/this/args meaningful) or
// continues it past its last yield (subsequent calls; fn/this/args are
// ignored and no resume value is passed in — this executor does not
// thread a resume value back into the register the OpYield instruction
// wrote from, since doing so would require OpYield to return normally
// rather than unwind via panic, which is the whole reason it can
// propagate through an arbitrary number of Run frames at all).
func (t *Thread) Resume(fn *heap.HFunction, this value.Value, args []value.Value) StepResult {
	switch t.H.State {
	case heap.ThreadTerminated:
		return StepResult{Done: true, Err: errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("cannot resume a terminated thread").Build()}
	case heap.ThreadYielded:
		return t.resumeSuspended()
	case heap.ThreadResumed, heap.ThreadRunning:
		return StepResult{Done: true, Err: errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("thread is already running").Build()}
	default:
		return t.resumeFirst(fn, this, args)
	}
}

func (t *Thread) resumeFirst(fn *heap.HFunction, this value.Value, args []value.Value) StepResult {
	act, err := call.HandleEcmaCallSetup(t.Machine.Heap, t.H, t.Machine.Protos, fn, this, args, false, false)
	if err != nil {
		t.H.State = heap.ThreadTerminated
		return StepResult{Done: true, Err: err}
	}
	t.fn = fn
	t.act = act
	return t.run(act)
}

func (t *Thread) resumeSuspended() StepResult {
	if t.act == nil {
		t.H.State = heap.ThreadTerminated
		return StepResult{Done: true, Err: errkind.New(errkind.PhaseAPI, errkind.KindInternalError).
			Detail("thread marked yielded with no suspended activation").Build()}
	}
	return t.run(t.act)
}

func (t *Thread) run(act *call.Activation) StepResult {
	t.H.State = heap.ThreadResumed

	var result value.Value
	var runErr error
	yielded, yieldVal := Protect(func() {
		result, runErr = call.RunActivation(t.H, act, t.Machine)
	})

	if yielded {
		t.H.State = heap.ThreadYielded
		v, _ := yieldVal.(value.Value)
		return StepResult{Done: false, Value: v}
	}

	t.H.State = heap.ThreadTerminated
	t.act = nil
	if runErr != nil {
		return StepResult{Done: true, Err: runErr}
	}
	return StepResult{Done: true, Value: result}
}
