package vm

import (
	"testing"

	"github.com/wippyai/ecmacore/bytecode"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// yieldThenReturnTemplate builds: LOADK r0, k0 (11); YIELD r0; LOADK
// r0, k1 (22); RETURN r0 — a generator body that yields once from its
// own top-level activation, then resumes and returns a second value.
func yieldThenReturnTemplate() *heap.Template {
	code := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpYield, 0, 0, 0)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 1)),
		uint32(bytecode.Encode(bytecode.OpReturn, 0, 0, 0)),
	}
	return &heap.Template{
		Name:      "gen",
		Code:      code,
		Constants: []value.Value{value.Number(11), value.Number(22)},
		NumRegs:   1,
	}
}

func TestThreadResume_YieldsThenCompletes(t *testing.T) {
	m, coroutine := newTestMachine(t)
	tmpl := yieldThenReturnTemplate()
	fn := heap.NewCompiledFunction(tmpl, nil)

	th := NewThread(m, coroutine)

	first := th.Resume(fn, value.Undefined(), nil)
	if first.Done {
		t.Fatalf("expected first Resume to yield, got Done with %v / %v", first.Value, first.Err)
	}
	if !first.Value.IsNumber() || first.Value.AsNumber() != 11 {
		t.Fatalf("yielded value = %v, want 11", first.Value)
	}
	if coroutine.State != heap.ThreadYielded {
		t.Fatalf("thread state = %v, want yielded", coroutine.State)
	}

	second := th.Resume(nil, value.Value{}, nil)
	if !second.Done {
		t.Fatalf("expected second Resume to complete")
	}
	if second.Err != nil {
		t.Fatalf("unexpected error resuming: %v", second.Err)
	}
	if !second.Value.IsNumber() || second.Value.AsNumber() != 22 {
		t.Fatalf("final value = %v, want 22", second.Value)
	}
	if coroutine.State != heap.ThreadTerminated {
		t.Fatalf("thread state = %v, want terminated", coroutine.State)
	}
}

func TestThreadResume_RejectsResumeAfterTermination(t *testing.T) {
	m, coroutine := newTestMachine(t)
	code := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpReturn, 0, 0, 0)),
	}
	tmpl := &heap.Template{Name: "plain", Code: code, Constants: []value.Value{value.Number(1)}, NumRegs: 1}
	fn := heap.NewCompiledFunction(tmpl, nil)
	th := NewThread(m, coroutine)

	done := th.Resume(fn, value.Undefined(), nil)
	if !done.Done {
		t.Fatalf("expected immediate completion with no yield")
	}

	again := th.Resume(fn, value.Undefined(), nil)
	if again.Err == nil {
		t.Fatalf("expected resuming a terminated thread to error")
	}
}

// TestOpYield_RejectsYieldFromNestedCall builds a caller that invokes a
// nested compiled function which itself tries to yield — which this
// executor must reject, since only a coroutine's own top-level
// activation may suspend (see Thread's doc comment).
func TestOpYield_RejectsYieldFromNestedCall(t *testing.T) {
	m, thread := newTestMachine(t)

	calleeCode := []uint32{
		uint32(bytecode.Encode(bytecode.OpLoadUndef, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpYield, 0, 0, 0)),
	}
	calleeTmpl := &heap.Template{Name: "callee", Code: calleeCode, NumRegs: 1}
	calleeFn := heap.NewCompiledFunction(calleeTmpl, nil)
	calleeWrapper := heap.NewHObject(m.Protos.Object, "Function")
	calleeWrapper.Func = calleeFn

	callerCode := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 0)), // r0 = callee
		uint32(bytecode.Encode(bytecode.OpCall, 1, 0, 0)), // r1 = r0()
		uint32(bytecode.Encode(bytecode.OpReturn, 1, 0, 0)),
	}
	callerTmpl := &heap.Template{
		Name:      "caller",
		Code:      callerCode,
		Constants: []value.Value{value.Object(calleeWrapper)},
		NumRegs:   2,
	}
	callerFn := heap.NewCompiledFunction(callerTmpl, nil)

	_, err := m.CallOn(thread, callerFn, value.Undefined(), nil, false)
	if err == nil {
		t.Fatalf("expected yielding from a nested call to be rejected")
	}
}
