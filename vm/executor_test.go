package vm

import (
	"testing"

	"github.com/wippyai/ecmacore/bytecode"
	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

func newTestMachine(t *testing.T) (*Machine, *heap.HThread) {
	t.Helper()
	h := heap.NewDefault()
	objProto := heap.NewHObject(nil, "Object")
	global := heap.NewHObject(objProto, "global")
	thread := heap.NewHThread(1000, global)
	protos := call.Prototypes{
		Object:  objProto,
		String:  heap.NewHObject(objProto, "String"),
		Number:  heap.NewHObject(objProto, "Number"),
		Boolean: heap.NewHObject(objProto, "Boolean"),
	}
	m := &Machine{
		Heap:   h,
		Protos: protos,
		Global: global,
		NativeCtx: func(th *heap.HThread, args []value.Value, this value.Value) any {
			return nil
		},
	}
	return m, thread
}

// addConstantsTemplate builds a minimal Template with no arguments, wiring a
// function that adds its first two declared constants and returns
// the sum: LOADK r0, k0; LOADK r1, k1; ADD r2, r0, r1; RETURN r2.
func addConstantsTemplate() *heap.Template {
	code := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 0)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 1, 1)),
		uint32(bytecode.Encode(bytecode.OpAdd, 2, 0, 1)),
		uint32(bytecode.Encode(bytecode.OpReturn, 2, 0, 0)),
	}
	return &heap.Template{
		Name:      "addConstants",
		Code:      code,
		Constants: []value.Value{value.Number(19), value.Number(23)},
		NumRegs:   3,
	}
}

func TestMachineRun_ArithmeticAndReturn(t *testing.T) {
	m, thread := newTestMachine(t)
	tmpl := addConstantsTemplate()
	fn := heap.NewCompiledFunction(tmpl, nil)

	result, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 42 {
		t.Fatalf("got %v, want 42", result)
	}
	if len(thread.CallStack) != 0 {
		t.Fatalf("call stack not unwound after return: %d entries", len(thread.CallStack))
	}
}

// jumpTemplate builds: LOADTRUE r0; JUMPIFFALSE r0, +2 (to the else
// arm); LOADK r1, k1 (then: 7); JUMP +1 (over the else arm); LOADK r1,
// k0 (else: 0, unreached); RETURN r1 — exercising both conditional and
// unconditional jumps.
func jumpTemplate() *heap.Template {
	code := []uint32{
		uint32(bytecode.Encode(bytecode.OpLoadTrue, 0, 0, 0)),
		uint32(bytecode.EncodeBC(bytecode.OpJumpIfFalse, 0, 2)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 1, 1)),
		uint32(bytecode.EncodeABC(bytecode.OpJump, 1)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 1, 0)),
		uint32(bytecode.Encode(bytecode.OpReturn, 1, 0, 0)),
	}
	return &heap.Template{
		Name:      "branch",
		Code:      code,
		Constants: []value.Value{value.Number(0), value.Number(7)},
		NumRegs:   2,
	}
}

func TestMachineRun_ConditionalJumpTakesTruePath(t *testing.T) {
	m, thread := newTestMachine(t)
	tmpl := jumpTemplate()
	fn := heap.NewCompiledFunction(tmpl, nil)

	result, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 7 {
		t.Fatalf("got %v, want 7 (true branch taken)", result)
	}
}

// throwCatchTemplate pushes a try region covering a THROW, catching it
// and returning a sentinel instead of letting the error propagate:
// TRYPUSH +2; LOADUNDEF r0; THROW r0; LOADK r0, k0 (catch target);
// RETURN r0.
func throwCatchTemplate() *heap.Template {
	code := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpTryPush, 0, 2&0x3FFFF)),
		uint32(bytecode.Encode(bytecode.OpLoadUndef, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpThrow, 0, 0, 0)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpReturn, 0, 0, 0)),
	}
	return &heap.Template{
		Name:      "tryCatch",
		Code:      code,
		Constants: []value.Value{value.Number(99)},
		NumRegs:   1,
	}
}

func TestMachineRun_LocalCatcherAbsorbsThrow(t *testing.T) {
	m, thread := newTestMachine(t)
	tmpl := throwCatchTemplate()
	fn := heap.NewCompiledFunction(tmpl, nil)

	result, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error escaped the local catcher: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 99 {
		t.Fatalf("got %v, want 99", result)
	}
	if len(thread.CatchStack) != 0 {
		t.Fatalf("catch stack not unwound: %d entries", len(thread.CatchStack))
	}
}

// throwCatchBindTemplate exercises catch-variable binding: TRYPUSH +2;
// LOADK r0, k0 (42); THROW r0; LOADCAUGHT r1 (catch target); RETURN r1.
func throwCatchBindTemplate() *heap.Template {
	code := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpTryPush, 0, 2&0x3FFFF)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpThrow, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpLoadCaught, 1, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpReturn, 1, 0, 0)),
	}
	return &heap.Template{
		Name:      "tryCatchBind",
		Code:      code,
		Constants: []value.Value{value.Number(42)},
		NumRegs:   2,
	}
}

func TestMachineRun_CatchBindsThrownValue(t *testing.T) {
	m, thread := newTestMachine(t)
	tmpl := throwCatchBindTemplate()
	fn := heap.NewCompiledFunction(tmpl, nil)

	result, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error escaped the local catcher: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 42 {
		t.Fatalf("got %v, want the thrown value 42 bound by the catch", result)
	}
}

// tryFinallyTemplate exercises a finally block that always runs on the
// way out of a try, even when the try throws and nothing catches it:
// TRYPUSHFINALLY +3; LOADUNDEF r0; THROW r0; JUMP +2 (unreached);
// LOADK r1, k0 (finally body, sets a side-effect register); ENDFIN;
// RETURN r1 (only reached if ENDFIN doesn't re-propagate the throw).
func tryFinallyTemplate() *heap.Template {
	code := []uint32{
		uint32(bytecode.EncodeBC(bytecode.OpTryPushFinally, 0, 3&0x3FFFF)),
		uint32(bytecode.Encode(bytecode.OpLoadUndef, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpThrow, 0, 0, 0)),
		uint32(bytecode.EncodeABC(bytecode.OpJump, 2)),
		uint32(bytecode.EncodeBC(bytecode.OpLoadK, 1, 0)),
		uint32(bytecode.Encode(bytecode.OpEndFin, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpReturn, 1, 0, 0)),
	}
	return &heap.Template{
		Name:      "tryFinally",
		Code:      code,
		Constants: []value.Value{value.Number(7)},
		NumRegs:   2,
	}
}

func TestMachineRun_FinallyRunsThenRethrows(t *testing.T) {
	m, thread := newTestMachine(t)
	tmpl := tryFinallyTemplate()
	fn := heap.NewCompiledFunction(tmpl, nil)

	_, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err == nil {
		t.Fatalf("expected the finally block to re-propagate the throw once uncaught")
	}
	if len(thread.CatchStack) != 0 {
		t.Fatalf("catch stack not unwound: %d entries", len(thread.CatchStack))
	}
}

func TestMachineRun_UncaughtThrowPropagatesAsError(t *testing.T) {
	m, thread := newTestMachine(t)
	code := []uint32{
		uint32(bytecode.Encode(bytecode.OpLoadUndef, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpThrow, 0, 0, 0)),
	}
	tmpl := &heap.Template{Name: "throws", Code: code, NumRegs: 1}
	fn := heap.NewCompiledFunction(tmpl, nil)

	_, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err == nil {
		t.Fatalf("expected an uncaught throw to surface as an error")
	}
}

func TestMachineRun_NewObjReturnsObject(t *testing.T) {
	m, thread := newTestMachine(t)
	// NEWOBJ r0; RETURN r0: checks only that NEWOBJ yields an object.
	// Property reads and writes are not exercised here (a string key
	// would need an interned constant).
	code := []uint32{
		uint32(bytecode.Encode(bytecode.OpNewObj, 0, 0, 0)),
		uint32(bytecode.Encode(bytecode.OpReturn, 0, 0, 0)),
	}
	tmpl := &heap.Template{Name: "obj", Code: code, NumRegs: 1}
	fn := heap.NewCompiledFunction(tmpl, nil)

	result, err := m.CallOn(thread, fn, value.Undefined(), nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsObject() {
		t.Fatalf("expected an object result, got %v", result)
	}
}
