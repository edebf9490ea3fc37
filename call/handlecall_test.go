package call

import (
	"testing"

	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

func newTestHeap(t *testing.T) (*heap.Heap, *heap.HThread, Prototypes, *heap.HObject) {
	t.Helper()
	h := heap.NewDefault()
	objProto := heap.NewHObject(nil, "Object")
	global := heap.NewHObject(objProto, "global")
	thread := heap.NewHThread(1000, global)
	protos := Prototypes{
		Object:  objProto,
		String:  heap.NewHObject(objProto, "String"),
		Number:  heap.NewHObject(objProto, "Number"),
		Boolean: heap.NewHObject(objProto, "Boolean"),
	}
	return h, thread, protos, global
}

func TestHandleCall_NativeReturnsPushedValue(t *testing.T) {
	h, thread, protos, global := newTestHeap(t)
	fn := heap.NewNativeFunction("double", 1, func(ctx any) (int, error) {
		c := ctx.(*nativeTestCtx)
		n := c.args[0].AsNumber()
		thread2 := c.thread
		thread2.ValStack.PushNumber(n * 2)
		return 1, nil
	})

	nativeCtx := func(thread *heap.HThread, args []value.Value, this value.Value) any {
		return &nativeTestCtx{thread: thread, args: args, this: this}
	}

	result, err := HandleCall(h, thread, nil, protos, global, fn, value.Undefined(),
		[]value.Value{value.Int(21)}, false, nativeCtx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 42 {
		t.Fatalf("got %v, want 42", result)
	}
}

type nativeTestCtx struct {
	thread *heap.HThread
	args   []value.Value
	this   value.Value
}

func TestHandleCall_BoundFunctionMergesArgsAndThis(t *testing.T) {
	h, thread, protos, global := newTestHeap(t)
	var capturedThis value.Value
	var capturedArgs []value.Value
	target := heap.NewNativeFunction("f", 2, func(ctx any) (int, error) {
		c := ctx.(*nativeTestCtx)
		capturedThis = c.this
		capturedArgs = c.args
		return 0, nil
	})
	boundThisObj := heap.NewHObject(protos.Object, "Object")
	bound := heap.NewBoundFunction(target, value.Object(boundThisObj), []value.Value{value.Int(1)})

	nativeCtx := func(thread *heap.HThread, args []value.Value, this value.Value) any {
		return &nativeTestCtx{thread: thread, args: args, this: this}
	}

	_, err := HandleCall(h, thread, nil, protos, global, bound, value.Undefined(),
		[]value.Value{value.Int(2)}, false, nativeCtx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedThis.AsObject() != boundThisObj {
		t.Fatalf("bound this not propagated")
	}
	if len(capturedArgs) != 2 || capturedArgs[0].AsNumber() != 1 || capturedArgs[1].AsNumber() != 2 {
		t.Fatalf("bound args not merged: %v", capturedArgs)
	}
}

func TestHandleCall_NonStrictCoercesUndefinedThisToGlobal(t *testing.T) {
	h, thread, protos, global := newTestHeap(t)
	var capturedThis value.Value
	fn := heap.NewNativeFunction("f", 0, func(ctx any) (int, error) {
		capturedThis = ctx.(*nativeTestCtx).this
		return 0, nil
	})
	nativeCtx := func(thread *heap.HThread, args []value.Value, this value.Value) any {
		return &nativeTestCtx{thread: thread, args: args, this: this}
	}
	_, err := HandleCall(h, thread, nil, protos, global, fn, value.Undefined(), nil, false, nativeCtx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedThis.AsObject() != global {
		t.Fatalf("this not coerced to global object")
	}
}

func TestHandleCall_RejectsConstructOnNonConstructor(t *testing.T) {
	h, thread, protos, global := newTestHeap(t)
	fn := heap.NewNativeFunction("f", 0, func(ctx any) (int, error) { return 0, nil })
	nativeCtx := func(thread *heap.HThread, args []value.Value, this value.Value) any { return nil }
	_, err := HandleCall(h, thread, nil, protos, global, fn, value.Undefined(), nil, true, nativeCtx, false)
	if err == nil {
		t.Fatalf("expected TypeError calling non-constructor with new")
	}
}

func TestBuildArgumentsObject_NonStrictCalleeIsFunction(t *testing.T) {
	h := heap.NewDefault()
	objProto := heap.NewHObject(nil, "Object")
	fn := heap.NewNativeFunction("f", 2, nil)
	ao := BuildArgumentsObject(h, objProto, h.Intern, fn, []string{"a", "b"},
		[]value.Value{value.Int(1), value.Int(2)}, false, fn)

	d, ok := object.GetOwnProperty(ao, "0")
	if !ok || d.Value.AsNumber() != 1 {
		t.Fatalf("missing indexed arg 0")
	}
	d, ok = object.GetOwnProperty(ao, "length")
	if !ok || d.Value.AsNumber() != 2 {
		t.Fatalf("missing length")
	}
	d, ok = object.GetOwnProperty(ao, "callee")
	if !ok || d.Value.AsObject() != fn {
		t.Fatalf("callee should point at fn in non-strict mode")
	}
}

func TestBuildArgumentsObject_StrictCalleeThrows(t *testing.T) {
	h := heap.NewDefault()
	objProto := heap.NewHObject(nil, "Object")
	fn := heap.NewNativeFunction("f", 0, nil)
	thrower := heap.NewNativeFunction("thrower", 0, func(ctx any) (int, error) {
		return 0, errkind.New(errkind.PhaseCall, errkind.KindTypeError).
			Detail("'caller', 'callee' restricted").Build()
	})
	ao := BuildArgumentsObject(h, objProto, h.Intern, fn, nil, nil, true, thrower)
	d, ok := object.GetOwnProperty(ao, "callee")
	if !ok || !d.HasGet {
		t.Fatalf("callee should be an accessor in strict mode")
	}
	if d.Get != thrower || d.Set != thrower {
		t.Fatalf("callee getter/setter should both be the thrower")
	}
}

func TestActivationMarkChildren_VisitsFuncAndThis(t *testing.T) {
	fn := heap.NewNativeFunction("f", 0, nil)
	thisObj := heap.NewHObject(nil, "Object")
	act := &Activation{Func: fn, This: value.Object(thisObj)}
	var visited []heap.GCObject
	act.MarkChildren(func(o heap.GCObject) { visited = append(visited, o) })
	if len(visited) != 2 {
		t.Fatalf("expected 2 visited objects, got %d", len(visited))
	}
}

func TestCatcherMarkChildren_NilSafe(t *testing.T) {
	var c *Catcher
	c.MarkChildren(func(o heap.GCObject) { t.Fatalf("should not visit anything") })
}
