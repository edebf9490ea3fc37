package api

import (
	"testing"

	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
	"github.com/wippyai/ecmacore/vm"
)

func newTestContext(t *testing.T) (*Context, *heap.Heap) {
	t.Helper()
	h := heap.NewDefault()
	objProto := heap.NewHObject(nil, "Object")
	funcProto := heap.NewHObject(objProto, "Function")
	global := heap.NewHObject(objProto, "global")
	thread := heap.NewHThread(1000, global)
	protos := call.Prototypes{Object: objProto, Function: funcProto}
	m := &vm.Machine{Heap: h, Protos: protos, Global: global}
	m.NativeCtx = NativeContextFactory(h, m, global)
	return NewContext(h, thread, m, global), h
}

func TestContext_PropertyRoundTrip(t *testing.T) {
	ctx, h := newTestContext(t)
	target := heap.NewHObject(nil, "Object")
	if err := ctx.PushObject(target); err != nil {
		t.Fatalf("PushObject: %v", err)
	}
	if err := ctx.PushString(h, "value"); err != nil {
		t.Fatalf("PushString: %v", err)
	}
	if err := ctx.PutPropString(0, "greeting", false); err != nil {
		t.Fatalf("PutPropString: %v", err)
	}
	if err := ctx.GetPropString(0, "greeting"); err != nil {
		t.Fatalf("GetPropString: %v", err)
	}
	got, err := ctx.Require(-1)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if !got.IsString() || string(got.AsString().Bytes()) != "value" {
		t.Fatalf("got %v, want string %q", got, "value")
	}
}

func TestContext_HasAndDelProp(t *testing.T) {
	ctx, h := newTestContext(t)
	target := heap.NewHObject(nil, "Object")
	if err := ctx.PushObject(target); err != nil {
		t.Fatalf("PushObject: %v", err)
	}
	if err := ctx.PushNumber(1); err != nil {
		t.Fatalf("PushNumber: %v", err)
	}
	if err := ctx.PutPropString(0, "x", false); err != nil {
		t.Fatalf("PutPropString: %v", err)
	}
	if err := ctx.HasPropString(0, "x"); err != nil {
		t.Fatalf("HasPropString: %v", err)
	}
	has, _ := ctx.Require(-1)
	if !has.AsBool() {
		t.Fatalf("expected HasPropString to report true")
	}
	_ = ctx.Pop()
	if err := ctx.DelPropString(0, "x", false); err != nil {
		t.Fatalf("DelPropString: %v", err)
	}
	deleted, _ := ctx.Require(-1)
	if !deleted.AsBool() {
		t.Fatalf("expected DelPropString to report true")
	}
	_ = h
}

func TestContext_CallInvokesGoFunction(t *testing.T) {
	ctx, _ := newTestContext(t)
	double := NewGoFunction("double", 1, func(c *Context) (int, error) {
		n := c.Arg(0).AsNumber()
		if err := c.PushNumber(n * 2); err != nil {
			return 0, err
		}
		return 1, nil
	})
	wrapper := heap.NewHObject(ctx.machine.Protos.Function, "Function")
	wrapper.Func = double

	if err := ctx.PushObject(wrapper); err != nil {
		t.Fatalf("PushObject: %v", err)
	}
	if err := ctx.PushNumber(21); err != nil {
		t.Fatalf("PushNumber: %v", err)
	}
	if err := ctx.Call(1); err != nil {
		t.Fatalf("Call: %v", err)
	}
	result, err := ctx.Require(-1)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 42 {
		t.Fatalf("result = %v, want 42", result)
	}
}

func TestContext_New_ConstructsObject(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctor := NewGoFunction("Point", 0, func(c *Context) (int, error) {
		this, ok := c.This().AsObject().(*heap.HObject)
		if !ok {
			c.ThrowTypeError("this is not an object")
		}
		if err := c.PushPointerValue(value.Object(this)); err != nil {
			return 0, err
		}
		if err := c.PushNumber(9); err != nil {
			return 0, err
		}
		// -2: the object pushed above, one slot below the "9" just pushed;
		// a native call shares the caller's frame rather than starting a
		// fresh one, so a negative (top-relative) index is what stays
		// correct regardless of how much the caller already pushed.
		if err := c.PutPropString(-2, "id", false); err != nil {
			return 0, err
		}
		return 0, nil
	})
	wrapper := heap.NewHObject(ctx.machine.Protos.Function, "Function")
	wrapper.Func = ctor

	if err := ctx.PushObject(wrapper); err != nil {
		t.Fatalf("PushObject: %v", err)
	}
	if err := ctx.New(0); err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := ctx.Require(-1)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if !result.IsObject() {
		t.Fatalf("New did not produce an object: %v", result)
	}
}

func TestContext_SafeCall_RecoversThrow(t *testing.T) {
	ctx, _ := newTestContext(t)
	_, err := ctx.SafeCall(func() (value.Value, error) {
		ctx.ThrowTypeError("boom")
		return value.Value{}, nil
	})
	if err == nil {
		t.Fatalf("expected SafeCall to surface the thrown error")
	}
}

func TestContext_RequireObject_RejectsPrimitive(t *testing.T) {
	ctx, _ := newTestContext(t)
	if err := ctx.PushNumber(1); err != nil {
		t.Fatalf("PushNumber: %v", err)
	}
	if err := ctx.GetPropString(0, "x"); err == nil {
		t.Fatalf("expected GetPropString on a non-object to fail")
	}
}
