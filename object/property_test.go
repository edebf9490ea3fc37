package object

import (
	"testing"

	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

type noopInvoker struct{}

func (noopInvoker) Call(fn *heap.HFunction, this value.Value, args []value.Value) (value.Value, error) {
	return value.Undefined(), nil
}

func internFor(h *heap.Heap) func([]byte) value.HeapString {
	return func(b []byte) value.HeapString { return h.Intern(b) }
}

func TestPutGetDelProp(t *testing.T) {
	h := heap.NewDefault()
	intern := internFor(h)
	obj := heap.NewHObject(nil, "Object")

	if err := PutProp(noopInvoker{}, intern, value.Object(obj), obj, "x", value.Int(42), true); err != nil {
		t.Fatalf("PutProp: %v", err)
	}
	got, err := GetProp(noopInvoker{}, value.Object(obj), obj, "x")
	if err != nil || !got.IsNumber() || got.AsNumber() != 42 {
		t.Fatalf("GetProp after Put = %#v, %v", got, err)
	}

	has, err := HasProp(obj, "x")
	if err != nil || !has {
		t.Fatalf("HasProp = %v, %v", has, err)
	}

	ok, err := DelProp(obj, "x", true)
	if err != nil || !ok {
		t.Fatalf("DelProp = %v, %v", ok, err)
	}
	has, _ = HasProp(obj, "x")
	if has {
		t.Fatalf("property still present after delete")
	}
}

func TestPrototypeChainGet(t *testing.T) {
	h := heap.NewDefault()
	intern := internFor(h)
	proto := heap.NewHObject(nil, "Object")
	PutProp(noopInvoker{}, intern, value.Object(proto), proto, "inherited", value.Int(7), true)

	child := heap.NewHObject(proto, "Object")
	got, err := GetProp(noopInvoker{}, value.Object(child), child, "inherited")
	if err != nil || got.AsNumber() != 7 {
		t.Fatalf("inherited property not found: %#v, %v", got, err)
	}
}

func TestArrayLengthExotic(t *testing.T) {
	h := heap.NewDefault()
	intern := internFor(h)
	arr := NewArray(nil)

	PutProp(noopInvoker{}, intern, value.Object(arr), arr, "0", value.Int(1), true)
	PutProp(noopInvoker{}, intern, value.Object(arr), arr, "5", value.Int(6), true)
	if arr.ArrayLength != 6 {
		t.Fatalf("length should auto-extend to 6, got %d", arr.ArrayLength)
	}

	if err := PutProp(noopInvoker{}, intern, value.Object(arr), arr, "length", value.Int(2), true); err != nil {
		t.Fatalf("set length: %v", err)
	}
	if arr.ArrayLength != 2 {
		t.Fatalf("length should shrink to 2, got %d", arr.ArrayLength)
	}
	if arr.ArrayPresent[5] {
		t.Fatalf("index 5 should have been deleted by shrinking length")
	}
}

func TestDefineOwnProperty_NonConfigurableRejectsRedefine(t *testing.T) {
	h := heap.NewDefault()
	intern := internFor(h)
	obj := heap.NewHObject(nil, "Object")

	ok, err := DefineOwnProperty(obj, intern, "x", Desc{
		Value: value.Int(1), HasValue: true,
		Configurable: false, HasConfigurable: true,
	}, true)
	if err != nil || !ok {
		t.Fatalf("initial define: %v %v", ok, err)
	}

	_, err = DefineOwnProperty(obj, intern, "x", Desc{
		Configurable: true, HasConfigurable: true,
	}, true)
	if err == nil {
		t.Fatalf("expected TypeError redefining non-configurable property as configurable")
	}
}

func TestEnumeratorOrderArrayThenKeys(t *testing.T) {
	h := heap.NewDefault()
	intern := internFor(h)
	obj := heap.NewHObject(nil, "Object")
	PutProp(noopInvoker{}, intern, value.Object(obj), obj, "5", value.Int(0), true)
	PutProp(noopInvoker{}, intern, value.Object(obj), obj, "1", value.Int(0), true)
	PutProp(noopInvoker{}, intern, value.Object(obj), obj, "foo", value.Int(0), true)

	e := EnumeratorCreate(obj, 0)
	var order []string
	for {
		k, _, ok, _ := e.Next(noopInvoker{}, false)
		if !ok {
			break
		}
		order = append(order, k)
	}
	if len(order) != 3 || order[0] != "1" || order[1] != "5" || order[2] != "foo" {
		t.Fatalf("unexpected enumeration order: %v", order)
	}
}
