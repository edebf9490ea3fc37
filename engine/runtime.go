// Package engine wires the independently testable packages (heap,
// object, call, vm) into one runnable unit: a heap, its built-in
// prototypes, a global object, and the garbage-collection/finalizer
// callbacks the heap package depends on but cannot construct itself
// without creating an import cycle.
package engine

import (
	"github.com/wippyai/ecmacore/api"
	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
	"github.com/wippyai/ecmacore/vm"
)

// Runtime is one embeddable engine instance: a heap, the built-in
// object/function/string/number/boolean prototypes threaded through
// call.Prototypes, a global object, and the bytecode machine that
// drives them.
type Runtime struct {
	Heap    *heap.Heap
	Machine *vm.Machine
	Global  *heap.HObject
	Protos  call.Prototypes
}

// New creates a fully wired Runtime with the given heap configuration,
// registering the global object and built-in prototypes as GC roots
// and installing the finalizer hook (a "_finalizer" own property,
// invoked through the machine's call path). The mark-and-sweep trigger
// is not installed into the heap: it is exposed through GCTrigger, for
// callers of heap.AllocGC/AllocChecked, which take a trigger per call.
func New(cfg heap.Config) *Runtime {
	h := heap.New(cfg)

	objectProto := heap.NewHObject(nil, "Object")
	functionProto := heap.NewHObject(objectProto, "Function")
	stringProto := heap.NewHObject(objectProto, "String")
	numberProto := heap.NewHObject(objectProto, "Number")
	booleanProto := heap.NewHObject(objectProto, "Boolean")
	global := heap.NewHObject(objectProto, "global")

	protos := call.Prototypes{
		Object:   objectProto,
		Function: functionProto,
		String:   stringProto,
		Number:   numberProto,
		Boolean:  booleanProto,
	}

	m := &vm.Machine{
		Heap:   h,
		Protos: protos,
		Global: global,
	}
	m.NativeCtx = api.NativeContextFactory(h, m, global)

	h.AddRoot(func(mark func(heap.GCObject)) {
		mark(global)
		mark(objectProto)
		mark(functionProto)
		mark(stringProto)
		mark(numberProto)
		mark(booleanProto)
	})

	h.Finalizer = heap.FinalizerHook{
		HasFinalizer: func(obj heap.GCObject) bool {
			o, ok := obj.(*heap.HObject)
			if !ok {
				return false
			}
			d, ok := object.GetOwnProperty(o, "_finalizer")
			return ok && d.Value.IsObject()
		},
		Invoke: func(h *heap.Heap, obj heap.GCObject) error {
			o := obj.(*heap.HObject)
			d, ok := object.GetOwnProperty(o, "_finalizer")
			if !ok {
				return nil
			}
			fn, _, finOK := vm.FuncFromValue(d.Value)
			if !finOK {
				return nil
			}
			_, err := call.HandleSafeCall(h, dummyThread(h, m), func() (value.Value, error) {
				return m.Call(fn, value.Object(o), nil)
			})
			if err != nil {
				Logger().Sugar().Warnw("finalizer failed", "error", err)
			}
			return err
		},
	}

	return &Runtime{Heap: h, Machine: m, Global: global, Protos: protos}
}

// gcTrigger adapts Runtime's heap.MarkAndSweep to the heap.GCTrigger
// callback shape the allocator invokes under pressure, logging each
// pass at debug level.
func (r *Runtime) gcTrigger(h *heap.Heap, emergency heap.EmergencyFlags) {
	if err := h.MarkAndSweep(emergency); err != nil {
		Logger().Sugar().Warnw("mark-and-sweep pass failed", "error", err)
		return
	}
	debugf("gc pass complete (emergency=%+v)", emergency)
}

// GCTrigger exposes the Runtime-bound trigger so callers needing the
// heap.GCTrigger function value directly (e.g. to pass to
// heap.AllocGC/AllocChecked) don't have to close over a Runtime
// themselves.
func (r *Runtime) GCTrigger() heap.GCTrigger { return r.gcTrigger }

// NewThread creates a fresh coroutine sharing this runtime's global
// object, wrapped for the vm package's Resume/Yield driving.
func (r *Runtime) NewThread() *vm.Thread {
	h := heap.NewHThread(r.Heap.Config.ValstackMax, r.Global)
	return vm.NewThread(r.Machine, h)
}

// dummyThread is the thread a finalizer's protected call runs on.
// Finalizers run outside any particular script activation, so a
// scratch thread sharing the runtime's global object is enough; it is
// discarded after the call.
func dummyThread(h *heap.Heap, m *vm.Machine) *heap.HThread {
	return heap.NewHThread(h.Config.ValstackMax, m.Global)
}
