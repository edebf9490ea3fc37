package heap

import "testing"

func TestRefcount_DecrefFreesAtZero(t *testing.T) {
	h := NewDefault()
	child := NewHObject(nil, "Object")
	parent := NewHObject(nil, "Object")
	parent.Func = nil
	parent.Proto = child

	h.Objects.Insert(child)
	h.Objects.Insert(parent)
	h.Incref(child) // parent -> child

	h.Decref(parent)
	if h.Objects.Len() != 2 {
		t.Fatalf("decref below zero refcount should not free an untracked object, got len=%d", h.Objects.Len())
	}

	h.Decref(child)
	if _, ok := h.Objects.Get(Handle(child.GCHeader().Index())); ok {
		t.Fatalf("child should have been freed once refcount reached zero")
	}
}

func TestRefcount_FinalizerDefersFree(t *testing.T) {
	h := NewDefault()
	obj := NewHObject(nil, "Object")
	h.Objects.Insert(obj)
	h.Incref(obj)

	ran := false
	h.Finalizer = FinalizerHook{
		HasFinalizer: func(g GCObject) bool { return g == GCObject(obj) },
		Invoke: func(h *Heap, g GCObject) error {
			ran = true
			return nil
		},
	}

	h.Decref(obj)
	if _, ok := h.Objects.Get(Handle(obj.GCHeader().Index())); ok {
		t.Fatalf("object should be unlinked from the live table pending finalization")
	}
	if len(h.finalizeList) != 1 {
		t.Fatalf("expected object queued on finalize list, got %d", len(h.finalizeList))
	}

	h.runFinalizers()
	if !ran {
		t.Fatalf("finalizer was never invoked")
	}
	if !obj.GCHeader().Finalized() {
		t.Fatalf("object should be marked finalized after running")
	}
}
