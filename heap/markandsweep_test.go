package heap

import "testing"

// TestMarkAndSweep_CollectsUnreachableCycle makes two HObjects
// reference each other via Proto without
// going through value.Value, to exercise a pure Go-struct cycle the way
// two mutually-referencing script objects would.
func TestMarkAndSweep_CollectsUnreachableCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRefcounting = false
	h := New(cfg)

	a := NewHObject(nil, "Object")
	b := NewHObject(nil, "Object")
	a.Proto = b
	b.Proto = a
	h.Objects.Insert(a)
	h.Objects.Insert(b)

	if h.Objects.Len() != 2 {
		t.Fatalf("setup: want 2 live objects, got %d", h.Objects.Len())
	}

	if err := h.MarkAndSweep(EmergencyFlags{}); err != nil {
		t.Fatalf("MarkAndSweep: %v", err)
	}
	if h.Objects.Len() != 0 {
		t.Fatalf("unreachable cycle should be fully collected, got %d live", h.Objects.Len())
	}
}

func TestMarkAndSweep_KeepsRootedGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRefcounting = false
	h := New(cfg)

	root := NewHObject(nil, "Object")
	child := NewHObject(nil, "Object")
	root.Proto = child
	h.Objects.Insert(root)
	h.Objects.Insert(child)

	h.AddRoot(func(mark func(GCObject)) { mark(root) })

	if err := h.MarkAndSweep(EmergencyFlags{}); err != nil {
		t.Fatalf("MarkAndSweep: %v", err)
	}
	if h.Objects.Len() != 2 {
		t.Fatalf("rooted graph should survive, got %d live", h.Objects.Len())
	}
}

func TestMarkAndSweep_RunsFinalizerThenFrees(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRefcounting = false
	h := New(cfg)

	obj := NewHObject(nil, "Object")
	h.Objects.Insert(obj)

	calls := 0
	h.Finalizer = FinalizerHook{
		HasFinalizer: func(g GCObject) bool { return !g.GCHeader().Finalized() },
		Invoke: func(h *Heap, g GCObject) error {
			calls++
			return nil
		},
	}

	if err := h.MarkAndSweep(EmergencyFlags{}); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected finalizer to run once, got %d", calls)
	}
	if h.Objects.Len() != 1 {
		t.Fatalf("finalized-but-reinserted object should still be live after its first pass")
	}

	if err := h.MarkAndSweep(EmergencyFlags{}); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if h.Objects.Len() != 0 {
		t.Fatalf("object should be freed on the pass after finalization, got %d live", h.Objects.Len())
	}
}
