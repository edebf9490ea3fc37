package heap

import "testing"

func TestTable_InsertGetRemove(t *testing.T) {
	tbl := newTable()
	obj := newFakeObj(TypeObject)

	h := tbl.Insert(obj)
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	got, ok := tbl.Get(h)
	if !ok || got != obj {
		t.Fatal("Get did not return inserted object")
	}

	removed, ok := tbl.Remove(h)
	if !ok || removed != obj {
		t.Fatal("Remove did not return the object")
	}

	if _, ok := tbl.Get(h); ok {
		t.Fatal("Get should fail after Remove")
	}
}

func TestTable_FreeListReuse(t *testing.T) {
	tbl := newTable()
	a := tbl.Insert(newFakeObj(TypeString))
	tbl.Remove(a)
	b := tbl.Insert(newFakeObj(TypeString))
	if a != b {
		t.Fatalf("expected freed slot %d to be reused, got %d", a, b)
	}
}

func TestTable_ObserverNotified(t *testing.T) {
	tbl := newTable()
	obs := &recordingObserver{}
	tbl.Subscribe(obs)

	h := tbl.Insert(newFakeObj(TypeBuffer))
	tbl.Remove(h)

	if len(obs.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[1].Type != EventFreed {
		t.Fatalf("unexpected event sequence: %+v", obs.events)
	}
}

func TestTable_EachVisitsAllLive(t *testing.T) {
	tbl := newTable()
	tbl.Insert(newFakeObj(TypeObject))
	h2 := tbl.Insert(newFakeObj(TypeObject))
	tbl.Insert(newFakeObj(TypeObject))
	tbl.Remove(h2)

	count := 0
	tbl.Each(func(h Handle, obj GCObject) bool {
		count++
		return true
	})
	if count != 2 {
		t.Fatalf("Each visited %d objects, want 2", count)
	}
}
