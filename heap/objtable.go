package heap

import "sync"

// Handle is an opaque slot reference into a Table. Handle 0 is reserved
// and always invalid.
type Handle uint32

// GCObject is anything the collector can walk: every HString, HObject,
// HBuffer, HFunction, and HThread implements it.
type GCObject interface {
	GCHeader() *Header
	// MarkChildren invokes visit on every heap object this one directly
	// references. Strings never reference other heap objects.
	MarkChildren(visit func(GCObject))
}

// EventType enumerates object-table lifecycle notifications (heap
// object create/free) for GC tracing.
type EventType uint8

const (
	EventCreated EventType = iota
	EventFreed
)

// Event is a lifecycle notification about a heap object.
type Event struct {
	Object GCObject
	Handle Handle
	Type   EventType
}

// Observer receives heap object lifecycle notifications from a Table it
// is subscribed to; no engine package subscribes one.
type Observer interface {
	OnHeapEvent(Event)
}

// Table is the heap-wide object list: every live
// Object/Buffer/Thread/Function header (strings live only in the string
// table) is registered here so the
// collector can walk them without chasing raw next/prev pointers.
//
// Free-list slot reuse keeps handle churn O(1), and the Observer hook
// reports heap allocation/free events for GC tracing.
type Table struct {
	mu        sync.Mutex
	entries   []tableEntry
	freeList  []Handle
	observers []Observer
	closed    bool
}

type tableEntry struct {
	obj   GCObject
	valid bool
}

func newTable() *Table {
	return &Table{entries: make([]tableEntry, 0, 64)}
}

// Insert registers a newly allocated heap object and returns its
// handle. The object's Header.index is set so it can find its own slot
// again (used when unlinking during sweep/decref).
func (t *Table) Insert(obj GCObject) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var handle Handle
	if len(t.freeList) > 0 {
		handle = t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = tableEntry{obj: obj, valid: true}
	} else {
		t.entries = append(t.entries, tableEntry{obj: obj, valid: true})
		handle = Handle(len(t.entries))
	}
	obj.GCHeader().index = int(handle)

	t.notify(Event{Type: EventCreated, Handle: handle, Object: obj})
	return handle
}

// Remove unlinks handle from the table, freeing its slot for reuse.
func (t *Table) Remove(handle Handle) (GCObject, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(handle)
}

func (t *Table) removeLocked(handle Handle) (GCObject, bool) {
	if handle == 0 || int(handle) > len(t.entries) {
		return nil, false
	}
	e := &t.entries[handle-1]
	if !e.valid {
		return nil, false
	}
	obj := e.obj
	*e = tableEntry{}
	t.freeList = append(t.freeList, handle)
	t.notifyLocked(Event{Type: EventFreed, Handle: handle, Object: obj})
	return obj, true
}

// Get retrieves the object registered under handle.
func (t *Table) Get(handle Handle) (GCObject, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if handle == 0 || int(handle) > len(t.entries) {
		return nil, false
	}
	e := t.entries[handle-1]
	if !e.valid {
		return nil, false
	}
	return e.obj, true
}

// Each iterates every live object. fn returning false stops iteration
// early. Used by the mark-and-sweep sweep phase and by debug tooling;
// never call Insert/Remove from within fn.
func (t *Table) Each(fn func(Handle, GCObject) bool) {
	t.mu.Lock()
	snapshot := make([]tableEntry, len(t.entries))
	copy(snapshot, t.entries)
	t.mu.Unlock()

	for i, e := range snapshot {
		if e.valid {
			if !fn(Handle(i+1), e.obj) {
				return
			}
		}
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.valid {
			n++
		}
	}
	return n
}

// Subscribe registers o for lifecycle notifications.
func (t *Table) Subscribe(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnHeapEvent(e)
	}
}

func (t *Table) notifyLocked(e Event) {
	// Called with t.mu already held; observers must not re-enter Table.
	for _, o := range t.observers {
		o.OnHeapEvent(e)
	}
}

// Close releases every tracked object's table slot. It does not run
// finalizers — callers that need finalizer semantics should drive
// MarkAndSweep/RefzeroDrain before discarding a heap.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.freeList = nil
	t.closed = true
}
