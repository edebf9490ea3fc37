// Package heap implements the engine's process-wide allocator, string
// table, and collector state: the heap owns every HString/HObject/HBuffer/HFunction/HThread,
// tracks the non-string ones in a slot-indexed object table, interns strings in an
// open-addressed table, and reclaims memory through a hybrid of
// refcounting (prompt single-object cleanup) and mark-and-sweep (cycle
// collection).
//
// The object table (Table/handle bookkeeping) follows a resource
// handle table's usual shape: free-list slot reuse, O(1) create/drop,
// and an Observer hook, here retargeted from component lifecycle events
// to GC lifecycle events.
package heap
