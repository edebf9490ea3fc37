package heap

import (
	"fmt"

	"go.uber.org/multierr"
)

// Compactable is implemented by property-bearing heap objects whose
// storage can be shrunk in the emergency compaction pass.
type Compactable interface {
	GCObject
	Compact() error
}

// markRecursionCap bounds MarkChildren recursion depth; objects beyond the cap are flagged Temproot and revisited in a
// second linear pass, iterating until none remain.
const markRecursionCap = 1000

// MarkAndSweep runs the full nine-phase collection of under
// the heap-wide "running" guard, which suppresses refcount-triggered
// refzero processing and prevents re-entrant collection.
func (h *Heap) MarkAndSweep(emergency EmergencyFlags) error {
	if h.markAndSweepRunning {
		return nil
	}
	h.markAndSweepRunning = true
	defer func() { h.markAndSweepRunning = false }()

	h.resetReachability()

	// Phase 1: mark roots (heap thread, stash object, built-in strings
	// table, lj value slots — registered by the engine via AddRoot;
	// lj.errhandler is deliberately NOT marked here, per // step 1, because it must be kept alive via some live valstack).
	for _, root := range h.extraRoots {
		root(h.mark)
	}
	if e, ok := h.Longjmp.Value1.(GCObject); ok && e != nil {
		h.mark(e)
	}
	if e, ok := h.Longjmp.Value2.(GCObject); ok && e != nil {
		h.mark(e)
	}

	// Phase 2: refzero-list roots — objects queued for refcount
	// finalization may hold references otherwise-unreachable objects
	// need to survive through.
	for _, obj := range h.refzeroList {
		h.mark(obj)
	}

	// Phase 3's Temproot sweep: pick up anything flagged mid-mark and
	// continue until a full pass adds nothing new.
	h.drainTemproots()

	// Phase 4: mark-finalizable. A candidate's own Reachable flag is
	// deliberately left false here — only its children are marked — so
	// the sweep phase below can still tell "about to be collected but
	// finalizer-pending" apart from "genuinely still reachable". The
	// candidate set is tracked locally rather than via the header's
	// Finalizable flag, since that flag can go stale across passes once
	// a finalizer has already run once for an object.
	finalizable := make(map[GCObject]bool)
	h.Objects.Each(func(_ Handle, obj GCObject) bool {
		hdr := obj.GCHeader()
		if hdr.Reachable() || hdr.Finalized() {
			return true
		}
		if h.Finalizer.HasFinalizer != nil && h.Finalizer.HasFinalizer(obj) {
			hdr.SetFinalizable(true)
			finalizable[obj] = true
			obj.MarkChildren(func(child GCObject) {
				h.markDepth(child, 0)
			})
		}
		return true
	})
	h.drainTemproots()

	// Phase 5: refcount-finalize — decrement referenced objects'
	// refcounts for every unreachable object, without triggering
	// refzero (collection happens in sweep, not here).
	if h.Config.EnableRefcounting {
		h.Objects.Each(func(_ Handle, obj GCObject) bool {
			if !obj.GCHeader().Reachable() {
				obj.MarkChildren(func(child GCObject) {
					child.GCHeader().decref()
				})
			}
			return true
		})
	}

	// Phase 6: sweep.
	var toFree []Handle
	h.Objects.Each(func(hdl Handle, obj GCObject) bool {
		hdr := obj.GCHeader()
		switch {
		case hdr.Reachable():
			if hdr.Finalized() {
				// Rescued: survived a sweep after finalization ran.
				hdr.SetFinalized(false)
			}
		case finalizable[obj]:
			// Handled after the loop: moved to the finalize list.
		default:
			toFree = append(toFree, hdl)
		}
		return true
	})
	for _, hdl := range toFree {
		h.Objects.Remove(hdl)
	}
	for obj := range finalizable {
		obj.GCHeader().SetFinalizable(false)
		if hdl := Handle(obj.GCHeader().Index()); hdl != 0 {
			h.Objects.Remove(hdl)
		}
		h.finalizeList = append(h.finalizeList, obj)
	}
	h.sweepStrings()

	// Phase 7: emergency compaction.
	if emergency.SuppressCompaction == false && anyEmergency(emergency) {
		h.compactAll()
	}

	// Phase 8: stringtable resize, unless the emergency flag suppresses
	// it to avoid recursive allocation mid-collection.
	if !emergency.IgnoreStringtableResize {
		h.strings.maybeGrow()
		h.strings.maybeShrink()
	}

	// Phase 9: run finalizers.
	if !emergency.SuppressFinalizers {
		h.runFinalizers()
	}

	return nil
}

func anyEmergency(f EmergencyFlags) bool {
	return f.IgnoreStringtableResize || f.SuppressFinalizers || f.SuppressCompaction
}

func (h *Heap) resetReachability() {
	h.Objects.Each(func(_ Handle, obj GCObject) bool {
		hdr := obj.GCHeader()
		hdr.SetReachable(false)
		hdr.SetTemproot(false)
		return true
	})
}

func (h *Heap) mark(obj GCObject) {
	h.markDepth(obj, 0)
}

func (h *Heap) markDepth(obj GCObject, depth int) {
	if obj == nil {
		return
	}
	hdr := obj.GCHeader()
	if hdr.Reachable() {
		return
	}
	hdr.SetReachable(true)
	if depth >= markRecursionCap {
		hdr.SetTemproot(true)
		return
	}
	obj.MarkChildren(func(child GCObject) {
		h.markDepth(child, depth+1)
	})
}

// drainTemproots re-walks the heap picking up any object flagged
// Temproot by a capped mark, continuing until a pass finds none left.
func (h *Heap) drainTemproots() {
	for {
		found := false
		h.Objects.Each(func(_ Handle, obj GCObject) bool {
			hdr := obj.GCHeader()
			if hdr.Temproot() {
				hdr.SetTemproot(false)
				found = true
				obj.MarkChildren(func(child GCObject) {
					h.markDepth(child, 0)
				})
			}
			return true
		})
		if !found {
			return
		}
	}
}

// sweepStrings is the sweep's string phase; it frees nothing itself.
// Full mark-and-sweep reachability tracing for strings (chasing every
// live object's property keys and every thread's value stack) is
// approximated here by the refcounting half of the hybrid collector:
// with refcounting enabled, a string's table entry is removed as soon
// as Decref brings it to zero (see refcount.go); this sweep phase
// evicts no string-cache entries and, when refcounting is disabled,
// does not independently free strings (documented scope
// decision — see DESIGN.md).
func (h *Heap) sweepStrings() {
	if h.Config.EnableRefcounting {
		return
	}
}

func (h *Heap) compactAll() {
	var errs error
	h.Objects.Each(func(_ Handle, obj GCObject) bool {
		if c, ok := obj.(Compactable); ok {
			if err := safeCompact(c); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return true
	})
	if errs != nil && h.Finalizer.Invoke != nil {
		// Compaction failures are swallowed per spec ("failures are
		// ignored"); the aggregated error is discarded, not logged.
		_ = errs
	}
}

func safeCompact(c Compactable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errAsError(r)
		}
	}()
	return c.Compact()
}

func errAsError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("compaction panic: %v", r)
}

func (h *Heap) runFinalizers() {
	pending := h.finalizeList
	h.finalizeList = nil
	for _, obj := range pending {
		h.runOneFinalizer(obj)
	}
}

func (h *Heap) runOneFinalizer(obj GCObject) {
	defer func() {
		// A finalizer must never escape via panic;
		// recover and mark finalized regardless so the next GC frees it.
		recover()
	}()
	if h.Finalizer.Invoke != nil {
		_ = h.Finalizer.Invoke(h, obj)
	}
	obj.GCHeader().SetFinalized(true)
	h.Objects.Insert(obj)
}
