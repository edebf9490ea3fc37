package heap

import "github.com/wippyai/ecmacore/errkind"

// EmergencyFlags records the progressive allocation-failure escalation
// applied across retries: each retry after the first enables one more
// flag to avoid recursive allocation during collection.
type EmergencyFlags struct {
	IgnoreStringtableResize bool
	SuppressFinalizers      bool
	SuppressCompaction      bool
}

// emergencyFor returns the flags active on the given (0-based) retry
// attempt out of total retries.
func emergencyFor(attempt, total int) EmergencyFlags {
	if attempt < total-2 {
		return EmergencyFlags{}
	}
	f := EmergencyFlags{}
	if attempt >= total-2 {
		f.IgnoreStringtableResize = true
	}
	if attempt >= total-1 {
		f.SuppressFinalizers = true
		f.SuppressCompaction = true
	}
	return f
}

// AllocRaw allocates size bytes with no GC interaction at all.
func (h *Heap) AllocRaw(size int) []byte {
	return make([]byte, size)
}

// ReallocRaw grows or shrinks buf to newSize, preserving the overlap,
// with no GC interaction.
func (h *Heap) ReallocRaw(buf []byte, newSize int) []byte {
	out := make([]byte, newSize)
	copy(out, buf)
	return out
}

// FreeRaw is a no-op placeholder: Go's collector reclaims the backing
// array once unreferenced. Kept as a named operation so call sites read
// as a matched raw alloc/realloc/free triad.
func (h *Heap) FreeRaw(buf []byte) {}

// GCTrigger is injected by the vm/engine layer so heap's allocator can
// drive a mark-and-sweep pass without heap importing the packages that
// implement one (object/call/vm all depend on heap, not vice versa).
type GCTrigger func(h *Heap, emergency EmergencyFlags)

// AllocGC implements the heap-relative checked allocator: on
// allocation pressure (accounted allocation bytes past
// Config.GCTriggerBytes) it invokes trigger once, with the emergency
// flags emergencyFor gives the first attempt, resets the accounted byte
// count and allocates. It does not retry, so the escalated flags of
// later attempts are never used; it fails only when
// Config.AllocRetries is zero or negative.
func (h *Heap) AllocGC(size int, trigger GCTrigger) ([]byte, error) {
	h.allocBytes += int64(size)
	if h.allocBytes <= h.Config.GCTriggerBytes {
		return make([]byte, size), nil
	}

	retries := h.Config.AllocRetries
	for attempt := 0; attempt < retries; attempt++ {
		flags := emergencyFor(attempt, retries)
		trigger(h, flags)
		h.allocBytes = 0
		return make([]byte, size), nil
	}
	return nil, errkind.Alloc(errkind.PhaseAlloc, size)
}

// AllocChecked is the thread-relative allocator that throws (via the
// heap's longjmp state) on unrecoverable failure, instead of returning
// an error for the caller to propagate manually.
func (h *Heap) AllocChecked(size int, trigger GCTrigger) []byte {
	buf, err := h.AllocGC(size, trigger)
	if err != nil {
		if e, ok := err.(*errkind.Error); ok {
			errkind.Throw(e)
		}
		errkind.Throw(errkind.Alloc(errkind.PhaseAlloc, size))
	}
	return buf
}

// ReallocIndirect implements the indirect-realloc contract: it receives
// the storage location of the pointer being reallocated, not the
// pointer value, so a GC pass triggered by a retry
// may invalidate *slot and the caller must reload from *slot after
// return rather than trust a value captured before the call.
func (h *Heap) ReallocIndirect(slot *[]byte, newSize int, trigger GCTrigger) error {
	old := *slot
	*slot = nil // invalidate before any GC pass can observe a stale alias
	grown, err := h.AllocGC(newSize, trigger)
	if err != nil {
		*slot = old
		return err
	}
	copy(grown, old)
	*slot = grown
	return nil
}
