package heap

// Incref bumps obj's reference count. A nil obj or a heap with
// refcounting disabled is a no-op, so callers can call Incref/Decref
// unconditionally at every value assignment site regardless of build
// configuration.
func (h *Heap) Incref(obj GCObject) {
	if obj == nil || !h.Config.EnableRefcounting {
		return
	}
	obj.GCHeader().incref()
}

// Decref drops obj's reference count, queuing it on the refzero list for
// collection once it reaches zero. Collection is processed
// through drainRefzero rather than inline so a long reference chain
// (e.g. a deeply nested array being dropped) unwinds iteratively instead
// of recursing once per freed object.
func (h *Heap) Decref(obj GCObject) {
	if obj == nil || !h.Config.EnableRefcounting {
		return
	}
	hdr := obj.GCHeader()
	if hdr.Refcount() == 0 {
		// Already untracked (e.g. never incref'd, or freed already);
		// avoid underflowing the counter.
		return
	}
	if hdr.decref() == 0 {
		h.refzeroList = append(h.refzeroList, obj)
		h.drainRefzero()
	}
}

// drainRefzero processes the refzero queue to a fixed point. Re-entrant
// calls (a child's decref during this same drain) just append to the
// queue the outer call is already walking.
func (h *Heap) drainRefzero() {
	if h.draining || h.markAndSweepRunning {
		return
	}
	h.draining = true
	defer func() { h.draining = false }()

	for len(h.refzeroList) > 0 {
		obj := h.refzeroList[0]
		h.refzeroList = h.refzeroList[1:]
		h.refzeroFree(obj)
	}
}

// refzeroFree reclaims a single zero-refcount object: referenced
// children are decref'd first (cascading further frees through the same
// queue), then the object itself is unlinked. An object carrying a
// _finalizer is instead deferred to the finalize-list so mark-and-sweep
// runs it with proper liveness of the rest of the heap around it:
// finalizers only ever run under a GC pass, even for a
// refcount-triggered collection.
func (h *Heap) refzeroFree(obj GCObject) {
	hdr := obj.GCHeader()
	if hdr.Finalized() {
		h.unlink(obj)
		return
	}
	if h.Finalizer.HasFinalizer != nil && h.Finalizer.HasFinalizer(obj) {
		hdr.SetFinalizable(true)
		if hdr.Index() != 0 {
			h.Objects.Remove(Handle(hdr.Index()))
		}
		h.finalizeList = append(h.finalizeList, obj)
		return
	}

	obj.MarkChildren(func(child GCObject) {
		h.Decref(child)
	})
	h.unlink(obj)
}

func (h *Heap) unlink(obj GCObject) {
	hdr := obj.GCHeader()
	if s, ok := obj.(*HString); ok {
		h.strings.remove(s)
		h.cache.Evict(s)
		return
	}
	if hdr.Index() != 0 {
		h.Objects.Remove(Handle(hdr.Index()))
	}
}
