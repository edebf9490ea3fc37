package heap

import (
	"math/rand"

	"github.com/wippyai/ecmacore/errkind"
)

// Config is a small struct of tunables passed to the heap constructor,
// covering heap/GC policy.
type Config struct {
	// ValstackMax is the hard per-thread value-stack slot limit (a
	// conforming build uses >= 1e6).
	ValstackMax int
	// CallstackMax bounds call-stack depth independent of Go's own
	// goroutine stack.
	CallstackMax int
	// CRecursionMax bounds native-call re-entrancy depth.
	CRecursionMax int
	// MaxStringBytes bounds interned string length and concat/join
	// results.
	MaxStringBytes int
	// AllocRetries is K: alloc failure triggers GC and retries up to
	// this many times before failing for good.
	AllocRetries int
	// EnableRefcounting toggles the hybrid collector's refcounting half;
	// mark-and-sweep always runs regardless.
	EnableRefcounting bool
	// GCTriggerBytes is the allocation-byte-count threshold that
	// triggers a mark-and-sweep pass.
	GCTriggerBytes int64
	// Verbose is carried in the configuration only: no engine code reads
	// it, and thrown errors get no traceback augmentation.
	Verbose bool
}

// DefaultConfig returns the engine's stock tuning, matching the minimum
// conforming values for a production build.
func DefaultConfig() Config {
	return Config{
		ValstackMax:       1_000_000,
		CallstackMax:      10_000,
		CRecursionMax:     1_000,
		MaxStringBytes:    1 << 30,
		AllocRetries:      3,
		EnableRefcounting: true,
		GCTriggerBytes:    1 << 20,
		Verbose:           false,
	}
}

// FinalizerHook lets the heap invoke a script-visible _finalizer without
// depending on the call/property packages (those depend on heap, not
// the reverse). The engine package wires a real implementation at
// startup; tests may supply a stub.
type FinalizerHook struct {
	// HasFinalizer reports whether obj carries a _finalizer property.
	HasFinalizer func(obj GCObject) bool
	// Invoke calls obj's _finalizer in a protected call. Implementations
	// must never let a script error escape.
	Invoke func(h *Heap, obj GCObject) error
}

// Heap is the process-wide allocator and collector state.
type Heap struct {
	Config Config

	Objects *Table
	strings *stringTable
	cache   stringCache

	allocBytes int64 // bytes allocated since the last GC trigger reset

	refzeroList  []GCObject
	finalizeList []GCObject
	draining     bool

	markAndSweepRunning bool
	gcDisabledDepth     int // >0 suppresses GC (e.g. mid-compaction)

	callDepth int

	Longjmp errkind.State

	HashSeed uint32

	Finalizer FinalizerHook

	// Roots are extra GC roots the embedding engine registers: the heap
	// thread, the stash object, and the built-in string table. Kept as
	// a slice of closures so heap need not know their concrete types.
	extraRoots []func(mark func(GCObject))
}

// New creates a heap with the given configuration, fully initialized
// and ready for immediate use.
func New(cfg Config) *Heap {
	h := &Heap{
		Config:   cfg,
		Objects:  newTable(),
		strings:  newStringTable(),
		HashSeed: rand.Uint32(),
	}
	return h
}

// NewDefault creates a heap with DefaultConfig().
func NewDefault() *Heap {
	return New(DefaultConfig())
}

// Close frees everything unconditionally, ignoring refcounts.
func (h *Heap) Close() {
	h.Objects.Close()
	h.strings.clear()
	h.refzeroList = nil
	h.finalizeList = nil
}

// MaxStringBytes implements value.StringInterner.
func (h *Heap) MaxStringBytes() int { return h.Config.MaxStringBytes }

// AddRoot registers an additional GC root.
func (h *Heap) AddRoot(mark func(mark func(GCObject))) {
	h.extraRoots = append(h.extraRoots, mark)
}

// EnterCall increments the native-call recursion counter, failing with
// an internal error if Config.CRecursionMax is exceeded, unless
// ignoreReclimit is set (used when handling a "C stack exhausted" error
// itself, which must not itself trip the same limit).
func (h *Heap) EnterCall(ignoreReclimit bool) error {
	if !ignoreReclimit && h.callDepth >= h.Config.CRecursionMax {
		return errkind.New(errkind.PhaseCall, errkind.KindRangeError).
			Detail("native call recursion limit (%d) exceeded", h.Config.CRecursionMax).Build()
	}
	h.callDepth++
	return nil
}

// ExitCall decrements the native-call recursion counter.
func (h *Heap) ExitCall() {
	if h.callDepth > 0 {
		h.callDepth--
	}
}

// CallDepth reports the current native-call recursion depth.
func (h *Heap) CallDepth() int { return h.callDepth }
