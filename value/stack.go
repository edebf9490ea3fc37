package value

import (
	"fmt"
	"math"

	"github.com/wippyai/ecmacore/errkind"
)

// StringInterner is the minimal heap capability the stack needs to turn
// raw bytes into a script-visible string value, kept as an interface so
// this package never imports heap (heap imports value instead).
type StringInterner interface {
	Intern(b []byte) HeapString
	MaxStringBytes() int
}

// InvalidIndex is returned by NormalizeIndex when the given index is
// out of range.
const InvalidIndex = math.MinInt32

// defaultGrowStep bounds how many slots the value stack grows by at a
// time once past its initial allocation, avoiding a full reallocation
// on every single push.
const defaultGrowStep = 64

// Stack is one thread's value stack: a contiguous slice of
// Value with four cursors. bottom is the current frame's floor; top is
// one past the last live slot.
type Stack struct {
	slots    []Value
	bottom   int
	top      int
	maxSlots int // valstack_max, testable property #2
}

// NewStack allocates a value stack with the given hard limit on slot
// count (valstack_max, requires it be >= 1,000,000 for a
// conforming build; tests may use smaller limits).
func NewStack(maxSlots int) *Stack {
	return &Stack{slots: make([]Value, 0, 16), maxSlots: maxSlots}
}

// Base mirrors the C-API notion of valstack (index 0 of the backing
// slice is always the allocation base; bottom/top are relative to it).
func (s *Stack) Base() int { return 0 }

// Bottom returns the current frame's floor index.
func (s *Stack) Bottom() int { return s.bottom }

// Top returns the current one-past-last-live-slot index (get_top).
func (s *Stack) Top() int { return s.top - s.bottom }

// End returns the current allocation end relative to bottom.
func (s *Stack) End() int { return len(s.slots) - s.bottom }

// absoluteTop is s.top expressed as an absolute slice index.
func (s *Stack) absoluteTop() int { return s.top }

// SetBottom relocates the frame floor; used by call setup when pushing
// or popping an activation. Does not touch slot contents.
func (s *Stack) SetBottom(abs int) { s.bottom = abs }

// TruncateAbs drops every slot from abs to the current top, used when
// an activation returns to reclaim the register window it occupied.
// A no-op if abs is already at or past the current top.
func (s *Stack) TruncateAbs(abs int) {
	if abs < s.top {
		for i := abs; i < s.top; i++ {
			s.slots[i] = UnusedUndefined()
		}
		s.top = abs
	}
}

// AbsTop returns the absolute (non-frame-relative) top index, used by
// call machinery when snapshotting/restoring across activations.
func (s *Stack) AbsTop() int { return s.top }

// AbsBottom returns the absolute frame floor.
func (s *Stack) AbsBottom() int { return s.bottom }

// CheckStack reports whether n additional slots could be pushed without
// exceeding maxSlots, growing the backing array if needed but not
// failing the request.
func (s *Stack) CheckStack(n int) bool {
	want := s.top + n
	if want > s.maxSlots+s.bottom {
		return false
	}
	s.ensureCapacity(want)
	return true
}

// RequireStack grows the stack by n slots or returns a RangeError when
// the extension would exceed the hard limit.
func (s *Stack) RequireStack(n int) error {
	if !s.CheckStack(n) {
		return errkind.New(errkind.PhaseAPI, errkind.KindRangeError).
			Detail("value stack limit exceeded (requested %d slots)", n).Build()
	}
	return nil
}

// CheckStackTop reports whether the stack could hold topN slots total
// in the current frame (i.e. Top() could reach topN).
func (s *Stack) CheckStackTop(topN int) bool {
	return s.CheckStack(topN - s.Top())
}

// RequireStackTop is the checked form of CheckStackTop.
func (s *Stack) RequireStackTop(topN int) error {
	return s.RequireStack(topN - s.Top())
}

func (s *Stack) ensureCapacity(absNeeded int) {
	if absNeeded <= len(s.slots) {
		return
	}
	newCap := len(s.slots)
	if newCap == 0 {
		newCap = defaultGrowStep
	}
	for newCap < absNeeded {
		newCap += defaultGrowStep
		if newCap > s.maxSlots+s.bottom {
			newCap = s.maxSlots + s.bottom
		}
	}
	grown := make([]Value, newCap)
	copy(grown, s.slots)
	for i := len(s.slots); i < newCap; i++ {
		grown[i] = UnusedUndefined()
	}
	s.slots = grown
}

// NormalizeIndex maps a possibly-negative frame-relative index to a
// non-negative one, or returns InvalidIndex if out of range.
func (s *Stack) NormalizeIndex(idx int) int {
	n := s.Top()
	if idx < 0 {
		idx = n + idx
	}
	if idx < 0 || idx >= n {
		return InvalidIndex
	}
	return idx
}

// RequireNormalizeIndex is the checked form of NormalizeIndex.
func (s *Stack) RequireNormalizeIndex(idx int) (int, error) {
	n := s.NormalizeIndex(idx)
	if n == InvalidIndex {
		return 0, errkind.API("invalid stack index %d", idx)
	}
	return n, nil
}

// GetTop returns the number of live slots in the current frame.
func (s *Stack) GetTop() int { return s.Top() }

// SetTop grows (with undefined) or shrinks the current frame to n
// slots.
func (s *Stack) SetTop(n int) error {
	if n < 0 {
		return errkind.API("set_top: negative top %d", n)
	}
	cur := s.Top()
	if n == cur {
		return nil
	}
	if n > cur {
		if err := s.RequireStack(n - cur); err != nil {
			return err
		}
		for i := cur; i < n; i++ {
			s.slots[s.bottom+i] = Undefined()
		}
	} else {
		for i := n; i < cur; i++ {
			s.slots[s.bottom+i] = UnusedUndefined()
		}
	}
	s.top = s.bottom + n
	return nil
}

// at returns a pointer to the slot at frame-relative idx, which must
// already be validated non-negative and in range.
func (s *Stack) at(idx int) *Value { return &s.slots[s.bottom+idx] }

// Get returns the value at idx (may be negative), or undefined if out
// of range.
func (s *Stack) Get(idx int) Value {
	n := s.NormalizeIndex(idx)
	if n == InvalidIndex {
		return Undefined()
	}
	return *s.at(n)
}

// Require returns the value at idx, or an API error if out of range.
func (s *Stack) Require(idx int) (Value, error) {
	n := s.NormalizeIndex(idx)
	if n == InvalidIndex {
		return Value{}, errkind.API("index %d not present", idx)
	}
	return *s.at(n), nil
}

// Replace overwrites the slot at idx with v.
func (s *Stack) Replace(idx int, v Value) error {
	n := s.NormalizeIndex(idx)
	if n == InvalidIndex {
		return errkind.API("replace: index %d not present", idx)
	}
	*s.at(n) = v
	return nil
}

// --- push family ---

func (s *Stack) push(v Value) error {
	if err := s.RequireStack(1); err != nil {
		return err
	}
	s.slots[s.top] = v
	s.top++
	return nil
}

func (s *Stack) PushUndefined() error       { return s.push(Undefined()) }
func (s *Stack) PushNull() error            { return s.push(Null()) }
func (s *Stack) PushBoolean(b bool) error   { return s.push(Bool(b)) }
func (s *Stack) PushTrue() error            { return s.push(Bool(true)) }
func (s *Stack) PushFalse() error           { return s.push(Bool(false)) }
func (s *Stack) PushInt(i int) error        { return s.push(Int(i)) }
func (s *Stack) PushNumber(f float64) error { return s.push(Number(f)) }
func (s *Stack) PushNaN() error             { return s.push(Number(math.NaN())) }
func (s *Stack) PushObject(o HeapObject) error { return s.push(Object(o)) }
func (s *Stack) PushBuffer(b HeapBuffer) error { return s.push(Buffer(b)) }
func (s *Stack) PushThread(t HeapThread) error { return s.push(Thread(t)) }
func (s *Stack) PushPointerValue(v Value) error { return s.push(v) }

// PushLString pushes a string built from raw bytes, preserving any
// embedded NUL bytes.
func (s *Stack) PushLString(in StringInterner, b []byte) error {
	if len(b) > in.MaxStringBytes() {
		return errkind.New(errkind.PhaseAPI, errkind.KindRangeError).
			Detail("string length %d exceeds maximum %d", len(b), in.MaxStringBytes()).Build()
	}
	return s.push(String(in.Intern(b)))
}

// PushString pushes a NUL-terminated-style Go string as a script string.
func (s *Stack) PushString(in StringInterner, str string) error {
	return s.PushLString(in, []byte(str))
}

// PushSprintf formats and pushes a string, mirroring duk_push_sprintf.
func (s *Stack) PushSprintf(in StringInterner, format string, args ...any) error {
	return s.PushString(in, fmt.Sprintf(format, args...))
}

// --- pop family ---

// Pop removes the top value. Underflow (empty frame) is a programmer
// error in the source engine (it asserts); here it is a returned error
// so a misbehaving native function cannot corrupt the stack invariant.
func (s *Stack) Pop() error { return s.PopN(1) }

// PopN pops n values.
func (s *Stack) PopN(n int) error {
	if n < 0 {
		return errkind.New(errkind.PhaseAPI, errkind.KindRangeError).
			Detail("pop: negative count %d treated as underflow", n).Build()
	}
	if n > s.Top() {
		return errkind.New(errkind.PhaseAPI, errkind.KindRangeError).
			Detail("pop(%d): only %d values on stack", n, s.Top()).Build()
	}
	for i := 0; i < n; i++ {
		s.top--
		s.slots[s.top] = UnusedUndefined()
	}
	return nil
}

func (s *Stack) Pop2() error { return s.PopN(2) }
func (s *Stack) Pop3() error { return s.PopN(3) }

// Dup duplicates the value at idx onto the top of the stack.
func (s *Stack) Dup(idx int) error {
	v, err := s.Require(idx)
	if err != nil {
		return err
	}
	return s.push(v)
}

// Insert moves the top value to position idx, shifting values above it
// up by one.
func (s *Stack) Insert(idx int) error {
	n := s.NormalizeIndex(idx)
	if n == InvalidIndex {
		return errkind.API("insert: index out of range")
	}
	top := s.Top() - 1
	v := *s.at(top)
	for i := top; i > n; i-- {
		*s.at(i) = *s.at(i - 1)
	}
	*s.at(n) = v
	return nil
}

// Remove deletes the value at idx, shifting values above it down by one.
func (s *Stack) Remove(idx int) error {
	n := s.NormalizeIndex(idx)
	if n == InvalidIndex {
		return errkind.API("remove: index out of range")
	}
	top := s.Top()
	for i := n; i < top-1; i++ {
		*s.at(i) = *s.at(i + 1)
	}
	s.top--
	s.slots[s.top] = UnusedUndefined()
	return nil
}

// Each returns a snapshot slice of the live frame, bottom to top. Used
// by debuggers/tests; not part of the hot path.
func (s *Stack) Each() []Value {
	out := make([]Value, s.Top())
	copy(out, s.slots[s.bottom:s.top])
	return out
}
