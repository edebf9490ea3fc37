package errkind

import (
	"fmt"
	"strings"
)

// Error is the structured error type used throughout the engine.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	// Path identifies the property/identifier path the error concerns,
	// e.g. ["user", "address", "zip"] for a nested property access.
	Path []string
	// Traceback holds a script call stack, most recent call first. Only
	// Builder.Traceback fills it; no engine code path calls that, so
	// engine-raised errors carry none, whatever Config.Verbose says.
	Traceback []Frame
	// Thrown is the original value.Value a script-level throw raised,
	// boxed as any so this package doesn't need to import /value. A
	// catcher binding the value into a catch(e) variable type-asserts
	// it back; errors synthesized by the engine itself (TypeError,
	// RangeErr, ...) leave this nil and a catch(e) sees the error's
	// message as a string instead.
	Thrown any
}

// Frame is one entry of a captured traceback.
type Frame struct {
	FuncName string
	Filename string
	Line     int
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by Phase and Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured, fluent error construction.
type Builder struct {
	err Error
}

// New starts building an Error for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Traceback(frames []Frame) *Builder {
	b.err.Traceback = frames
	return b
}

// Thrown records the original script value a throw raised, so a
// catch(e) binding can recover it verbatim instead of its string form.
func (b *Builder) Thrown(v any) *Builder {
	b.err.Thrown = v
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors mirroring the common shapes raised by the
// property engine, call machinery, and bytecode executor.

// TypeError builds a TypeError in the given phase.
func TypeError(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindTypeError).Detail(detail, args...).Build()
}

// RangeErr builds a RangeError in the given phase.
func RangeErr(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindRangeError).Detail(detail, args...).Build()
}

// ReferenceErr builds a ReferenceError in the given phase.
func ReferenceErr(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindReferenceError).Detail(detail, args...).Build()
}

// Internal builds an internal-only error (sanity-limit trips, invariant
// violations) that should never be script-catchable as a distinct class.
func Internal(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindInternalError).Detail(detail, args...).Build()
}

// Alloc builds an allocation-failure error.
func Alloc(phase Phase, size int) *Error {
	return New(phase, KindAllocError).Detail("failed to allocate %d bytes", size).Build()
}

// Assertion builds an assertion-failure error, used by debug-build
// invariant checks (stack discipline, heap header consistency).
func Assertion(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindAssertionError).Detail(detail, args...).Build()
}

// API builds a host-API misuse error (bad argument count, wrong type at
// a documented stack index, etc).
func API(detail string, args ...any) *Error {
	return New(PhaseAPI, KindAPIError).Detail(detail, args...).Build()
}
