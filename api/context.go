// Package api is the host-facing surface of this engine: a thin,
// stack-based layer (one Context per heap.HThread) over the value
// stack, property engine, and call machinery, plus the native function
// calling convention a host (or this engine's own built-ins) uses to
// expose Go functions to script code.
package api

import (
	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
	"github.com/wippyai/ecmacore/vm"
)

// Context wraps one thread's value stack with heap- and call-aware
// operations, grouped separately from plain stack manipulation
// (push/pop/dup/insert/remove, all inherited directly
// from *value.Stack: their stack-delta contract is documented on
// value.Stack itself). Embedding rather than re-wrapping each method
// keeps this layer from silently drifting out of sync with the stack
// package as it grows.
type Context struct {
	*value.Stack

	Heap    *heap.Heap
	Thread  *heap.HThread
	Global  *heap.HObject
	machine *vm.Machine

	// args/this hold the current native call's arguments and
	// this-binding; only meaningful inside a GoFunc invoked through
	// NewGoFunction, set by the Machine.NativeCtx adapter immediately
	// before each call (see gofunc.go).
	args []value.Value
	this value.Value

	// enumerators backs Enum/Next: live object.Enumerator state indexed
	// by the handle Enum returns. A heap.HObject has no general-purpose
	// opaque payload field to box this as a value-stack object the way
	// Duktape's internal enumerator object does, so it's kept here
	// instead; handles are small ints, not stack indices.
	enumerators []*object.Enumerator
}

// NewContext builds a Context over thread's own value stack.
func NewContext(h *heap.Heap, thread *heap.HThread, m *vm.Machine, global *heap.HObject) *Context {
	return &Context{Stack: thread.ValStack, Heap: h, Thread: thread, Global: global, machine: m}
}

// GetPropString reads the property named key off the object at objIdx
// and pushes the result. Push delta: +1.
func (c *Context) GetPropString(objIdx int, key string) error {
	base := c.Get(objIdx)
	obj, err := c.requireObject(base)
	if err != nil {
		return err
	}
	v, err := object.GetProp(c.machine, base, obj, key)
	if err != nil {
		return err
	}
	return c.PushPointerValue(v)
}

// PutPropString pops the value on top of the stack and assigns it to
// the property named key on the object at objIdx. Push delta: -1.
func (c *Context) PutPropString(objIdx int, key string, strict bool) error {
	base := c.Get(objIdx)
	obj, err := c.requireObject(base)
	if err != nil {
		return err
	}
	v, err := c.Require(-1)
	if err != nil {
		return err
	}
	if err := c.Pop(); err != nil {
		return err
	}
	return object.PutProp(c.machine, c.Heap.Intern, base, obj, key, v, strict)
}

// DelPropString deletes the property named key off the object at
// objIdx. Push delta: +1 (the boolean result).
func (c *Context) DelPropString(objIdx int, key string, strict bool) error {
	base := c.Get(objIdx)
	obj, err := c.requireObject(base)
	if err != nil {
		return err
	}
	ok, err := object.DelProp(obj, key, strict)
	if err != nil {
		return err
	}
	return c.PushBoolean(ok)
}

// HasPropString reports, via a pushed boolean, whether the object at
// objIdx has (own or inherited) a property named key. Push delta: +1.
func (c *Context) HasPropString(objIdx int, key string) error {
	base := c.Get(objIdx)
	obj, err := c.requireObject(base)
	if err != nil {
		return err
	}
	ok, err := object.HasProp(obj, key)
	if err != nil {
		return err
	}
	return c.PushBoolean(ok)
}

// DefPropFlags selects which facets of a property descriptor
// DefPropString applies, mirroring duk_def_prop's flag convention.
type DefPropFlags uint16

const (
	DefPropHaveValue DefPropFlags = 1 << iota
	DefPropHaveGetter
	DefPropHaveSetter
	DefPropHaveWritable
	DefPropHaveEnumerable
	DefPropHaveConfigurable
	DefPropWritable
	DefPropEnumerable
	DefPropConfigurable
)

// DefPropString implements def_prop (§6.1): defines or redefines the
// property named key on the object at objIdx through the validated
// [[DefineOwnProperty]] algorithm. Depending on flags, it pops a
// value, then a setter, then a getter off the top of the stack (in
// that order — the caller pushes them getter-first and value-last,
// mirroring duk_def_prop's argument order); whichever of HaveWritable/
// HaveEnumerable/HaveConfigurable is set takes its boolean from the
// matching Writable/Enumerable/Configurable flag bit. Push delta:
// -1 per of {value, setter, getter} actually present.
func (c *Context) DefPropString(objIdx int, key string, flags DefPropFlags) error {
	base := c.Get(objIdx)
	obj, err := c.requireObject(base)
	if err != nil {
		return err
	}

	var desc object.Desc
	if flags&DefPropHaveValue != 0 {
		v, err := c.Require(-1)
		if err != nil {
			return err
		}
		if err := c.Pop(); err != nil {
			return err
		}
		desc.Value, desc.HasValue = v, true
	}
	if flags&DefPropHaveSetter != 0 {
		fn, err := c.popFuncOrUndefined()
		if err != nil {
			return err
		}
		desc.Set, desc.HasSet = fn, true
	}
	if flags&DefPropHaveGetter != 0 {
		fn, err := c.popFuncOrUndefined()
		if err != nil {
			return err
		}
		desc.Get, desc.HasGet = fn, true
	}
	if flags&DefPropHaveWritable != 0 {
		desc.Writable, desc.HasWritable = flags&DefPropWritable != 0, true
	}
	if flags&DefPropHaveEnumerable != 0 {
		desc.Enumerable, desc.HasEnumerable = flags&DefPropEnumerable != 0, true
	}
	if flags&DefPropHaveConfigurable != 0 {
		desc.Configurable, desc.HasConfigurable = flags&DefPropConfigurable != 0, true
	}

	_, err = object.DefineOwnProperty(obj, c.Heap.Intern, key, desc, true)
	return err
}

func (c *Context) popFuncOrUndefined() (*heap.HFunction, error) {
	v, err := c.Require(-1)
	if err != nil {
		return nil, err
	}
	if err := c.Pop(); err != nil {
		return nil, err
	}
	if v.IsUndefined() {
		return nil, nil
	}
	fn, _, ok := vm.FuncFromValue(v)
	if !ok {
		return nil, errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("def_prop: getter/setter must be a function or undefined").Build()
	}
	return fn, nil
}

// Enum begins a for-in-style enumeration over the object at objIdx
// (§6.1's enum(flags)) and returns a handle Next consumes. Push
// delta: 0.
func (c *Context) Enum(objIdx int, flags object.EnumFlags) (int, error) {
	base := c.Get(objIdx)
	obj, err := c.requireObject(base)
	if err != nil {
		return 0, err
	}
	handle := len(c.enumerators)
	c.enumerators = append(c.enumerators, object.EnumeratorCreate(obj, flags))
	return handle, nil
}

// Next advances the enumeration handle returned by Enum (§6.1's
// next(enum_index, get_value)), pushing the next key (and, if
// getValue, its current value) and returning ok=true, or leaving the
// stack untouched and returning ok=false once exhausted. Push delta:
// +1 (key only) or +2 (key, value) when ok.
func (c *Context) Next(handle int, getValue bool) (ok bool, err error) {
	if handle < 0 || handle >= len(c.enumerators) {
		return false, errkind.New(errkind.PhaseAPI, errkind.KindAPIError).
			Detail("next: invalid enumerator handle %d", handle).Build()
	}
	key, val, ok, err := c.enumerators[handle].Next(c.machine, getValue)
	if err != nil || !ok {
		return ok, err
	}
	if err := c.PushPointerValue(value.String(c.Heap.Intern([]byte(key)))); err != nil {
		return false, err
	}
	if getValue {
		if err := c.PushPointerValue(val); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Call invokes the function at stack position -(nargs+1) with the
// following nargs values as arguments and `this` = undefined,
// replacing all of them with the single return value. Push delta:
// -nargs (func and args popped, one result pushed).
func (c *Context) Call(nargs int) error {
	return c.CallMethod(nargs, value.Undefined())
}

// CallMethod is Call with an explicit `this` binding, mirroring
// duk_call_method's stack layout.
func (c *Context) CallMethod(nargs int, this value.Value) error {
	top := c.GetTop()
	funcIdx := top - nargs - 1
	if funcIdx < 0 {
		return errkind.New(errkind.PhaseAPI, errkind.KindAPIError).
			Detail("call: not enough values on stack for %d args", nargs).Build()
	}
	fn, _, ok := vm.FuncFromValue(c.Get(funcIdx))
	if !ok {
		return errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("call: value is not callable").Build()
	}
	args := make([]value.Value, nargs)
	for i := 0; i < nargs; i++ {
		args[i] = c.Get(funcIdx + 1 + i)
	}
	result, err := c.machine.CallOn(c.Thread, fn, this, args, false)
	if err != nil {
		return err
	}
	if err := c.PopN(nargs + 1); err != nil {
		return err
	}
	return c.PushPointerValue(result)
}

// New invokes the function at stack position -(nargs+1) as a
// constructor (`new`), replacing it and its nargs arguments with the
// constructed object. Push delta: -nargs.
func (c *Context) New(nargs int) error {
	top := c.GetTop()
	funcIdx := top - nargs - 1
	if funcIdx < 0 {
		return errkind.New(errkind.PhaseAPI, errkind.KindAPIError).
			Detail("new: not enough values on stack for %d args", nargs).Build()
	}
	calleeVal := c.Get(funcIdx)
	fn, wrapper, ok := vm.FuncFromValue(calleeVal)
	if !ok {
		return errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("new: value is not callable").Build()
	}
	protoVal, _ := object.GetProp(c.machine, calleeVal, wrapper, "prototype")
	proto := c.machine.Protos.Object
	if protoVal.IsObject() {
		if po, ok := protoVal.AsObject().(*heap.HObject); ok {
			proto = po
		}
	}
	this := value.Object(heap.NewHObject(proto, "Object"))
	args := make([]value.Value, nargs)
	for i := 0; i < nargs; i++ {
		args[i] = c.Get(funcIdx + 1 + i)
	}
	result, err := c.machine.CallOn(c.Thread, fn, this, args, true)
	if err != nil {
		return err
	}
	if !result.IsObject() {
		result = this
	}
	if err := c.PopN(nargs + 1); err != nil {
		return err
	}
	return c.PushPointerValue(result)
}

// SafeCall runs fn as a protected call:
// any error it raises, including one recovered from an unexpected
// longjmp signal, comes back as a Go error rather than propagating a
// panic to this Context's caller.
func (c *Context) SafeCall(fn func() (value.Value, error)) (value.Value, error) {
	return call.HandleSafeCall(c.Heap, c.Thread, fn)
}

// ThrowTypeError raises a TypeError through the longjmp mechanism;
// callers that are not themselves inside a vm.Protect or HandleSafeCall
// boundary must not call this directly from a native function — return
// the error from the GoFunc instead (see RetCodeToKind).
func (c *Context) ThrowTypeError(format string, args ...any) {
	errkind.Throw(errkind.New(errkind.PhaseAPI, errkind.KindTypeError).Detail(format, args...).Build())
}

func (c *Context) requireObject(v value.Value) (*heap.HObject, error) {
	if !v.IsObject() {
		return nil, errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("expected an object, got %s", value.TypeOf(v)).Build()
	}
	obj, ok := v.AsObject().(*heap.HObject)
	if !ok {
		return nil, errkind.New(errkind.PhaseAPI, errkind.KindTypeError).
			Detail("value is not a plain object").Build()
	}
	return obj, nil
}
