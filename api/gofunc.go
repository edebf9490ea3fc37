package api

import (
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
	"github.com/wippyai/ecmacore/vm"
)

// GoFunc is the native calling convention a host function follows: it
// receives a Context whose arguments are read with ctx.Arg(i) and
// ctx.NumArgs() (they are not pushed onto the value stack) and whose
// `this` is retrievable via ctx.This(), and returns how many of its own
// pushed values form the result ({0: undefined, 1: top of stack,
// negative: RetCodeToKind error}). Values it pushed are popped once the
// call returns.
type GoFunc func(ctx *Context) (int, error)

// nativeCall is the concrete value every GoFunc is wrapped in before
// it reaches heap.NewNativeFunction, adapting the opaque `ctx any`
// heap.NativeFunc contract to a typed *Context plus the args/this
// HandleCall already resolved, by stashing them on the context's own
// scratch fields rather than pushing them onto the thread's shared
// value stack (which would corrupt whatever frame the caller left
// behind).
type nativeCall struct {
	ctx  *Context
	args []value.Value
	this value.Value
}

// NewGoFunction wraps fn as a heap.HFunction, installing the
// ctx-argument adapter this package expects from Machine.NativeCtx.
func NewGoFunction(name string, length int, fn GoFunc) *heap.HFunction {
	return heap.NewNativeFunction(name, length, func(raw any) (int, error) {
		nc := raw.(*nativeCall)
		nc.ctx.args = nc.args
		nc.ctx.this = nc.this
		return fn(nc.ctx)
	})
}

// NativeContextFactory builds the func(*heap.HThread, []value.Value,
// value.Value) any that Machine.NativeCtx needs: it bridges
// call.HandleCall's opaque per-call context to a *Context, caching one
// Context per thread (a thread never runs two native calls at once, so
// reusing the wrapper across calls is safe and avoids an allocation
// per call).
func NativeContextFactory(h *heap.Heap, m *vm.Machine, global *heap.HObject) func(*heap.HThread, []value.Value, value.Value) any {
	contexts := make(map[*heap.HThread]*Context)
	return func(thread *heap.HThread, args []value.Value, this value.Value) any {
		ctx, ok := contexts[thread]
		if !ok {
			ctx = NewContext(h, thread, m, global)
			contexts[thread] = ctx
		}
		return &nativeCall{ctx: ctx, args: args, this: this}
	}
}

// Arg returns the i'th argument, or undefined if fewer were supplied
// (ES5.1 §10.6's "missing arguments default to undefined").
func (c *Context) Arg(i int) value.Value {
	if i < 0 || i >= len(c.args) {
		return value.Undefined()
	}
	return c.args[i]
}

// NumArgs returns how many arguments the current native call received.
func (c *Context) NumArgs() int { return len(c.args) }

// This returns the current native call's `this` binding.
func (c *Context) This() value.Value { return c.this }
