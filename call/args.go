package call

import (
	"strconv"

	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// BuildArgumentsObject constructs the Arguments object for a compiled
// function call (ES5.1 §10.6): an indexed own data property
// per actual argument, "length", and either a "callee" pointing back to
// fn (non-strict) or a thrower "caller"/"callee" pair (strict, per
// ES5.1 §10.6 step 14).
//
// The indexed properties are a snapshot of args at call time rather
// than a live view of the activation's registers: ES5.1's parameter map
// (which makes `arguments[0] = x` also update the named parameter
// variable, and vice versa) only applies to non-strict functions whose
// formal parameters are never aliased by a nested function, a case this
// implementation does not distinguish from the general one. Object.
// ArgumentsMap is left populated as a record of which name maps to
// which index for a vm that wants to implement the live link later;
// this function does not consult registers to do so itself.
func BuildArgumentsObject(h *heap.Heap, objectProto *heap.HObject, intern func([]byte) value.HeapString, fn *heap.HFunction, argNames []string, args []value.Value, strict bool, thrower *heap.HFunction) *heap.HObject {
	ao := object.NewArguments(objectProto, len(args))
	for i, v := range args {
		key := strconv.Itoa(i)
		object.DefinePropertyInternal(ao, intern([]byte(key)), v,
			heap.PropWritable|heap.PropEnumerable|heap.PropConfigurable)
		if i < len(argNames) {
			ao.ArgumentsMap[key] = i
		}
	}
	object.DefinePropertyInternal(ao, intern([]byte("length")), value.Int(len(args)),
		heap.PropWritable|heap.PropConfigurable)

	if strict {
		object.DefineAccessor(ao, intern([]byte("callee")), thrower, thrower, 0)
		object.DefineAccessor(ao, intern([]byte("caller")), thrower, thrower, 0)
	} else {
		object.DefinePropertyInternal(ao, intern([]byte("callee")), value.Object(fn),
			heap.PropWritable|heap.PropConfigurable)
	}
	return ao
}
