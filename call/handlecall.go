package call

import (
	"github.com/wippyai/ecmacore/env"
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// maxCallDepth sanity-bounds recursive calls so a runaway script
// recursion dies with a RangeError instead of exhausting the Go stack.
const maxCallDepth = 10000

// Prototypes bundles the wrapper-object prototypes HandleCall needs for
// this-coercion (ES5.1 §10.4.3) and bound-function target resolution;
// the heap owns no notion of "the" Object/String/Number/Boolean
// prototype, so the owner of the global object passes these in.
type Prototypes struct {
	Object   *heap.HObject
	Function *heap.HObject
	String   *heap.HObject
	Number   *heap.HObject
	Boolean  *heap.HObject
}

// Executor runs a compiled function's activation to completion (or
// until it throws). The concrete implementation is /vm's bytecode
// loop; HandleCall depends only on this interface so /call need not
// import /vm (which imports /call for Activation/HandleEcmaCallSetup),
// breaking what would otherwise be a cycle.
type Executor interface {
	Run(act *Activation) (value.Value, error)
}

// HandleCall implements the unified call path of for both
// native and compiled functions:
//
//  1. recursion depth check
//  2. resolve a bound-function chain to its real target, prepending
//     bound arguments and adopting the innermost bound `this`
//  3. reject calling a non-callable
//  4. this-coercion per ES5.1 §10.4.3 (strict: unchanged; non-strict:
//     undefined/null -> global object, primitive -> ToObject)
//  5. constructor-call validation (IsCtor) when isConstruct is set
//  6. branch native vs compiled
//  7. native: invoke fn.Native(ctx) directly, translate a negative
//     return code via errkind.RetCodeToKind
//  8. compiled: set up a fresh Activation (HandleEcmaCallSetup) and
//     hand it to exec.Run
//  9. native: once the result is read, the values the callee pushed
//     are popped, restoring the value stack top it was entered with
//  10. on a thrown *errkind.Signal, it propagates to the caller
//     unchanged (the caller's own vm.Protect boundary is the next
//     catch point) rather than being swallowed here
//  11. global object as `this` resolution is deferred to the caller
//     supplying globalThis via Prototypes/global (step 4 above)
//  12. PreventCount is incremented for the duration of a native call
//     (native code cannot itself be suspended mid-call by a yield)
//  13. PreventCount/call depth bookkeeping is always unwound via
//     defer, even when the callee panics with a longjmp Signal
// tailReuse asks the compiled-function branch to reuse the caller's own
// activation in place (HandleEcmaCallSetup's tailReuse path) instead of
// pushing a fresh one; ignored for a native callee or a constructor
// call, where reuse doesn't apply.
func HandleCall(h *heap.Heap, thread *heap.HThread, exec Executor, protos Prototypes, global *heap.HObject, fn *heap.HFunction, this value.Value, args []value.Value, isConstruct bool, nativeCtx func(*heap.HThread, []value.Value, value.Value) any, tailReuse bool) (value.Value, error) {
	if len(thread.CallStack) >= maxCallDepth {
		return value.Value{}, errkind.New(errkind.PhaseCall, errkind.KindRangeError).
			Detail("maximum call stack size exceeded").Build()
	}

	target, boundArgs, boundThis, ok := heap.ResolveBoundTarget(fn)
	if !ok {
		return value.Value{}, errkind.New(errkind.PhaseCall, errkind.KindInternalError).
			Detail("bound function chain exceeds sanity bound").Build()
	}
	if target.Kind == heap.FuncBound {
		// unreachable: ResolveBoundTarget always returns a non-bound
		// target when ok is true, guarded here for defense in depth.
		return value.Value{}, errkind.New(errkind.PhaseCall, errkind.KindInternalError).
			Detail("bound resolution did not reach a callable").Build()
	}
	if target != fn {
		args = append(append([]value.Value(nil), boundArgs...), args...)
		this = boundThis
	}

	if isConstruct && !target.IsCtor {
		return value.Value{}, errkind.New(errkind.PhaseCall, errkind.KindTypeError).
			Detail("%s is not a constructor", target.Name).Build()
	}

	if !target.Strict && !isConstruct {
		this = coerceThis(protos, global, this)
	}

	switch target.Kind {
	case heap.FuncNative:
		thread.PreventCount++
		defer func() { thread.PreventCount-- }()
		if target.Native == nil {
			return value.Value{}, errkind.New(errkind.PhaseCall, errkind.KindInternalError).
				Detail("native function %s has no entry point", target.Name).Build()
		}
		ctx := nativeCtx(thread, args, this)
		top := thread.ValStack.Top()
		n, err := target.Native(ctx)
		result := value.Undefined()
		if err == nil && n > 0 {
			result = thread.ValStack.Get(-1)
		}
		thread.ValStack.SetTop(top)
		if err != nil {
			if kind, ok := errkind.RetCodeToKind(retCodeOf(err)); ok {
				return value.Value{}, errkind.New(errkind.PhaseCall, kind).Cause(err).Build()
			}
			return value.Value{}, err
		}
		if kind, ok := errkind.RetCodeToKind(n); ok {
			return value.Value{}, errkind.New(errkind.PhaseCall, kind).
				Detail("native function %s returned error code %d", target.Name, n).Build()
		}
		return result, nil

	case heap.FuncCompiled:
		act, err := HandleEcmaCallSetup(h, thread, protos, target, this, args, isConstruct, tailReuse && !isConstruct)
		if err != nil {
			return value.Value{}, err
		}
		return RunActivation(thread, act, exec)

	default:
		return value.Value{}, errkind.New(errkind.PhaseCall, errkind.KindTypeError).
			Detail("value is not callable").Build()
	}
}

// RunActivation drives exec over act, unlinking act from thread's call
// stack and reclaiming its register window once it finishes — unless
// it finishes by yielding, in which case act's state (PC, registers,
// catch stack) must survive so a later Thread.Resume (see /vm) can
// hand the very same act back to exec.Run and pick up where it left
// off. A recover()-then-repanic, rather than a plain deferred cleanup,
// is what lets a yield distinguish itself from an ordinary return or
// thrown error: by the time this defer runs, "did fn panic, and with
// what" is the only way left to tell them apart.
func RunActivation(thread *heap.HThread, act *Activation, exec Executor) (result value.Value, err error) {
	defer func() {
		r := recover()
		if r != nil {
			if sig, ok := r.(*errkind.Signal); ok && sig.Type == errkind.LjYield {
				panic(r)
			}
			unlinkActivation(thread, act)
			panic(r)
		}
		unlinkActivation(thread, act)
	}()
	return exec.Run(act)
}

func unlinkActivation(thread *heap.HThread, act *Activation) {
	if n := len(thread.CallStack); n > 0 && thread.CallStack[n-1] == act {
		thread.CallStack = thread.CallStack[:n-1]
	}
	thread.CatchStack = thread.CatchStack[:act.CatchBase]
	thread.ValStack.TruncateAbs(act.ValstackBottom)
}

// retCodeOf extracts a native function's sentinel return code from an
// error it returned, if any: an error with a RetCode() int method has
// that code translated via errkind.RetCodeToKind; any other error
// passes through HandleCall unchanged.
func retCodeOf(err error) int {
	type coder interface{ RetCode() int }
	if c, ok := err.(coder); ok {
		return c.RetCode()
	}
	return 0
}

// coerceThis implements ES5.1 §10.4.3's this-binding adjustment for a
// non-strict, non-constructor call: undefined/null becomes the global
// object, a primitive is boxed via ToObject, an object passes through
// unchanged.
func coerceThis(protos Prototypes, global *heap.HObject, this value.Value) value.Value {
	if this.IsNullOrUndefined() {
		return value.Object(global)
	}
	if this.IsObject() {
		return this
	}
	switch {
	case this.IsString():
		return value.Object(object.NewString(protos.String, this))
	case this.IsNumber():
		return value.Object(object.NewNumber(protos.Number, this))
	case this.IsBoolean():
		return value.Object(object.NewBoolean(protos.Boolean, this))
	default:
		return this
	}
}

// HandleEcmaCallSetup implements call setup for a compiled function:
// environment creation (always a fresh open declarative record tied to
// the callee's register window, plus an Arguments object bound into
// that record's "arguments" slot unless "arguments" is already a formal
// parameter or var name of the template), register-stack
// allocation/clamp, and activation construction. When tailReuse is set
// and the thread's top call-stack entry is an Activation, that
// activation is discarded and its register window reused for the
// callee, implementing tail-call optimization: thread.CallStack does
// not grow for a tail-recursive script function, although /vm's own Go
// recursion still does.
func HandleEcmaCallSetup(h *heap.Heap, thread *heap.HThread, protos Prototypes, fn *heap.HFunction, this value.Value, args []value.Value, isConstruct bool, tailReuse bool) (*Activation, error) {
	tmpl := fn.Template
	if tmpl == nil {
		return nil, errkind.New(errkind.PhaseCall, errkind.KindInternalError).
			Detail("compiled function has no template").Build()
	}

	// A true tail call reuses the currently-executing activation's slot
	// on thread.CallStack instead of pushing a new one: its register
	// window and any catchers it still holds are discarded first (a
	// tail position can't be inside a try the callee needs to unwind
	// through), so the chain of activations visible to the script
	// (thread.CallStack, Arguments.caller-style introspection, stack
	// traces) never grows past this frame no matter how deep the
	// recursion runs.
	var reuse *Activation
	base := thread.ValStack.AbsTop()
	if tailReuse && len(thread.CallStack) > 0 {
		if top, ok := thread.CallStack[len(thread.CallStack)-1].(*Activation); ok {
			reuse = top
			thread.ValStack.TruncateAbs(reuse.ValstackBottom)
			thread.CatchStack = thread.CatchStack[:reuse.CatchBase]
			base = reuse.ValstackBottom
		}
	}
	if err := thread.ValStack.RequireStack(tmpl.NumRegs); err != nil {
		return nil, err
	}
	for i := 0; i < tmpl.NumRegs; i++ {
		v := value.Undefined()
		if i < len(args) && i < tmpl.NumArgs {
			v = args[i]
		}
		thread.ValStack.PushPointerValue(v)
	}

	varmap := make(map[string]int, len(tmpl.ArgNames)+len(tmpl.VarNames))
	for i, name := range tmpl.ArgNames {
		varmap[name] = i
	}
	for i, name := range tmpl.VarNames {
		if _, exists := varmap[name]; !exists {
			varmap[name] = len(tmpl.ArgNames) + i
		}
	}

	// RegBase is 0, not base: register access through an open record
	// goes through Stack.Get/Replace, which are frame-relative to
	// whatever Stack.bottom currently is. The contract this activation
	// relies on is that /vm's executor calls
	// thread.ValStack.SetBottom(act.ValstackBottom) before running or
	// resuming it (and restores the caller's bottom afterward), so
	// register 0 of this frame is always frame-relative index 0 while
	// it is the active frame.
	bindingsObj := heap.NewHObject(nil, "Object")
	bindingsObj.EnvParent = fn.Varenv
	varEnv := env.NewOpenDeclarative(bindingsObj, parentRecord(fn.Varenv), thread, 0, varmap)

	if _, hasArgsParam := varmap["arguments"]; !hasArgsParam {
		thrower := heap.NewNativeFunction("thrower", 0, func(any) (int, error) {
			return 0, errkind.New(errkind.PhaseCall, errkind.KindTypeError).
				Detail("caller/callee are not accessible on a strict arguments object").Build()
		})
		ao := BuildArgumentsObject(h, protos.Object, h.Intern, fn, tmpl.ArgNames, args, tmpl.Strict, thrower)
		object.DefinePropertyInternal(bindingsObj, h.Intern([]byte("arguments")),
			value.Object(ao), heap.PropWritable|heap.PropEnumerable)
	}

	act := &Activation{
		Func:           fn,
		Thread:         thread,
		PC:             0,
		ValstackBottom: base,
		NRegs:          tmpl.NumRegs,
		VarEnv:         varEnv,
		LexEnv:         varEnv,
		This:           this,
		IsConstruct:    isConstruct,
		Strict:         tmpl.Strict,
		CatchBase:      len(thread.CatchStack),
		Tail:           reuse != nil,
	}
	if reuse != nil {
		*reuse = *act
		return reuse, nil
	}
	thread.CallStack = append(thread.CallStack, act)
	return act, nil
}

// parentRecord rebuilds the env.Record chain for a closure's captured
// lexical scope by walking the HObject.EnvParent links stored when each
// enclosing activation was set up (heap cannot store *env.Record
// directly without an import cycle, since /env imports /heap). Returns
// nil once the chain reaches a function with no enclosing scope (a
// top-level program template).
func parentRecord(bindings *heap.HObject) *env.Record {
	if bindings == nil {
		return nil
	}
	return env.NewDeclarative(bindings, parentRecord(bindings.EnvParent))
}

// HandleSafeCall implements protected variant (the Go
// analogue of Duktape's duk_handle_safecall): it never lets a thrown
// *errkind.Signal propagate past it. Any error a nested call raises
// (property access, operator coercion, user code throwing, a recovered
// longjmp Signal) comes back as a plain Go error instead of a panic.
func HandleSafeCall(h *heap.Heap, thread *heap.HThread, fn func() (value.Value, error)) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(*errkind.Signal)
			if !ok {
				panic(r)
			}
			if sig.Type == errkind.LjThrow {
				if e, ok := sig.Value1.(error); ok {
					err = e
					return
				}
				err = errkind.New(errkind.PhaseCall, errkind.KindUncaughtError).
					Detail("thrown value is not an Error").Build()
				return
			}
			err = errkind.New(errkind.PhaseCall, errkind.KindInternalError).
				Detail("unexpected longjmp signal %s escaped safecall", sig.Type).Build()
		}
	}()
	return fn()
}
