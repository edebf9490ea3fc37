package vm

import (
	"github.com/wippyai/ecmacore/bytecode"
	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/env"
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// Machine is the bytecode interpreter loop: it dispatches
// bytecode.Instruction values against an Activation's register window,
// re-entering itself (via call.HandleCall) for OpCall/OpNewCall and
// acting as the object.Invoker that /object and /env use to run an
// accessor getter/setter or a DeclVar/PutVar-triggered call.
//
// throw/catch control flow is implemented as ordinary multi-value Go
// error returns rather than panic/recover: Go's error return already
// propagates cleanly through however many nested Run calls a throw
// needs to cross, so reaching for panic there would fight the
// language for no benefit. Yield is the opposite case — it must unwind
// an unbounded, non-adjacent number of nested Run frames back to the
// coroutine's Resume driver, which *is* the one thing ordinary error
// returns cannot express without threading a sentinel through every
// call site in between — so Yield alone uses the errkind.Signal
// panic/recover boundary in protect.go.
type Machine struct {
	Heap      *heap.Heap
	Protos    call.Prototypes
	Global    *heap.HObject
	NativeCtx func(*heap.HThread, []value.Value, value.Value) any

	// cur tracks the thread whose activation is currently executing, so
	// Call (which has no thread parameter per the object.Invoker
	// contract) knows where to run a re-entrant call.
	cur *heap.HThread
}

var _ call.Executor = (*Machine)(nil)
var _ object.Invoker = (*Machine)(nil)

// Call implements object.Invoker, letting /object and /env re-enter the
// call machinery (to run an accessor, or a function value read off a
// property) without importing /call or /vm themselves.
func (m *Machine) Call(fn *heap.HFunction, this value.Value, args []value.Value) (value.Value, error) {
	return m.CallOn(m.currentThread(), fn, this, args, false)
}

// CallOn is Call with an explicit thread, used by the coroutine driver
// and by the top-level embedding API where there may be more than one
// live thread.
func (m *Machine) CallOn(thread *heap.HThread, fn *heap.HFunction, this value.Value, args []value.Value, isConstruct bool) (value.Value, error) {
	return m.callOn(thread, fn, this, args, isConstruct, false)
}

// TailCall invokes fn from a tail position: HandleCall reuses the
// calling activation's register window and catch-stack slot in place
// (see HandleEcmaCallSetup) rather than pushing a fresh one, so
// unbounded script-level tail recursion doesn't grow thread.CallStack.
// Only meaningful for a compiled, non-construct callee; HandleCall
// falls back to an ordinary call setup for anything else.
func (m *Machine) TailCall(thread *heap.HThread, fn *heap.HFunction, this value.Value, args []value.Value) (value.Value, error) {
	return m.callOn(thread, fn, this, args, false, true)
}

func (m *Machine) callOn(thread *heap.HThread, fn *heap.HFunction, this value.Value, args []value.Value, isConstruct, tailReuse bool) (value.Value, error) {
	prev := m.cur
	m.cur = thread
	defer func() { m.cur = prev }()
	return call.HandleCall(m.Heap, thread, m, m.Protos, m.Global, fn, this, args, isConstruct, m.NativeCtx, tailReuse)
}

func (m *Machine) currentThread() *heap.HThread { return m.cur }

// Run implements call.Executor: fetch-decode-dispatch act's template
// until OpReturn, a local catcher absorbs a thrown error, or the
// activation propagates one to its own caller as a plain Go error.
func (m *Machine) Run(act *call.Activation) (value.Value, error) {
	thread := act.Thread
	savedBottom := thread.ValStack.AbsBottom()
	thread.ValStack.SetBottom(act.ValstackBottom)
	defer thread.ValStack.SetBottom(savedBottom)

	prevCur := m.cur
	m.cur = thread
	defer func() { m.cur = prevCur }()

	tmpl := act.Func.Template
	code := tmpl.Code

	for {
		if act.PC < 0 || act.PC >= len(code) {
			return value.Undefined(), nil
		}
		ins := bytecode.Instruction(code[act.PC])
		op := ins.Op()
		act.PC++

		result, ctrl, err := m.step(act, tmpl, ins, op)
		if err != nil {
			thrown := thrownValueOf(m, err)
			if target, ok := m.unwindTo(act, call.CompletionThrow, thrown, err, 0); ok {
				act.PC = target
				continue
			}
			return value.Value{}, err
		}
		switch ctrl {
		case ctrlReturn:
			if target, ok := m.unwindTo(act, call.CompletionReturn, result, nil, 0); ok {
				act.PC = target
				continue
			}
			return result, nil
		case ctrlContinue:
			continue
		}
	}
}

// thrownValueOf recovers the script-visible value a throw should bind
// into a catch(e) variable. OpThrow's error carries the original
// value.Value in errkind.Error.Thrown; an error synthesized by the
// engine itself (a TypeError from a failed property access, say) has
// no such value, so it's surfaced as a plain string of the error's
// message — this engine has no built-in Error class yet to construct
// instead.
func thrownValueOf(m *Machine, err error) value.Value {
	if ke, ok := err.(*errkind.Error); ok {
		if v, ok := ke.Thrown.(value.Value); ok {
			return v
		}
		return value.String(m.Heap.Intern([]byte(ke.Error())))
	}
	return value.String(m.Heap.Intern([]byte(err.Error())))
}

type control int

const (
	ctrlContinue control = iota
	ctrlReturn
)

// step executes a single instruction, returning the function's return
// value (only meaningful when ctrl == ctrlReturn) and any thrown error.
func (m *Machine) step(act *call.Activation, tmpl *heap.Template, ins bytecode.Instruction, op bytecode.Op) (value.Value, control, error) {
	thread := act.Thread
	reg := thread.ValStack
	intern := m.Heap.Intern

	switch op {
	case bytecode.OpNop:
		return value.Value{}, ctrlContinue, nil

	case bytecode.OpLoadReg:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), reg.Get(ins.B()))
	case bytecode.OpLoadK:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), constant(tmpl, ins.BC()))
	case bytecode.OpLoadUndef:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Undefined())
	case bytecode.OpLoadNull:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Null())
	case bytecode.OpLoadTrue:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Bool(true))
	case bytecode.OpLoadFalse:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Bool(false))

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		return value.Value{}, ctrlContinue, m.binaryArith(reg, tmpl, intern, ins, op)
	case bytecode.OpNeg:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Number(-value.ToNumber(operand(reg, tmpl, ins.B()))))
	case bytecode.OpNot:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Bool(!value.ToBoolean(operand(reg, tmpl, ins.B()))))

	case bytecode.OpEq, bytecode.OpStrictEq, bytecode.OpLt, bytecode.OpLe:
		return value.Value{}, ctrlContinue, m.compare(reg, tmpl, ins, op)

	case bytecode.OpGetProp:
		return value.Value{}, ctrlContinue, m.getProp(act, tmpl, ins)
	case bytecode.OpPutProp:
		return value.Value{}, ctrlContinue, m.putProp(act, tmpl, ins)
	case bytecode.OpDelProp:
		return value.Value{}, ctrlContinue, m.delProp(reg, tmpl, ins)

	case bytecode.OpGetVar:
		name := string(constant(tmpl, ins.BC()).AsString().Bytes())
		v, err := env.GetVar(m, act.LexEnv, name)
		if err != nil {
			return value.Value{}, ctrlContinue, err
		}
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), v)
	case bytecode.OpPutVar:
		name := string(constant(tmpl, ins.B()).AsString().Bytes())
		return value.Value{}, ctrlContinue, env.PutVar(m, act.LexEnv, intern, m.Global, name, reg.Get(ins.A()), act.Strict)
	case bytecode.OpDeclVar:
		name := string(constant(tmpl, ins.BC()).AsString().Bytes())
		return value.Value{}, ctrlContinue, env.DeclVar(intern, act.LexEnv, name, value.Undefined(), !act.Strict)

	case bytecode.OpNewObj:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Object(heap.NewHObject(m.Protos.Object, "Object")))
	case bytecode.OpNewArr:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Object(object.NewArray(m.Protos.Object)))
	case bytecode.OpClosure:
		return value.Value{}, ctrlContinue, m.closure(act, tmpl, ins)

	case bytecode.OpCall, bytecode.OpNewCall, bytecode.OpTailCall:
		return m.call(act, tmpl, ins, op == bytecode.OpNewCall, op == bytecode.OpTailCall)
	case bytecode.OpCallSetupProp:
		return value.Value{}, ctrlContinue, m.callSetupProp(act, tmpl, ins)
	case bytecode.OpCallSetupVar:
		name := string(constant(tmpl, ins.BC()).AsString().Bytes())
		v, this, err := env.GetVarWithThis(m, act.LexEnv, name)
		if err != nil {
			return value.Value{}, ctrlContinue, err
		}
		act.PendingThis = this
		act.HasPendingThis = true
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), v)

	case bytecode.OpDelVar:
		name := string(constant(tmpl, ins.BC()).AsString().Bytes())
		ok, err := env.DelVar(act.LexEnv, name)
		if err != nil {
			return value.Value{}, ctrlContinue, err
		}
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Bool(ok))

	case bytecode.OpReturn:
		return reg.Get(ins.A()), ctrlReturn, nil

	case bytecode.OpJump:
		act.PC += int(ins.ABC())
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpJumpIfFalse:
		if !value.ToBoolean(reg.Get(ins.A())) {
			act.PC += int(signedBC(ins))
		}
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpJumpIfTrue:
		if value.ToBoolean(reg.Get(ins.A())) {
			act.PC += int(signedBC(ins))
		}
		return value.Value{}, ctrlContinue, nil

	case bytecode.OpTryPush:
		thread.CatchStack = append(thread.CatchStack, &call.Catcher{
			Type: call.CatchTry, CatchTarget: act.PC + int(signedBC(ins)),
		})
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpTryPushFinally:
		thread.CatchStack = append(thread.CatchStack, &call.Catcher{
			Type: call.CatchFinally, FinallyTarget: act.PC + int(signedBC(ins)),
		})
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpPushLabel:
		thread.CatchStack = append(thread.CatchStack, &call.Catcher{
			Type: call.CatchLabel, Label: ins.A(), CatchTarget: act.PC + int(signedBC(ins)), FinallyTarget: -1,
		})
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpSetContinueTarget:
		if len(thread.CatchStack) > act.CatchBase {
			if c, ok := thread.CatchStack[len(thread.CatchStack)-1].(*call.Catcher); ok && c.Type == call.CatchLabel {
				c.FinallyTarget = act.PC + int(signedBC(ins))
			}
		}
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpTryPop:
		if len(thread.CatchStack) > act.CatchBase {
			thread.CatchStack = thread.CatchStack[:len(thread.CatchStack)-1]
		}
		return value.Value{}, ctrlContinue, nil
	case bytecode.OpThrow:
		return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindError).
			Detail("%v", reg.Get(ins.A())).Thrown(reg.Get(ins.A())).Build()
	case bytecode.OpLoadCaught:
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), act.PendingCatchValue)
	case bytecode.OpEndFin:
		kind := act.PendingCompletion
		val, cause, label := act.PendingValue, act.PendingErr, act.PendingLabel
		act.PendingCompletion = call.CompletionNone
		act.PendingValue = value.Value{}
		act.PendingErr = nil
		switch kind {
		case call.CompletionNone:
			return value.Value{}, ctrlContinue, nil
		case call.CompletionReturn:
			if target, ok := m.unwindTo(act, kind, val, nil, label); ok {
				act.PC = target
				return value.Value{}, ctrlContinue, nil
			}
			return val, ctrlReturn, nil
		case call.CompletionThrow:
			if target, ok := m.unwindTo(act, kind, val, cause, label); ok {
				act.PC = target
				return value.Value{}, ctrlContinue, nil
			}
			return value.Value{}, ctrlContinue, cause
		default: // CompletionBreak, CompletionContinue
			if target, ok := m.unwindTo(act, kind, val, nil, label); ok {
				act.PC = target
			}
			return value.Value{}, ctrlContinue, nil
		}
	case bytecode.OpBreak:
		label := ins.BC()
		if target, ok := m.unwindTo(act, call.CompletionBreak, value.Value{}, nil, label); ok {
			act.PC = target
			return value.Value{}, ctrlContinue, nil
		}
		return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindInternalError).
			Detail("break: no enclosing label %d", label).Build()
	case bytecode.OpContinue:
		label := ins.BC()
		if target, ok := m.unwindTo(act, call.CompletionContinue, value.Value{}, nil, label); ok {
			act.PC = target
			return value.Value{}, ctrlContinue, nil
		}
		return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindInternalError).
			Detail("continue: no enclosing label %d", label).Build()

	case bytecode.OpInitEnum:
		base := operand(reg, tmpl, ins.B())
		obj, err := requireObject(base)
		if err != nil {
			return value.Value{}, ctrlContinue, err
		}
		handle := len(act.Enumerators)
		act.Enumerators = append(act.Enumerators, object.EnumeratorCreate(obj, 0))
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Number(float64(handle)))
	case bytecode.OpNextEnum:
		handle := int(value.ToNumber(operand(reg, tmpl, ins.B())))
		if handle < 0 || handle >= len(act.Enumerators) {
			return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindInternalError).
				Detail("nextenum: invalid enumerator handle %d", handle).Build()
		}
		key, _, ok, err := act.Enumerators[handle].Next(m, false)
		if err != nil {
			return value.Value{}, ctrlContinue, err
		}
		if ok {
			if err := reg.Replace(ins.C(), value.String(intern([]byte(key)))); err != nil {
				return value.Value{}, ctrlContinue, err
			}
		}
		return value.Value{}, ctrlContinue, reg.Replace(ins.A(), value.Bool(ok))

	case bytecode.OpYield:
		if thread.PreventCount > 0 {
			return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindTypeError).
				Detail("cannot yield across a native call boundary").Build()
		}
		if len(thread.CallStack) > 1 {
			return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindTypeError).
				Detail("cannot yield from a nested call; only a coroutine's own top-level activation may yield").Build()
		}
		panic(&errkind.Signal{Type: errkind.LjYield, Value1: reg.Get(ins.A())})

	default:
		return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindInternalError).
			Detail("unimplemented opcode %v", op).Build()
	}
}

// signedBC treats the 18-bit BC field as a signed jump offset (register
// B/C operands proper never need the sign, only branch targets do).
func signedBC(ins bytecode.Instruction) int {
	v := ins.BC()
	if v&(1<<17) != 0 {
		v -= 1 << 18
	}
	return v
}

func constant(tmpl *heap.Template, idx int) value.Value {
	if bytecode.IsConst(idx) {
		idx = bytecode.ConstIndex(idx)
	}
	if idx < 0 || idx >= len(tmpl.Constants) {
		return value.Undefined()
	}
	return tmpl.Constants[idx]
}

// operand resolves a B/C field that may denote either a register or
// (per the >=256 convention) a constant-pool slot.
func operand(reg *value.Stack, tmpl *heap.Template, field int) value.Value {
	if bytecode.IsConst(field) {
		return constant(tmpl, field)
	}
	return reg.Get(field)
}

// unwindTo pops act's catcher stack looking for an entry that intercepts
// the given completion, parking whatever state the target block needs
// to resume it on the activation before returning its jump target:
//
//   - CompletionThrow reaching a CatchTry binds val into
//     act.PendingCatchValue (for OpLoadCaught) and stops there — the
//     catch block runs as ordinary code, not as another parked
//     completion.
//   - Any completion reaching a CatchFinally parks itself
//     (act.Pending*) for OpEndFin to resume once the finally body runs
//     to completion, and stops there even though the finally block
//     didn't ask for this particular completion kind: ES5.1 §12.14
//     runs every finally block on the way out regardless of why the
//     try block exited.
//   - CompletionBreak/CompletionContinue reaching a CatchLabel whose
//     Label matches val's target stops there, jumping to the break or
//     continue target; a label that doesn't match is popped and
//     skipped, since break/continue can unwind through enclosing
//     labels that aren't theirs.
//
// If the catcher stack empties back to act.CatchBase with nothing
// intercepting, the catch stack is left there and the caller propagates
// the completion to its own Go caller (HandleCall, for a throw or
// return; an unmatched break/continue is a compile-time error in any
// real front end, so reaching the bottom of the stack with one of those
// still live is handled the same way — propagated rather than panicked
// on, since this package never validates a hand-assembled program).
func (m *Machine) unwindTo(act *call.Activation, kind call.Completion, val value.Value, cause error, label int) (int, bool) {
	thread := act.Thread
	for len(thread.CatchStack) > act.CatchBase {
		top := thread.CatchStack[len(thread.CatchStack)-1]
		thread.CatchStack = thread.CatchStack[:len(thread.CatchStack)-1]
		c, ok := top.(*call.Catcher)
		if !ok {
			continue
		}
		switch c.Type {
		case call.CatchTry:
			if kind == call.CompletionThrow {
				act.PendingCatchValue = val
				return c.CatchTarget, true
			}
		case call.CatchFinally:
			act.PendingCompletion = kind
			act.PendingValue = val
			act.PendingErr = cause
			act.PendingLabel = label
			return c.FinallyTarget, true
		case call.CatchLabel:
			switch kind {
			case call.CompletionBreak:
				if c.Label == label {
					return c.CatchTarget, true
				}
			case call.CompletionContinue:
				if c.Label == label {
					if c.FinallyTarget < 0 {
						continue
					}
					return c.FinallyTarget, true
				}
			}
		}
	}
	return 0, false
}
