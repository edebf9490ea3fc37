package compiler

import (
	"fmt"

	"github.com/wippyai/ecmacore/bytecode"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// fixupKind distinguishes how a deferred jump target is encoded once
// its label resolves to a concrete PC.
type fixupKind int

const (
	fixupABC fixupKind = iota // OpJump: full 26-bit signed field
	fixupBC                   // OpJumpIfFalse/True/OpTryPush: 18-bit signed field, A preserved
)

type fixup struct {
	pc    int
	label string
	kind  fixupKind
	a     int // preserved A operand for fixupBC
}

// Builder assembles one heap.Template, register by explicit index (the
// same convention the executor's own opcode tests use: the caller picks
// register numbers, the builder only resolves jump targets and dedupes
// constants) plus named forward/backward labels so branch offsets never
// have to be counted by hand.
type Builder struct {
	name       string
	argNames   []string
	varNames   []string
	numRegs    int
	strict     bool
	isFunction bool

	code   []uint32
	consts []value.Value
	funcs  []*heap.Template

	labels map[string]int
	fixups []fixup

	lines *bytecode.PC2LineBuilder
	line  int
}

// NewBuilder starts assembling a template named name. isFunction should
// be false only for a top-level program template.
func NewBuilder(name string, isFunction bool) *Builder {
	return &Builder{
		name:       name,
		isFunction: isFunction,
		labels:     make(map[string]int),
		lines:      bytecode.NewPC2LineBuilder(),
	}
}

// Strict marks the assembled template as a strict-mode function body
// (ES5.1 §10.1.1).
func (b *Builder) Strict(strict bool) *Builder { b.strict = strict; return b }

// Arg declares the next formal parameter, returning the register it is
// bound to (arguments occupy the low registers, per env.Record's
// RegBase contract — see call.HandleEcmaCallSetup's varmap).
func (b *Builder) Arg(name string) int {
	reg := len(b.argNames)
	b.argNames = append(b.argNames, name)
	b.touchReg(reg)
	return reg
}

// Var declares a hoisted local variable, returning the register it is
// bound to (immediately after every declared argument's register).
func (b *Builder) Var(name string) int {
	reg := len(b.argNames) + len(b.varNames)
	b.varNames = append(b.varNames, name)
	b.touchReg(reg)
	return reg
}

// Reg reserves and returns a fresh scratch register beyond every
// declared argument/variable and every register previously returned by
// Reg, Arg, or Var.
func (b *Builder) Reg() int {
	reg := b.numRegs
	b.touchReg(reg)
	return reg
}

func (b *Builder) touchReg(reg int) {
	if reg+1 > b.numRegs {
		b.numRegs = reg + 1
	}
}

// Const adds v to the constant pool, reusing an existing identical
// entry when one exists (SameValueZero, the comparison ToString/ToNumber
// constant folding would use anyway), and returns its encoded operand
// (>= 256, per the bytecode package's "B/C >= 256 => constant"
// convention).
func (b *Builder) Const(v value.Value) int {
	for i, c := range b.consts {
		if value.SameValueZero(c, v) {
			return i + 256
		}
	}
	b.consts = append(b.consts, v)
	return len(b.consts) - 1 + 256
}

// Func embeds a nested template (built by its own Builder and passed
// here via Build) for a later Closure call, returning its index into
// this template's Funcs table.
func (b *Builder) Func(nested *heap.Template) int {
	b.funcs = append(b.funcs, nested)
	return len(b.funcs) - 1
}

// Label marks the current instruction position as name's target. A
// label may be referenced by a jump emitted before or after this call.
func (b *Builder) Label(name string) *Builder {
	if _, exists := b.labels[name]; exists {
		panic(fmt.Sprintf("compiler: label %q already defined", name))
	}
	b.labels[name] = len(b.code)
	return b
}

// Line records that subsequent instructions originate from source line
// n, for the PC2Line traceback table.
func (b *Builder) Line(n int) *Builder {
	b.line = n
	b.lines.Add(len(b.code), n)
	return b
}

func (b *Builder) emit(ins bytecode.Instruction) int {
	pc := len(b.code)
	b.code = append(b.code, uint32(ins))
	return pc
}

// --- plain register-form opcodes (A, B, C) ---

func (b *Builder) LoadReg(dst, src int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpLoadReg, dst, src, 0))
	return b
}
func (b *Builder) LoadUndefined(dst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpLoadUndef, dst, 0, 0))
	return b
}
func (b *Builder) LoadNull(dst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpLoadNull, dst, 0, 0))
	return b
}
func (b *Builder) LoadTrue(dst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpLoadTrue, dst, 0, 0))
	return b
}
func (b *Builder) LoadFalse(dst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpLoadFalse, dst, 0, 0))
	return b
}

// LoadK loads constant index k (as returned by Const) into dst.
func (b *Builder) LoadK(dst, k int) *Builder {
	b.emit(bytecode.EncodeBC(bytecode.OpLoadK, dst, k-256))
	return b
}

func (b *Builder) binop(op bytecode.Op, dst, lhs, rhs int) *Builder {
	b.emit(bytecode.Encode(op, dst, lhs, rhs))
	return b
}

func (b *Builder) Add(dst, lhs, rhs int) *Builder      { return b.binop(bytecode.OpAdd, dst, lhs, rhs) }
func (b *Builder) Sub(dst, lhs, rhs int) *Builder      { return b.binop(bytecode.OpSub, dst, lhs, rhs) }
func (b *Builder) Mul(dst, lhs, rhs int) *Builder      { return b.binop(bytecode.OpMul, dst, lhs, rhs) }
func (b *Builder) Div(dst, lhs, rhs int) *Builder      { return b.binop(bytecode.OpDiv, dst, lhs, rhs) }
func (b *Builder) Mod(dst, lhs, rhs int) *Builder      { return b.binop(bytecode.OpMod, dst, lhs, rhs) }
func (b *Builder) Eq(dst, lhs, rhs int) *Builder       { return b.binop(bytecode.OpEq, dst, lhs, rhs) }
func (b *Builder) StrictEq(dst, lhs, rhs int) *Builder { return b.binop(bytecode.OpStrictEq, dst, lhs, rhs) }
func (b *Builder) Lt(dst, lhs, rhs int) *Builder       { return b.binop(bytecode.OpLt, dst, lhs, rhs) }
func (b *Builder) Le(dst, lhs, rhs int) *Builder       { return b.binop(bytecode.OpLe, dst, lhs, rhs) }

// GetProp, PutProp, and DelProp take a constant operand (see Const) for
// the property key, matching OpGetProp/OpPutProp/OpDelProp's B/C >= 256
// "operand is a constant index" convention.
func (b *Builder) GetProp(dst, obj, keyConst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpGetProp, dst, obj, keyConst))
	return b
}
func (b *Builder) PutProp(obj, keyConst, val int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpPutProp, obj, keyConst, val))
	return b
}
func (b *Builder) DelProp(dst, obj, keyConst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpDelProp, dst, obj, keyConst))
	return b
}

func (b *Builder) NewObj(dst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpNewObj, dst, 0, 0))
	return b
}
func (b *Builder) NewArr(dst int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpNewArr, dst, 0, 0))
	return b
}

// Closure instantiates the funcIdx'th nested template (see Func) into
// dst, closing over the current activation's variable environment.
func (b *Builder) Closure(dst, funcIdx int) *Builder {
	b.emit(bytecode.EncodeBC(bytecode.OpClosure, dst, funcIdx))
	return b
}

// Call invokes the function in register fn with the nargs arguments in
// the registers immediately following fn, writing the result to dst.
func (b *Builder) Call(dst, fn, nargs int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpCall, dst, fn, nargs))
	return b
}

// New is Call's `new` form (OpNewCall).
func (b *Builder) New(dst, fn, nargs int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpNewCall, dst, fn, nargs))
	return b
}

func (b *Builder) Return(src int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpReturn, src, 0, 0))
	return b
}

func (b *Builder) Throw(src int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpThrow, src, 0, 0))
	return b
}

func (b *Builder) Yield(src int) *Builder {
	b.emit(bytecode.Encode(bytecode.OpYield, src, 0, 0))
	return b
}

func (b *Builder) TryPop() *Builder {
	b.emit(bytecode.Encode(bytecode.OpTryPop, 0, 0, 0))
	return b
}

func (b *Builder) Nop() *Builder {
	b.emit(bytecode.Encode(bytecode.OpNop, 0, 0, 0))
	return b
}

// --- label-resolved control flow ---

// Jump emits an unconditional branch to label, resolved when Build
// runs.
func (b *Builder) Jump(label string) *Builder {
	pc := b.emit(bytecode.Instruction(0))
	b.fixups = append(b.fixups, fixup{pc: pc, label: label, kind: fixupABC})
	return b
}

// JumpIfFalse branches to label when the value in cond is falsy.
func (b *Builder) JumpIfFalse(cond int, label string) *Builder {
	pc := b.emit(bytecode.Instruction(0))
	b.fixups = append(b.fixups, fixup{pc: pc, label: label, kind: fixupBC, a: cond})
	b.code[pc] = uint32(bytecode.Encode(bytecode.OpJumpIfFalse, cond, 0, 0))
	return b
}

// JumpIfTrue branches to label when the value in cond is truthy.
func (b *Builder) JumpIfTrue(cond int, label string) *Builder {
	pc := b.emit(bytecode.Instruction(0))
	b.fixups = append(b.fixups, fixup{pc: pc, label: label, kind: fixupBC, a: cond})
	b.code[pc] = uint32(bytecode.Encode(bytecode.OpJumpIfTrue, cond, 0, 0))
	return b
}

// TryPush installs a catcher whose catch target is label, until the
// matching TryPop.
func (b *Builder) TryPush(label string) *Builder {
	pc := b.emit(bytecode.Instruction(0))
	b.fixups = append(b.fixups, fixup{pc: pc, label: label, kind: fixupBC})
	b.code[pc] = uint32(bytecode.Encode(bytecode.OpTryPush, 0, 0, 0))
	return b
}

// Build resolves every label reference and returns the finished
// template. It panics if a jump references an undefined label — an
// assembly-time programming error in the caller, not a runtime
// condition this package's consumers need to recover from.
func (b *Builder) Build() *heap.Template {
	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			panic(fmt.Sprintf("compiler: undefined label %q", f.label))
		}
		// Offsets are relative to the PC *after* the jump instruction's
		// own fetch increment (vm/executor.go increments act.PC
		// immediately after fetching, before dispatch runs).
		offset := target - (f.pc + 1)
		switch f.kind {
		case fixupABC:
			b.code[f.pc] = uint32(bytecode.EncodeABC(bytecode.OpJump, int32(offset)))
		case fixupBC:
			op := bytecode.Instruction(b.code[f.pc]).Op()
			b.code[f.pc] = uint32(bytecode.EncodeBC(op, f.a, offset&0x3FFFF))
		}
	}

	return &heap.Template{
		Name:       b.name,
		Code:       append([]uint32(nil), b.code...),
		Constants:  append([]value.Value(nil), b.consts...),
		Funcs:      append([]*heap.Template(nil), b.funcs...),
		NumRegs:    b.numRegs,
		NumArgs:    len(b.argNames),
		ArgNames:   append([]string(nil), b.argNames...),
		VarNames:   append([]string(nil), b.varNames...),
		Strict:     b.strict,
		IsFunction: b.isFunction,
		PC2Line:    b.lines.Finish(len(b.code)),
	}
}
