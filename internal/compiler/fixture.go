package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// fixtureConstant is one entry of a fixture's constant pool, tagged by
// kind since JSON has no notion of value.Value's variants.
type fixtureConstant struct {
	Type   string  `json:"type"`
	Number float64 `json:"number,omitempty"`
	String string  `json:"string,omitempty"`
}

// fixtureInstruction is one assembler call, named the same as the
// matching Builder method (lowercased) so a fixture file reads like a
// transliteration of a Builder call chain.
type fixtureInstruction struct {
	Op    string `json:"op"`
	A     int    `json:"a,omitempty"`
	B     int    `json:"b,omitempty"`
	C     int    `json:"c,omitempty"`
	K     int    `json:"k,omitempty"`     // constant-pool index, for loadk
	Func  int    `json:"func,omitempty"`  // nested-template index, for closure
	Label string `json:"label,omitempty"` // jump/label target name
	Name  string `json:"name,omitempty"`  // label name, for the "label" pseudo-op
	Line  int    `json:"line,omitempty"`  // source line, for the "line" pseudo-op
}

// Fixture is the literal-script format cmd/duk's non-interactive mode
// loads in place of source text: there is no parser in this repo's
// scope, so a fixture is a direct JSON transliteration of a Builder
// call sequence, doubling as a human-writable bytecode test input.
type Fixture struct {
	Name         string               `json:"name"`
	Args         []string             `json:"args"`
	Vars         []string             `json:"vars"`
	Strict       bool                 `json:"strict"`
	IsFunction   bool                 `json:"isFunction"`
	Constants    []fixtureConstant    `json:"constants"`
	Instructions []fixtureInstruction `json:"instructions"`
	Funcs        []Fixture            `json:"funcs"`
}

// LoadFixture decodes and assembles data into a runnable template.
func LoadFixture(data []byte) (*heap.Template, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return f.assemble()
}

func (f *Fixture) assemble() (*heap.Template, error) {
	b := NewBuilder(f.Name, f.IsFunction)
	b.Strict(f.Strict)

	for _, a := range f.Args {
		b.Arg(a)
	}
	for _, v := range f.Vars {
		b.Var(v)
	}

	constIdx := make([]int, len(f.Constants))
	for i, c := range f.Constants {
		v, err := c.toValue()
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		constIdx[i] = b.Const(v)
	}

	for i, nested := range f.Funcs {
		tmpl, err := nested.assemble()
		if err != nil {
			return nil, fmt.Errorf("nested func %d: %w", i, err)
		}
		b.Func(tmpl)
	}

	for i, ins := range f.Instructions {
		if err := f.emit(b, ins, constIdx); err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, ins.Op, err)
		}
	}

	return b.Build(), nil
}

func (c fixtureConstant) toValue() (value.Value, error) {
	switch c.Type {
	case "number":
		return value.Number(c.Number), nil
	case "string":
		return value.String(fixtureHeapString(c.String)), nil
	case "undefined":
		return value.Undefined(), nil
	case "null":
		return value.Null(), nil
	default:
		return value.Value{}, fmt.Errorf("unknown constant type %q", c.Type)
	}
}

// fixtureHeapString is a standalone value.HeapString backing a fixture
// string constant: fixtures assemble before any heap.Heap necessarily
// exists, so constant strings cannot go through heap.Heap.Intern yet.
// Any script-visible identity comparison between two fixture string
// constants still works (value.SameValueZero compares by content, not
// pointer), only true interning (one allocation per distinct string
// heap-wide) is deferred to whenever runtime code re-interns it.
type fixtureHeapString string

func (s fixtureHeapString) Bytes() []byte  { return []byte(s) }
func (s fixtureHeapString) ByteLength() int { return len(s) }
func (s fixtureHeapString) CharLength() int { return len([]rune(string(s))) }

func (f *Fixture) emit(b *Builder, ins fixtureInstruction, constIdx []int) error {
	k := func() int {
		if ins.K < 0 || ins.K >= len(constIdx) {
			return 0
		}
		return constIdx[ins.K]
	}
	switch ins.Op {
	case "label":
		b.Label(ins.Name)
	case "line":
		b.Line(ins.Line)
	case "loadreg":
		b.LoadReg(ins.A, ins.B)
	case "loadundefined":
		b.LoadUndefined(ins.A)
	case "loadnull":
		b.LoadNull(ins.A)
	case "loadtrue":
		b.LoadTrue(ins.A)
	case "loadfalse":
		b.LoadFalse(ins.A)
	case "loadk":
		b.LoadK(ins.A, k())
	case "add":
		b.Add(ins.A, ins.B, ins.C)
	case "sub":
		b.Sub(ins.A, ins.B, ins.C)
	case "mul":
		b.Mul(ins.A, ins.B, ins.C)
	case "div":
		b.Div(ins.A, ins.B, ins.C)
	case "mod":
		b.Mod(ins.A, ins.B, ins.C)
	case "eq":
		b.Eq(ins.A, ins.B, ins.C)
	case "stricteq":
		b.StrictEq(ins.A, ins.B, ins.C)
	case "lt":
		b.Lt(ins.A, ins.B, ins.C)
	case "le":
		b.Le(ins.A, ins.B, ins.C)
	case "getprop":
		b.GetProp(ins.A, ins.B, k())
	case "putprop":
		b.PutProp(ins.A, k(), ins.C)
	case "delprop":
		b.DelProp(ins.A, ins.B, k())
	case "newobj":
		b.NewObj(ins.A)
	case "newarr":
		b.NewArr(ins.A)
	case "closure":
		b.Closure(ins.A, ins.Func)
	case "call":
		b.Call(ins.A, ins.B, ins.C)
	case "new":
		b.New(ins.A, ins.B, ins.C)
	case "return":
		b.Return(ins.A)
	case "throw":
		b.Throw(ins.A)
	case "yield":
		b.Yield(ins.A)
	case "jump":
		b.Jump(ins.Label)
	case "jumpiffalse":
		b.JumpIfFalse(ins.A, ins.Label)
	case "jumpiftrue":
		b.JumpIfTrue(ins.A, ins.Label)
	case "trypush":
		b.TryPush(ins.Label)
	case "trypop":
		b.TryPop()
	case "nop":
		b.Nop()
	default:
		return fmt.Errorf("unknown opcode %q", ins.Op)
	}
	return nil
}
