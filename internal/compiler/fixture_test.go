package compiler

import (
	"testing"

	"github.com/wippyai/ecmacore/bytecode"
)

// addFixture is the JSON form of: LOADK r0, k0(19); LOADK r1, k1(23);
// ADD r2, r0, r1; RETURN r2 — the same program vm's own executor tests
// build directly through bytecode.Encode.
const addFixture = `{
  "name": "addConstants",
  "args": [],
  "vars": [],
  "constants": [
    {"type": "number", "number": 19},
    {"type": "number", "number": 23}
  ],
  "instructions": [
    {"op": "loadk", "a": 0, "k": 0},
    {"op": "loadk", "a": 1, "k": 1},
    {"op": "add", "a": 2, "b": 0, "c": 1},
    {"op": "return", "a": 2}
  ]
}`

func TestLoadFixture_Assembles(t *testing.T) {
	tmpl, err := LoadFixture([]byte(addFixture))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(tmpl.Code) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(tmpl.Code))
	}
	if len(tmpl.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %d", len(tmpl.Constants))
	}
	last := bytecode.Instruction(tmpl.Code[3])
	if last.Op() != bytecode.OpReturn || last.A() != 2 {
		t.Fatalf("last instruction = %v, want RETURN r2", last)
	}
	if !tmpl.Constants[0].IsNumber() || tmpl.Constants[0].AsNumber() != 19 {
		t.Fatalf("constant 0 = %v, want 19", tmpl.Constants[0])
	}
}

func TestLoadFixture_UnknownOpcode(t *testing.T) {
	_, err := LoadFixture([]byte(`{"name":"bad","instructions":[{"op":"frobnicate"}]}`))
	if err == nil {
		t.Fatalf("expected an error for an unrecognized opcode")
	}
}

func TestLoadFixture_NestedFuncs(t *testing.T) {
	const withNested = `{
	  "name": "outer",
	  "funcs": [
	    {
	      "name": "inner",
	      "isFunction": true,
	      "instructions": [
	        {"op": "loadundefined", "a": 0},
	        {"op": "return", "a": 0}
	      ]
	    }
	  ],
	  "instructions": [
	    {"op": "closure", "a": 0, "func": 0},
	    {"op": "return", "a": 0}
	  ]
	}`
	tmpl, err := LoadFixture([]byte(withNested))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(tmpl.Funcs) != 1 {
		t.Fatalf("expected 1 nested template, got %d", len(tmpl.Funcs))
	}
	if !tmpl.Funcs[0].IsFunction {
		t.Fatalf("nested template should have IsFunction set")
	}
}

func TestFixtureConstant_StringSurvivesRoundTrip(t *testing.T) {
	tmpl, err := LoadFixture([]byte(`{
	  "name": "str",
	  "constants": [{"type": "string", "string": "hello"}],
	  "instructions": [
	    {"op": "loadk", "a": 0, "k": 0},
	    {"op": "return", "a": 0}
	  ]
	}`))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if !tmpl.Constants[0].IsString() {
		t.Fatalf("constant 0 is not a string: %v", tmpl.Constants[0])
	}
	if got := string(tmpl.Constants[0].AsString().Bytes()); got != "hello" {
		t.Fatalf("constant 0 = %q, want %q", got, "hello")
	}
}
