package heap

import "github.com/wippyai/ecmacore/value"

// Template is a compiled function template: the shared, immutable
// program for a function, instantiated per-closure as an HFunction
// bound to a particular lexical environment.
type Template struct {
	hdr Header

	Name       string
	Code       []uint32      // encoded instructions, see bytecode package
	Constants  []value.Value // the constant pool the bytecode indexes into
	Funcs      []*Template   // nested function templates, for closure creation opcodes
	NumRegs    int
	NumArgs    int
	ArgNames   []string
	VarNames   []string // local variable names, register-resolved via _varmap
	Strict     bool
	IsFunction bool // false for the top-level program template

	// Line info for tracebacks: a run-length encoded PC-to-line table,
	// decoded by the bytecode package's PC2Line.
	PC2Line []byte
}

func NewTemplate(name string) *Template {
	return &Template{hdr: newHeader(TypeObject), Name: name}
}

func (t *Template) GCHeader() *Header { return &t.hdr }

// MarkChildren visits every constant-pool heap reference and every
// nested template (nested templates are reachable the moment an outer
// closure that can create them is reachable, even before one is ever
// instantiated).
func (t *Template) MarkChildren(visit func(GCObject)) {
	for _, c := range t.Constants {
		markValueChildren(c, visit)
	}
	for _, f := range t.Funcs {
		visit(f)
	}
}
