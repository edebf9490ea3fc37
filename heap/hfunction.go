package heap

import "github.com/wippyai/ecmacore/value"

// FuncKind discriminates the three function variants a callable can be.
type FuncKind uint8

const (
	FuncCompiled FuncKind = iota
	FuncNative
	FuncBound
)

// NativeFunc is a host function's entry point. It takes an opaque
// context (the concrete type is api.Context, injected here as `any` so
// heap does not import the api package — api imports heap, not the
// reverse) and returns the number of return values pushed, following
// the native calling convention the api package exposes to hosts.
type NativeFunc func(ctx any) (int, error)

// HFunction is the heap-allocated callable: exactly one of Template,
// Native, or Bound* is populated depending on Kind.
type HFunction struct {
	hdr Header

	Kind FuncKind

	Template *Template  // Kind == FuncCompiled
	Native   NativeFunc // Kind == FuncNative

	BoundTarget *HFunction    // Kind == FuncBound
	BoundThis   value.Value
	BoundArgs   []value.Value

	Name     string
	Length   int // function.length: declared formal parameter count
	Strict   bool
	IsCtor   bool // constructible (false for e.g. bound non-constructor wrappers)
	Varenv   *HObject // closure's lexical environment record, nil for native/bound
}

func NewCompiledFunction(tmpl *Template, varenv *HObject) *HFunction {
	return &HFunction{hdr: newHeader(TypeObject), Kind: FuncCompiled, Template: tmpl, Varenv: varenv}
}

func NewNativeFunction(name string, length int, fn NativeFunc) *HFunction {
	return &HFunction{hdr: newHeader(TypeObject), Kind: FuncNative, Native: fn, Name: name, Length: length}
}

func NewBoundFunction(target *HFunction, this value.Value, args []value.Value) *HFunction {
	return &HFunction{hdr: newHeader(TypeObject), Kind: FuncBound, BoundTarget: target, BoundThis: this, BoundArgs: args}
}

func (f *HFunction) GCHeader() *Header { return &f.hdr }

func (f *HFunction) MarkChildren(visit func(GCObject)) {
	switch f.Kind {
	case FuncCompiled:
		if f.Template != nil {
			visit(f.Template)
		}
		if f.Varenv != nil {
			visit(f.Varenv)
		}
	case FuncBound:
		if f.BoundTarget != nil {
			visit(f.BoundTarget)
		}
		markValueChildren(f.BoundThis, visit)
		for _, a := range f.BoundArgs {
			markValueChildren(a, visit)
		}
	}
}

// ResolveBoundTarget walks a chain of bound functions to the underlying
// callable, capped at a sanity bound so a (forbidden but theoretically
// constructible) bound-function cycle cannot hang the interpreter.
func ResolveBoundTarget(f *HFunction) (*HFunction, []value.Value, value.Value, bool) {
	const maxChain = 10000
	var collected []value.Value
	this := value.Undefined()
	cur := f
	for i := 0; i < maxChain; i++ {
		if cur.Kind != FuncBound {
			return cur, collected, this, true
		}
		collected = append(append([]value.Value(nil), cur.BoundArgs...), collected...)
		this = cur.BoundThis
		cur = cur.BoundTarget
	}
	return nil, nil, value.Value{}, false
}
