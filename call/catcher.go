package call

import "github.com/wippyai/ecmacore/heap"

// CatcherType discriminates the three non-local-control constructs the
// executor's try/catch stack has to unwind through.
type CatcherType uint8

const (
	CatchTry CatcherType = iota
	CatchFinally
	CatchLabel
)

// Catcher is one entry of an activation's try/catch/finally/label
// stack. Which fields apply depends on Type:
//
//   - CatchTry: CatchTarget is the bytecode offset of the catch block.
//     Reaching it via an unwind parks the thrown value on the
//     activation (Activation.PendingCatchValue) for OpLoadCaught to
//     pick up; the catch body binds it by name with the ordinary
//     OpDeclVar/OpPutVar pair.
//   - CatchFinally: FinallyTarget is the bytecode offset of the finally
//     block. Unwinding into it parks the completion that triggered the
//     unwind (Activation.Pending*) so the finally block's trailing
//     OpEndFin can resume it once the finally body finishes normally.
//   - CatchLabel: identifies a labeled statement. CatchTarget is the
//     break target, FinallyTarget is the continue target (-1 if this
//     label doesn't directly wrap a loop). Label is an assembler-chosen
//     id OpBreak/OpContinue matches against; it is not a source-text
//     name; see catcher.go's callers for why.
type Catcher struct {
	Type CatcherType

	CatchTarget   int
	FinallyTarget int
	Label         int
}

// MarkChildren implements heap.StackEntry. A Catcher holds no heap
// references of its own — the values it gates (a thrown error, a
// return value) live on the Activation that's unwinding, not the
// catcher itself.
func (c *Catcher) MarkChildren(visit func(heap.GCObject)) {}
