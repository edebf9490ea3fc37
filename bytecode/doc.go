// Package bytecode defines the 32-bit register-based instruction format
// the executor in /vm dispatches, and the run-length encoded
// program-counter-to-source-line table used for tracebacks. It only
// ever reads a heap.Template; building one from source text is the job
// of the (out-of-scope) compiler front-end, represented in this repo
// only by the toy assembler in /internal/compiler used by tests and the
// CLI's fixture loader.
package bytecode
