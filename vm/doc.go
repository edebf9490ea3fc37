// Package vm implements the fetch-decode-dispatch bytecode executor
// and the coroutine-facing Thread wrapper.
// It is the only package that both sets up a call (via /call) and runs
// one to completion, which is what lets it implement call.Executor
// without /call needing to import it back.
package vm
