// Package errkind provides the structured error type used across the engine
// and the longjmp-style propagation state shared between the call machinery
// and the bytecode executor.
//
// Errors are categorized by Phase (where in the engine the error arose) and
// Kind (the ECMAScript error class it surfaces as, plus a handful of
// internal-only kinds). Use New/Builder for ad hoc construction, and Throw
// to raise a built *Error as a panicking longjmp Signal.
package errkind
