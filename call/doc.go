// Package call implements the ECMAScript call-frame bookkeeping shared
// by every kind of function invocation: activation records, the
// try/catch/finally/label catcher stack, argument-object construction,
// and compiled-call setup (environment creation, register allocation,
// tail-call reuse). It does not itself run bytecode — that loop lives in
// /vm, which is the only package positioned to both set up a call (via
// this package) and execute one without a dependency cycle (/vm imports
// /call; /call does not import /vm). See DESIGN.md for the rationale.
package call
