// Package value implements the tagged value representation and the
// per-thread value stack an embeddable ECMAScript engine runs on.
//
// This engine chooses the "unpacked" representation as an
// alternative to NaN-space packing: Value is an explicit discriminated
// union rather than a packed 64-bit float slot. Numbers are still
// NaN-normalized on every write, preserving bit-for-bit compatibility
// with a host that expects the packed-representation contract.
package value
