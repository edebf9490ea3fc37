// Package object implements the ECMAScript property engine over
// heap.HObject's three-part storage (ordered entries, dense array part,
// open-addressed hash index): [[Get]], [[Put]], [[Delete]],
// [[HasProperty]], [[DefineOwnProperty]], and enumeration order.
//
// The storage itself lives on heap.HObject (heap owns the data layout of
// every heap-allocated kind so its collector can walk it uniformly);
// this package owns only the operations over *heap.HObject, matching
// the restriction that Go cannot add methods to a type from another
// package.
package object
