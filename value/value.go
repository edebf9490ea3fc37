package value

import (
	"math"
	"unsafe"
)

// Tag discriminates the variant held by a Value.
type Tag uint8

const (
	TagUndefined Tag = iota
	// TagUnusedUndefined marks a dead stack slot distinctly from a
	// script-visible undefined, .
	TagUnusedUndefined
	TagNull
	TagBoolean
	TagNumber
	TagString
	TagObject
	TagBuffer
	TagPointer
	TagThread
)

func (t Tag) String() string {
	switch t {
	case TagUndefined:
		return "undefined"
	case TagUnusedUndefined:
		return "undefined-unused"
	case TagNull:
		return "null"
	case TagBoolean:
		return "boolean"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	case TagObject:
		return "object"
	case TagBuffer:
		return "buffer"
	case TagPointer:
		return "pointer"
	case TagThread:
		return "thread"
	default:
		return "unknown"
	}
}

// HeapString is the subset of heap.HString that the value package needs,
// kept as an interface here so value does not import heap (heap imports
// value for property/array storage instead).
type HeapString interface {
	Bytes() []byte
	ByteLength() int
	CharLength() int
}

// HeapObject is the subset of heap.HObject that value needs.
type HeapObject interface {
	ClassName() string
}

// HeapBuffer is the subset of heap.HBuffer that value needs.
type HeapBuffer interface {
	Bytes() []byte
	Dynamic() bool
}

// HeapThread is the subset of heap.HThread that value needs.
type HeapThread interface {
	ThreadState() string
}

// Value is a tagged ECMAScript value. The zero Value is
// undefined.
type Value struct {
	tag Tag
	b   bool
	num float64
	str HeapString
	obj HeapObject
	buf HeapBuffer
	thr HeapThread
	ptr unsafe.Pointer
}

// Undefined returns the script-visible undefined value.
func Undefined() Value { return Value{tag: TagUndefined} }

// UnusedUndefined returns the dead-slot sentinel distinct from Undefined.
func UnusedUndefined() Value { return Value{tag: TagUnusedUndefined} }

// Null returns the null value.
func Null() Value { return Value{tag: TagNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{tag: TagBoolean, b: b} }

// canonicalNaN is the single quiet-NaN bit pattern every NaN is
// normalized to on write, preserving the packed-representation contract
// described in even though this build is unpacked.
var canonicalNaN = math.NaN()

// Number returns a numeric value, canonicalizing any NaN payload.
func Number(f float64) Value {
	if math.IsNaN(f) {
		f = canonicalNaN
	}
	return Value{tag: TagNumber, num: f}
}

// Int returns a numeric value from an integer.
func Int(i int) Value { return Number(float64(i)) }

// String returns a string value wrapping an interned heap string.
func String(s HeapString) Value { return Value{tag: TagString, str: s} }

// Object returns an object value.
func Object(o HeapObject) Value { return Value{tag: TagObject, obj: o} }

// Buffer returns a buffer value.
func Buffer(b HeapBuffer) Value { return Value{tag: TagBuffer, buf: b} }

// Thread returns a thread (coroutine) value.
func Thread(t HeapThread) Value { return Value{tag: TagThread, thr: t} }

// Pointer returns an opaque host-pointer value.
func Pointer(p unsafe.Pointer) Value { return Value{tag: TagPointer, ptr: p} }

// Tag returns the value's discriminant.
func (v Value) Tag() Tag { return v.tag }

func (v Value) IsUndefined() bool        { return v.tag == TagUndefined || v.tag == TagUnusedUndefined }
func (v Value) IsUnusedUndefined() bool  { return v.tag == TagUnusedUndefined }
func (v Value) IsNull() bool             { return v.tag == TagNull }
func (v Value) IsNullOrUndefined() bool  { return v.IsNull() || v.IsUndefined() }
func (v Value) IsBoolean() bool          { return v.tag == TagBoolean }
func (v Value) IsNumber() bool           { return v.tag == TagNumber }
func (v Value) IsString() bool           { return v.tag == TagString }
func (v Value) IsObject() bool           { return v.tag == TagObject }
func (v Value) IsBuffer() bool           { return v.tag == TagBuffer }
func (v Value) IsPointer() bool          { return v.tag == TagPointer }
func (v Value) IsThread() bool           { return v.tag == TagThread }

// AsBool returns the raw boolean payload; caller must check IsBoolean.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the raw numeric payload; caller must check IsNumber.
func (v Value) AsNumber() float64 { return v.num }

// AsString returns the raw string payload; caller must check IsString.
func (v Value) AsString() HeapString { return v.str }

// AsObject returns the raw object payload; caller must check IsObject.
func (v Value) AsObject() HeapObject { return v.obj }

// AsBuffer returns the raw buffer payload; caller must check IsBuffer.
func (v Value) AsBuffer() HeapBuffer { return v.buf }

// AsThread returns the raw thread payload; caller must check IsThread.
func (v Value) AsThread() HeapThread { return v.thr }

// AsPointer returns the raw pointer payload; caller must check IsPointer.
func (v Value) AsPointer() unsafe.Pointer { return v.ptr }

// SameValueZero implements the abstract SameValueZero used by property
// key comparisons and Array.prototype.includes-style equality (treats
// NaN as equal to itself and +0/-0 as equal).
func SameValueZero(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case TagUndefined, TagUnusedUndefined, TagNull:
		return true
	case TagBoolean:
		return a.b == b.b
	case TagNumber:
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	case TagString:
		return a.str == b.str || stringBytesEqual(a.str, b.str)
	case TagObject:
		return a.obj == b.obj
	case TagBuffer:
		return a.buf == b.buf
	case TagThread:
		return a.thr == b.thr
	case TagPointer:
		return a.ptr == b.ptr
	default:
		return false
	}
}

func stringBytesEqual(a, b HeapString) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, bb := a.Bytes(), b.Bytes()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}

// TypeOf implements the ECMAScript `typeof` operator's string result.
func TypeOf(v Value) string {
	switch v.tag {
	case TagUndefined, TagUnusedUndefined:
		return "undefined"
	case TagNull:
		return "object"
	case TagBoolean:
		return "boolean"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	case TagBuffer, TagPointer, TagThread:
		return "object"
	case TagObject:
		return "object"
	default:
		return "undefined"
	}
}

// ToBoolean implements the ToBoolean abstract operation.
func ToBoolean(v Value) bool {
	switch v.tag {
	case TagUndefined, TagUnusedUndefined, TagNull:
		return false
	case TagBoolean:
		return v.b
	case TagNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case TagString:
		return v.str != nil && v.str.ByteLength() > 0
	default:
		return true
	}
}
