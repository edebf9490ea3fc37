package object

import (
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// NewArray allocates an Array-class object with a magic "length"
// property backed by heap.HObject.ArrayLength.
func NewArray(proto *heap.HObject) *heap.HObject {
	o := heap.NewHObject(proto, "Array")
	o.IsArray = true
	return o
}

// NewString allocates a String-wrapper object (the boxed `new
// String(...)`, not the primitive) with virtual indexed characters and a
// non-writable "length" derived from the wrapped primitive.
func NewString(proto *heap.HObject, prim value.Value) *heap.HObject {
	o := heap.NewHObject(proto, "String")
	o.PrimitiveVal = prim
	return o
}

// NewArguments allocates an Arguments object: indexed
// own-properties for each actual argument, a "length", and either a
// "callee" data property (non-strict) or a thrower "caller"/"callee"
// pair (strict). The parameter-map linking indexed properties back to
// the owning activation's registers is wired by call.BuildArgumentsObject,
// which knows about Activation; this constructor only lays out the
// object shape.
func NewArguments(proto *heap.HObject, length int) *heap.HObject {
	o := heap.NewHObject(proto, "Arguments")
	o.ArgumentsMap = make(map[string]int, length)
	return o
}

// NewNumber allocates a Number-wrapper object (`new Number(...)`).
func NewNumber(proto *heap.HObject, prim value.Value) *heap.HObject {
	o := heap.NewHObject(proto, "Number")
	o.PrimitiveVal = prim
	return o
}

// NewBoolean allocates a Boolean-wrapper object (`new Boolean(...)`).
func NewBoolean(proto *heap.HObject, prim value.Value) *heap.HObject {
	o := heap.NewHObject(proto, "Boolean")
	o.PrimitiveVal = prim
	return o
}

func stringClassOwnProperty(obj *heap.HObject, key string) (Desc, bool) {
	if !obj.PrimitiveVal.IsString() {
		return Desc{}, false
	}
	s := obj.PrimitiveVal.AsString()
	if key == "length" {
		return Desc{Value: value.Int(s.CharLength()), HasValue: true}, true
	}
	idx, isArr := arrayIndex(key)
	if !isArr || idx >= s.CharLength() {
		return Desc{}, false
	}
	// Indexed chars are read-only, non-configurable, enumerable (ES5.1
	// §15.5.5.2); exact UTF-16-vs-codepoint indexing is a compiler/
	// library concern out of this package's scope, so this indexes by
	// decoded rune, which matches for the BMP subset exercised here.
	return Desc{Value: value.Int(int(runeAt(s.Bytes(), idx))), HasValue: true, HasEnumerable: true, Enumerable: true}, true
}

func runeAt(b []byte, charIdx int) rune {
	off := 0
	for i := 0; i < charIdx && off < len(b); i++ {
		_, sz := utf8DecodeLen(b[off:])
		off += sz
	}
	r, _ := utf8DecodeLen(b[off:])
	return r
}

func utf8DecodeLen(b []byte) (rune, int) {
	if len(b) == 0 {
		return 0, 0
	}
	c := b[0]
	switch {
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0 && len(b) >= 2:
		return rune(c&0x1F)<<6 | rune(b[1]&0x3F), 2
	case c&0xF0 == 0xE0 && len(b) >= 3:
		return rune(c&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), 3
	case c&0xF8 == 0xF0 && len(b) >= 4:
		return rune(c&0x07)<<18 | rune(b[1]&0x3F)<<12 | rune(b[2]&0x3F)<<6 | rune(b[3]&0x3F), 4
	default:
		return rune(c), 1
	}
}

// bumpArrayLength raises obj.ArrayLength to idx+1 if the newly written
// index extends past the current length (ES5.1 §15.4.5.1 exotic [[Put]]
// on array indices).
func bumpArrayLength(obj *heap.HObject, idx int, intern func([]byte) value.HeapString) {
	if !obj.IsArray {
		return
	}
	if idx+1 > obj.ArrayLength {
		obj.ArrayLength = idx + 1
	}
}

// setArrayLength implements the exotic [[Put]] on "length" (ES5.1
// §15.4.5.1 step 3): shrinking the length deletes every element whose
// index is now out of range.
func setArrayLength(obj *heap.HObject, v value.Value, throwOnFail bool) error {
	newLen, err := value.ToIntCheckRange(v, 0, 1<<32-1)
	if err != nil {
		return err
	}
	if newLen < obj.ArrayLength {
		for i := newLen; i < len(obj.ArrayPresent); i++ {
			obj.ArrayPresent[i] = false
			obj.ArrayPart[i] = value.Value{}
		}
		for i := range obj.Entries {
			if idx, isArr := arrayIndex(string(obj.Entries[i].Key.Bytes())); isArr && idx >= newLen {
				if obj.Entries[i].Flags&heap.PropConfigurable == 0 {
					if throwOnFail {
						return errkind.New(errkind.PhaseProperty, errkind.KindTypeError).
							Detail("cannot shrink array past non-configurable index %d", idx).Build()
					}
					continue
				}
				obj.Entries[i].deleted = true
			}
		}
	}
	obj.ArrayLength = newLen
	return nil
}
