package object

import (
	"sort"

	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// EnumFlags controls which properties Enumerator visits.
type EnumFlags uint8

const (
	// EnumOwnOnly restricts enumeration to obj's own properties, skipping
	// the prototype-chain walk (used by Object.keys/for-own idioms).
	EnumOwnOnly EnumFlags = 1 << iota
	// EnumIncludeNonEnumerable includes non-enumerable properties (used
	// by Object.getOwnPropertyNames).
	EnumIncludeNonEnumerable
)

// Enumerator walks an object's properties in the order required for
// for-in (ES5.1 §12.6.4, implementation-defined but conventionally:
// own array indices ascending, then own string keys in insertion order,
// then the same for each prototype in the chain), de-duplicating keys
// already seen closer to the receiver.
type Enumerator struct {
	keys []string
	pos  int
	obj  *heap.HObject // receiver, for value lookups during Next
}

// EnumeratorCreate builds the ordered, de-duplicated key list up front.
func EnumeratorCreate(obj *heap.HObject, flags EnumFlags) *Enumerator {
	e := &Enumerator{obj: obj}
	seen := make(map[string]bool)
	cur := obj
	for i := 0; cur != nil && i < maxPrototypeChainWalk; i++ {
		e.collectOwn(cur, flags, seen)
		if flags&EnumOwnOnly != 0 {
			break
		}
		cur = cur.Proto
	}
	return e
}

func (e *Enumerator) collectOwn(obj *heap.HObject, flags EnumFlags, seen map[string]bool) {
	var indices []int
	for idx, present := range obj.ArrayPresent {
		if present {
			indices = append(indices, idx)
		}
	}

	var stringKeys []string
	for _, ent := range obj.Entries {
		if ent.deleted {
			continue
		}
		if ent.Flags&heap.PropEnumerable == 0 && flags&EnumIncludeNonEnumerable == 0 {
			continue
		}
		k := string(ent.Key.Bytes())
		if idx, isArr := arrayIndex(k); isArr {
			indices = append(indices, idx)
			continue
		}
		stringKeys = append(stringKeys, k)
	}

	sort.Ints(indices)
	for _, idx := range indices {
		k := itoaObj(idx)
		if !seen[k] {
			seen[k] = true
			e.keys = append(e.keys, k)
		}
	}
	if obj.IsArray {
		// "length" is own but conventionally non-enumerable; only listed
		// under EnumIncludeNonEnumerable.
		if flags&EnumIncludeNonEnumerable != 0 && !seen["length"] {
			seen["length"] = true
			e.keys = append(e.keys, "length")
		}
	}
	for _, k := range stringKeys {
		if !seen[k] {
			seen[k] = true
			e.keys = append(e.keys, k)
		}
	}
}

func itoaObj(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// Next returns the next key (and, if getValue is set, its current
// value read via GetProp), or ok=false once exhausted.
func (e *Enumerator) Next(inv Invoker, getValue bool) (key string, val value.Value, ok bool, err error) {
	if e.pos >= len(e.keys) {
		return "", value.Value{}, false, nil
	}
	key = e.keys[e.pos]
	e.pos++
	if getValue {
		val, err = GetProp(inv, value.Object(e.obj), e.obj, key)
	}
	return key, val, true, err
}

// Remaining reports how many keys are left to visit.
func (e *Enumerator) Remaining() int { return len(e.keys) - e.pos }
