package object

import (
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

// maxPrototypeChainWalk bounds [[HasProperty]]/[[Get]]/[[Put]] prototype
// walks so a (forbidden but constructible via reflection) prototype
// cycle cannot hang the interpreter.
const maxPrototypeChainWalk = 10000

// Invoker lets this package re-enter the call machinery to run an
// accessor property's getter/setter without importing /call (which
// itself imports /object for Arguments-object construction). Concrete
// implementations live in /call; /vm threads one through to every
// property operation it performs on script values.
type Invoker interface {
	Call(fn *heap.HFunction, this value.Value, args []value.Value) (value.Value, error)
}

// Desc is a property descriptor as used by DefineOwnProperty (ES5.1
// §8.10): any field left at its zero value with the matching Has* flag
// false is treated as absent, per the "partial descriptor" merge rule.
type Desc struct {
	Value        value.Value
	Get, Set     *heap.HFunction
	Writable     bool
	Enumerable   bool
	Configurable bool

	HasValue        bool
	HasGet          bool
	HasSet          bool
	HasWritable     bool
	HasEnumerable   bool
	HasConfigurable bool
}

func (d Desc) isAccessor() bool { return d.HasGet || d.HasSet }
func (d Desc) isData() bool     { return d.HasValue || d.HasWritable }
func (d Desc) isGeneric() bool  { return !d.isAccessor() && !d.isData() }

// findOwn returns the entry index for key on obj itself, consulting the
// hash index (if built), then a linear scan of the entry part; the array
// part is not searched.
func findOwn(obj *heap.HObject, key string) int {
	if obj.Entries == nil && obj.ArrayPart == nil {
		return -1
	}
	if i, ok := obj.HashLookup(key); ok {
		return i
	}
	for i, e := range obj.Entries {
		if !e.deleted && string(e.Key.Bytes()) == key {
			return i
		}
	}
	return -1
}

// GetOwnProperty implements [[GetOwnProperty]] (ES5.1 §8.12.1),
// returning ok=false if obj has no own property named key.
func GetOwnProperty(obj *heap.HObject, key string) (Desc, bool) {
	if obj.IsArray && key == "length" {
		return Desc{Value: value.Int(obj.ArrayLength), HasValue: true,
			Writable: true, HasWritable: true, HasEnumerable: true, HasConfigurable: true}, true
	}
	if obj.Class == "String" {
		if d, ok := stringClassOwnProperty(obj, key); ok {
			return d, true
		}
	}
	if idx, isArr := arrayIndex(key); isArr && obj.ArrayPart != nil && idx < len(obj.ArrayPart) && obj.ArrayPresent[idx] {
		return Desc{Value: obj.ArrayPart[idx], HasValue: true, Writable: true, HasWritable: true,
			Enumerable: true, HasEnumerable: true, Configurable: true, HasConfigurable: true}, true
	}
	i := findOwn(obj, key)
	if i < 0 {
		return Desc{}, false
	}
	e := obj.Entries[i]
	d := Desc{
		Configurable: e.Flags&heap.PropConfigurable != 0, HasConfigurable: true,
		Enumerable: e.Flags&heap.PropEnumerable != 0, HasEnumerable: true,
	}
	if e.Flags&heap.PropAccessor != 0 {
		pair := e.Val.AsObject()
		if g, ok := pair.(*accessorPair); ok {
			d.Get, d.Set = g.get, g.set
		}
		d.HasGet, d.HasSet = true, true
	} else {
		d.Value = e.Val
		d.HasValue = true
		d.Writable = e.Flags&heap.PropWritable != 0
		d.HasWritable = true
	}
	return d, true
}

// accessorPair is the internal value stashed in an Entry's Val slot when
// PropAccessor is set; it is never script-visible.
type accessorPair struct{ get, set *heap.HFunction }

func (accessorPair) ClassName() string { return "Accessor" }

// GetProp implements [[Get]] (ES5.1 §8.12.3): own property first, else
// walk the prototype chain, invoking an accessor's getter with `this`
// bound to the original receiver.
func GetProp(inv Invoker, receiver value.Value, obj *heap.HObject, key string) (value.Value, error) {
	cur := obj
	for i := 0; i < maxPrototypeChainWalk; i++ {
		if cur == nil {
			return value.Undefined(), nil
		}
		if d, ok := GetOwnProperty(cur, key); ok {
			if d.HasGet || d.HasSet {
				if d.Get == nil {
					return value.Undefined(), nil
				}
				return inv.Call(d.Get, receiver, nil)
			}
			return d.Value, nil
		}
		cur = cur.Proto
	}
	return value.Value{}, errkind.New(errkind.PhaseProperty, errkind.KindRangeError).
		Detail("prototype chain exceeds %d links", maxPrototypeChainWalk).Build()
}

// HasProp implements [[HasProperty]] (ES5.1 §8.12.6).
func HasProp(obj *heap.HObject, key string) (bool, error) {
	cur := obj
	for i := 0; i < maxPrototypeChainWalk; i++ {
		if cur == nil {
			return false, nil
		}
		if _, ok := GetOwnProperty(cur, key); ok {
			return true, nil
		}
		cur = cur.Proto
	}
	return false, errkind.New(errkind.PhaseProperty, errkind.KindRangeError).
		Detail("prototype chain exceeds %d links", maxPrototypeChainWalk).Build()
}

// PutProp implements [[Put]] (ES5.1 §8.12.5). throwOnFail selects strict
// mode semantics (TypeError instead of a silent no-op).
func PutProp(inv Invoker, intern func([]byte) value.HeapString, receiver value.Value, obj *heap.HObject, key string, v value.Value, throwOnFail bool) error {
	if obj.IsArray && key == "length" {
		return setArrayLength(obj, v, throwOnFail)
	}
	if !CanPut(obj, key) {
		if throwOnFail {
			return errkind.New(errkind.PhaseProperty, errkind.KindTypeError).
				Detail("cannot set property %q, not writable", key).Build()
		}
		return nil
	}

	if d, ok := GetOwnProperty(obj, key); ok && d.isData() {
		return putOwnData(obj, key, v)
	}

	// Walk ancestors for an inherited accessor or a read-only inherited
	// data property that should block the write (§8.12.5 steps 4-5).
	cur := obj.Proto
	for i := 0; i < maxPrototypeChainWalk && cur != nil; i++ {
		if d, ok := GetOwnProperty(cur, key); ok {
			if d.isAccessor() {
				if d.Set == nil {
					if throwOnFail {
						return errkind.New(errkind.PhaseProperty, errkind.KindTypeError).
							Detail("property %q has no setter", key).Build()
					}
					return nil
				}
				_, err := inv.Call(d.Set, receiver, []value.Value{v})
				return err
			}
			if !d.Writable {
				if throwOnFail {
					return errkind.New(errkind.PhaseProperty, errkind.KindTypeError).
						Detail("cannot set property %q, inherited read-only", key).Build()
				}
				return nil
			}
			break
		}
		cur = cur.Proto
	}

	if idx, isArr := arrayIndex(key); isArr && obj.Class == "Array" {
		ensureArraySlot(obj, idx)
		obj.ArrayPart[idx] = v
		obj.ArrayPresent[idx] = true
		bumpArrayLength(obj, idx, intern)
		return nil
	}
	return DefinePropertyInternal(obj, intern(stringBytes(key)), v,
		heap.PropWritable|heap.PropEnumerable|heap.PropConfigurable)
}

func putOwnData(obj *heap.HObject, key string, v value.Value) error {
	if idx, isArr := arrayIndex(key); isArr && obj.ArrayPart != nil && idx < len(obj.ArrayPart) && obj.ArrayPresent[idx] {
		obj.ArrayPart[idx] = v
		return nil
	}
	i := findOwn(obj, key)
	obj.Entries[i].Val = v
	return nil
}

// CanPut implements [[CanPut]] (ES5.1 §8.12.4).
func CanPut(obj *heap.HObject, key string) bool {
	if d, ok := GetOwnProperty(obj, key); ok {
		if d.isAccessor() {
			return d.Set != nil
		}
		return d.Writable
	}
	if obj.Proto == nil {
		return obj.Extensible
	}
	cur := obj.Proto
	for i := 0; i < maxPrototypeChainWalk && cur != nil; i++ {
		if d, ok := GetOwnProperty(cur, key); ok {
			if d.isAccessor() {
				return d.Set != nil
			}
			return obj.Extensible && d.Writable
		}
		cur = cur.Proto
	}
	return obj.Extensible
}

// DelProp implements [[Delete]] (ES5.1 §8.12.7).
func DelProp(obj *heap.HObject, key string, throwOnFail bool) (bool, error) {
	if idx, isArr := arrayIndex(key); isArr && obj.ArrayPart != nil && idx < len(obj.ArrayPart) && obj.ArrayPresent[idx] {
		obj.ArrayPresent[idx] = false
		obj.ArrayPart[idx] = value.Value{}
		return true, nil
	}
	i := findOwn(obj, key)
	if i < 0 {
		return true, nil
	}
	e := &obj.Entries[i]
	if e.Flags&heap.PropConfigurable == 0 {
		if throwOnFail {
			return false, errkind.New(errkind.PhaseProperty, errkind.KindTypeError).
				Detail("property %q is not configurable", key).Build()
		}
		return false, nil
	}
	e.deleted = true
	e.Val = value.Value{}
	obj.HashDelete(key)
	return true, nil
}

// DefineOwnProperty implements the validated [[DefineOwnProperty]] (ES5.1
// §8.12.9), used for Object.defineProperty.
func DefineOwnProperty(obj *heap.HObject, intern func([]byte) value.HeapString, key string, desc Desc, throwOnFail bool) (bool, error) {
	current, exists := GetOwnProperty(obj, key)
	reject := func(reason string) (bool, error) {
		if throwOnFail {
			return false, errkind.New(errkind.PhaseProperty, errkind.KindTypeError).Detail("%s", reason).Build()
		}
		return false, nil
	}

	if !exists {
		if !obj.Extensible {
			return reject("object is not extensible")
		}
		flags := flagsFromDesc(desc)
		if desc.isAccessor() {
			writeAccessor(obj, intern(stringBytes(key)), desc.Get, desc.Set, flags)
		} else {
			DefinePropertyInternal(obj, intern(stringBytes(key)), valueOrUndefined(desc), flags)
		}
		return true, nil
	}

	if !current.Configurable {
		if desc.HasConfigurable && desc.Configurable {
			return reject("cannot redefine non-configurable property as configurable")
		}
		if desc.HasEnumerable && desc.Enumerable != current.Enumerable {
			return reject("cannot change enumerable attribute of non-configurable property")
		}
		if current.isData() && desc.isAccessor() {
			return reject("cannot redefine non-configurable data property as accessor")
		}
		if current.isAccessor() && desc.isData() {
			return reject("cannot redefine non-configurable accessor property as data")
		}
		if current.isData() && !current.Writable {
			if desc.HasWritable && desc.Writable {
				return reject("cannot make non-configurable, non-writable property writable")
			}
			if desc.HasValue && !value.SameValueZero(desc.Value, current.Value) {
				return reject("cannot change value of non-configurable, non-writable property")
			}
		}
	}

	merged := mergeDesc(current, desc)
	flags := flagsFromDesc(merged)

	if idx, isArr := arrayIndex(key); isArr && obj.ArrayPart != nil && idx < len(obj.ArrayPart) && obj.ArrayPresent[idx] {
		if !merged.isAccessor() && flags == heap.PropWritable|heap.PropEnumerable|heap.PropConfigurable {
			obj.ArrayPart[idx] = merged.Value
			return true, nil
		}
		// Attributes diverge from the array part's fixed defaults (or the
		// property became an accessor): the array part can't carry
		// per-slot flags, so evict it into the entry part.
		obj.ArrayPresent[idx] = false
		obj.ArrayPart[idx] = value.Value{}
		if merged.isAccessor() {
			writeAccessor(obj, intern(stringBytes(key)), merged.Get, merged.Set, flags)
		} else {
			DefinePropertyInternal(obj, intern(stringBytes(key)), merged.Value, flags)
		}
		return true, nil
	}

	i := findOwn(obj, key)
	if merged.isAccessor() {
		writeAccessor(obj, obj.Entries[i].Key, merged.Get, merged.Set, flags)
	} else {
		obj.Entries[i].Val = merged.Value
		obj.Entries[i].Flags = flags
	}
	return true, nil
}

func mergeDesc(current, patch Desc) Desc {
	merged := current
	if patch.HasValue {
		merged.Value, merged.HasValue = patch.Value, true
		merged.HasGet, merged.HasSet = false, false
	}
	if patch.HasWritable {
		merged.Writable, merged.HasWritable = patch.Writable, true
	}
	if patch.HasGet {
		merged.Get, merged.HasGet = patch.Get, true
		merged.HasValue = false
	}
	if patch.HasSet {
		merged.Set, merged.HasSet = patch.Set, true
		merged.HasValue = false
	}
	if patch.HasEnumerable {
		merged.Enumerable, merged.HasEnumerable = patch.Enumerable, true
	}
	if patch.HasConfigurable {
		merged.Configurable, merged.HasConfigurable = patch.Configurable, true
	}
	return merged
}

func flagsFromDesc(d Desc) heap.PropFlags {
	var f heap.PropFlags
	if d.isAccessor() {
		f |= heap.PropAccessor
	} else if d.Writable {
		f |= heap.PropWritable
	}
	if d.Enumerable {
		f |= heap.PropEnumerable
	}
	if d.Configurable {
		f |= heap.PropConfigurable
	}
	return f
}

func valueOrUndefined(d Desc) value.Value {
	if d.HasValue {
		return d.Value
	}
	return value.Undefined()
}

func writeAccessor(obj *heap.HObject, key value.HeapString, get, set *heap.HFunction, flags heap.PropFlags) {
	pair := &accessorPair{get: get, set: set}
	DefinePropertyInternal(obj, key, value.Object(pair), flags|heap.PropAccessor)
}

// DefineAccessor is writeAccessor exported for callers outside this
// package (e.g. call.BuildArgumentsObject's strict-mode "caller"/
// "callee" thrower pair) that cannot construct an accessorPair
// themselves since it is unexported.
func DefineAccessor(obj *heap.HObject, key value.HeapString, get, set *heap.HFunction, flags heap.PropFlags) {
	writeAccessor(obj, key, get, set, flags)
}

// DefinePropertyInternal is the unchecked counterpart used for built-in
// setup: it appends or overwrites an entry with the given flags without
// running any of [[DefineOwnProperty]]'s validation.
func DefinePropertyInternal(obj *heap.HObject, key value.HeapString, v value.Value, flags heap.PropFlags) {
	keyBytes := string(key.Bytes())
	for i := range obj.Entries {
		if !obj.Entries[i].deleted && string(obj.Entries[i].Key.Bytes()) == keyBytes {
			obj.Entries[i].Val = v
			obj.Entries[i].Flags = flags
			return
		}
	}
	idx := len(obj.Entries)
	obj.Entries = append(obj.Entries, heap.Entry{Key: key, Val: v, Flags: flags})
	if obj.HashBuilt() {
		obj.HashInsert(keyBytes, idx)
	} else {
		obj.MaybeBuildHash()
	}
}

func stringBytes(s string) []byte { return []byte(s) }

func arrayIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	n := 0
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if key[0] == '0' && len(key) > 1 {
		return 0, false
	}
	return n, true
}

func ensureArraySlot(obj *heap.HObject, idx int) {
	if idx < len(obj.ArrayPart) {
		return
	}
	grown := make([]value.Value, idx+1)
	copy(grown, obj.ArrayPart)
	obj.ArrayPart = grown
	presentGrown := make([]bool, idx+1)
	copy(presentGrown, obj.ArrayPresent)
	obj.ArrayPresent = presentGrown
}
