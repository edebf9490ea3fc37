package heap

import "github.com/wippyai/ecmacore/value"

// PropFlags holds the three ECMAScript property attributes plus the
// internal "accessor" discriminant, packed into a byte so an entry-part
// triple stays small.
type PropFlags uint8

const (
	PropWritable PropFlags = 1 << iota
	PropEnumerable
	PropConfigurable
	PropAccessor // value/setget holds a [getter, setter] pair, not a plain value
)

// Entry is one (key, value, flags) triple of the object's ordered
// entry-part property storage. Ordering is insertion order,
// required for for-in and Object.keys enumeration.
type Entry struct {
	Key   value.HeapString
	Val   value.Value
	Flags PropFlags
	// deleted marks a tombstoned slot, kept in place so later entries
	// keep their index stable for the (optional) hash-part lookup table.
	deleted bool
}

// hashPartThreshold is the Entries length past which a hash index,
// mapping a key's string identity to its slot in Entries, is built.
const hashPartThreshold = 32

// HObject is the heap-allocated object: a prototype pointer plus the
// three-part property storage (ordered entries, an
// optional dense array part, and an optional hash index over the entry
// part once the entry count passes the threshold).
type HObject struct {
	hdr Header

	Proto   *HObject
	Class   string // e.g. "Object", "Array", "Function", "Arguments"
	Extensible bool

	// EnvParent threads a declarative environment record's bindings
	// object to its lexically enclosing scope's bindings object (the
	// environment record chain), when this HObject backs an
	// env.Record rather than a script-visible object. It is unrelated to
	// Proto, which is the [[Prototype]] chain of an ordinary object.
	EnvParent *HObject

	Entries []Entry
	hash    map[string]int // key bytes -> index into Entries, nil until built

	// ArrayPart backs dense non-negative integer keys below ArrayPartLen.
	// Abandoned (set to nil) the moment any
	// element gets a non-default attribute set, an accessor, or the
	// index space becomes sparse enough that the entry part is cheaper.
	ArrayPart []value.Value
	ArrayPresent []bool

	// Internal/"magic" behaviors, toggled per :
	IsArray      bool // exotic [[Put]] on "length"
	ArrayLength  int  // Array.prototype synthesized "length", meaningful iff IsArray
	ArgumentsMap map[string]int // Arguments parameter-map: index -> varname slot, nil unless an Arguments object
	BoundTarget  *HFunction      // set only for [[Call]]/[[Construct]] bound wrappers living on an HObject-derived function
	PrimitiveVal value.Value     // Boolean/Number/String/Date wrapper objects stash their [[PrimitiveValue]] here

	Func *HFunction // non-nil iff Class == "Function"
	Buf  *HBuffer    // non-nil iff this object wraps a buffer (typed array / Duktape Buffer view)
}

// NewHObject allocates a bare object with the given prototype and class
// name; callers register it with Heap.Objects.Insert.
func NewHObject(proto *HObject, class string) *HObject {
	return &HObject{
		hdr:        newHeader(TypeObject),
		Proto:      proto,
		Class:      class,
		Extensible: true,
	}
}

func (o *HObject) GCHeader() *Header { return &o.hdr }

// ClassName implements value.HeapObject.
func (o *HObject) ClassName() string { return o.Class }

// MarkChildren visits the prototype, every entry-part value, every
// array-part slot, the bound target, the wrapped primitive, and the
// function/buffer payload if present.
func (o *HObject) MarkChildren(visit func(GCObject)) {
	if o.Proto != nil {
		visit(o.Proto)
	}
	if o.EnvParent != nil {
		visit(o.EnvParent)
	}
	for i := range o.Entries {
		e := &o.Entries[i]
		if e.deleted {
			continue
		}
		if hs, ok := e.Key.(GCObject); ok {
			visit(hs)
		}
		markValueChildren(e.Val, visit)
	}
	for i, present := range o.ArrayPresent {
		if present {
			markValueChildren(o.ArrayPart[i], visit)
		}
	}
	markValueChildren(o.PrimitiveVal, visit)
	if o.BoundTarget != nil {
		visit(o.BoundTarget)
	}
	if o.Func != nil {
		visit(o.Func)
	}
	if o.Buf != nil {
		visit(o.Buf)
	}
}

// MarkValueChildren is the exported form of markValueChildren, for a
// package outside heap (namely /call, whose Activation and Catcher
// records hold bare value.Value fields such as `this` and a catch
// binding's thrown value) that needs to walk a value.Value during GC
// without duplicating the tag switch below.
func MarkValueChildren(v value.Value, visit func(GCObject)) { markValueChildren(v, visit) }

// markValueChildren visits the heap object (if any) wrapped by v.
func markValueChildren(v value.Value, visit func(GCObject)) {
	switch {
	case v.IsString():
		if hs, ok := v.AsString().(GCObject); ok {
			visit(hs)
		}
	case v.IsObject():
		if ho, ok := v.AsObject().(GCObject); ok {
			visit(ho)
		}
	case v.IsBuffer():
		if hb, ok := v.AsBuffer().(GCObject); ok {
			visit(hb)
		}
	case v.IsThread():
		if ht, ok := v.AsThread().(GCObject); ok {
			visit(ht)
		}
	}
}

// Compact drops tombstoned entries and shrinks the backing slice,
// rebuilding the hash index if one exists.
func (o *HObject) Compact() error {
	if o.hash == nil {
		live := o.Entries[:0]
		for _, e := range o.Entries {
			if !e.deleted {
				live = append(live, e)
			}
		}
		o.Entries = append([]Entry(nil), live...)
		return nil
	}
	live := make([]Entry, 0, len(o.Entries))
	for _, e := range o.Entries {
		if !e.deleted {
			live = append(live, e)
		}
	}
	o.Entries = live
	o.rebuildHash()
	return nil
}

func (o *HObject) rebuildHash() {
	o.hash = make(map[string]int, len(o.Entries))
	for i, e := range o.Entries {
		if !e.deleted {
			o.hash[string(e.Key.Bytes())] = i
		}
	}
}

// HashBuilt reports whether the hash-part index has been built.
func (o *HObject) HashBuilt() bool { return o.hash != nil }

// HashLookup consults the hash-part index, if built.
func (o *HObject) HashLookup(key string) (int, bool) {
	if o.hash == nil {
		return 0, false
	}
	i, ok := o.hash[key]
	return i, ok
}

// HashDelete removes key from the hash-part index, if built.
func (o *HObject) HashDelete(key string) {
	if o.hash != nil {
		delete(o.hash, key)
	}
}

// HashInsert records key's entry-part index in the hash-part index, if
// built; callers that append to Entries after the hash was built must
// call this to keep the index consistent.
func (o *HObject) HashInsert(key string, idx int) {
	if o.hash != nil {
		o.hash[key] = idx
	}
}

// MaybeBuildHash installs the hash-part index once the entry count
// passes hashPartThreshold.
func (o *HObject) MaybeBuildHash() {
	if o.hash == nil && len(o.Entries) >= hashPartThreshold {
		o.rebuildHash()
	}
}

// AbandonArrayPart moves every present array-part slot into the entry
// part and discards the array part.
func (o *HObject) AbandonArrayPart(intern func(s string) value.HeapString) {
	for i, present := range o.ArrayPresent {
		if !present {
			continue
		}
		key := intern(itoa(i))
		o.Entries = append(o.Entries, Entry{
			Key:   key,
			Val:   o.ArrayPart[i],
			Flags: PropWritable | PropEnumerable | PropConfigurable,
		})
	}
	o.ArrayPart = nil
	o.ArrayPresent = nil
	o.MaybeBuildHash()
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
