package heap

import "unicode/utf8"

// HString is an interned, immutable byte sequence. It is
// never linked into the heap's object Table (strings live only in the
// string table) but still embeds Header so it participates uniformly in
// refcounting.
type HString struct {
	hdr Header

	bytes      []byte
	charLength int
	hash       uint32
}

func newHString(b []byte, hash uint32) *HString {
	s := &HString{hdr: newHeader(TypeString), bytes: b, hash: hash}
	s.charLength = utf8.RuneCount(b)
	return s
}

func (s *HString) GCHeader() *Header                  { return &s.hdr }
func (s *HString) MarkChildren(visit func(GCObject))  {} // strings reference nothing

// Bytes returns the raw extended-UTF-8 byte content.
func (s *HString) Bytes() []byte { return s.bytes }

// ByteLength returns the precomputed byte length.
func (s *HString) ByteLength() int { return len(s.bytes) }

// CharLength returns the precomputed character length.
func (s *HString) CharLength() int { return s.charLength }

func (s *HString) Hash() uint32 { return s.hash }
