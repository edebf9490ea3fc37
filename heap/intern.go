package heap

import "github.com/wippyai/ecmacore/value"

// Intern implements value.StringInterner: looks up or creates the
// interned HString for b.
func (h *Heap) Intern(b []byte) value.HeapString {
	return h.strings.intern(b)
}

// InternString is the typed variant used by heap-internal code that
// needs the concrete *HString rather than the value.HeapString
// interface (e.g. to read Hash()).
func (h *Heap) InternString(b []byte) *HString {
	return h.strings.intern(b)
}

// CharToByteOffset translates a character offset within s to a byte
// offset, consulting the string cache first.
func (h *Heap) CharToByteOffset(s *HString, charOffset int) int {
	if charOffset <= 0 {
		return 0
	}
	if cached, byteOff, ok := h.cache.Lookup(s); ok && cached <= charOffset {
		off := byteOff + advanceRunes(s.bytes[byteOff:], charOffset-cached)
		h.cache.Store(s, charOffset, off)
		return off
	}
	off := advanceRunes(s.bytes, charOffset)
	h.cache.Store(s, charOffset, off)
	return off
}

func advanceRunes(b []byte, n int) int {
	off := 0
	for i := 0; i < n && off < len(b); i++ {
		_, size := decodeRuneSize(b[off:])
		off += size
	}
	return off
}

// decodeRuneSize returns the byte width of the rune starting at b[0]
// without allocating, following the extended-UTF-8 continuation-byte
// convention used to store strings.
func decodeRuneSize(b []byte) (rune, int) {
	if len(b) == 0 {
		return 0, 0
	}
	c := b[0]
	switch {
	case c < 0x80:
		return rune(c), 1
	case c&0xE0 == 0xC0:
		return rune(c), 2
	case c&0xF0 == 0xE0:
		return rune(c), 3
	case c&0xF8 == 0xF0:
		return rune(c), 4
	default:
		return rune(c), 1
	}
}
