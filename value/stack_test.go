package value

import (
	"math"
	"testing"
)

type fakeString struct{ b []byte }

func (f *fakeString) Bytes() []byte   { return f.b }
func (f *fakeString) ByteLength() int { return len(f.b) }
func (f *fakeString) CharLength() int { return len(f.b) }

type fakeInterner struct {
	interned map[string]*fakeString
	maxBytes int
}

func newFakeInterner() *fakeInterner {
	return &fakeInterner{interned: map[string]*fakeString{}, maxBytes: 1 << 20}
}

func (f *fakeInterner) Intern(b []byte) HeapString {
	key := string(b)
	if s, ok := f.interned[key]; ok {
		return s
	}
	s := &fakeString{b: append([]byte(nil), b...)}
	f.interned[key] = s
	return s
}

func (f *fakeInterner) MaxStringBytes() int { return f.maxBytes }

func TestStack_PushPopBasic(t *testing.T) {
	s := NewStack(1000)
	in := newFakeInterner()

	if err := s.PushInt(123); err != nil {
		t.Fatal(err)
	}
	if err := s.PushString(in, "foo"); err != nil {
		t.Fatal(err)
	}
	if got := s.GetTop(); got != 2 {
		t.Fatalf("top = %d, want 2", got)
	}
	v := s.Get(-1)
	if !v.IsString() {
		t.Fatal("expected string on top")
	}
	if err := s.Pop(); err != nil {
		t.Fatal(err)
	}
	if s.GetTop() != 1 {
		t.Fatalf("top after pop = %d, want 1", s.GetTop())
	}
}

func TestStack_PopUnderflow(t *testing.T) {
	s := NewStack(1000)
	s.PushInt(1)
	s.PushInt(2)
	if err := s.PopN(5); err == nil {
		t.Fatal("expected underflow error")
	}
	if s.GetTop() != 2 {
		t.Fatalf("stack modified after failed pop: top=%d", s.GetTop())
	}
}

func TestStack_PopNegativeCount(t *testing.T) {
	s := NewStack(1000)
	s.PushInt(1)
	if err := s.PopN(-1); err == nil {
		t.Fatal("expected error for negative pop count")
	}
}

func TestStack_NormalizeIndex(t *testing.T) {
	s := NewStack(1000)
	in := newFakeInterner()
	s.PushInt(123)
	s.PushInt(234)
	s.PushInt(345)

	cases := []struct {
		idx  int
		want int
	}{
		{-3, 0},
		{-1, 2},
		{3, InvalidIndex},
	}
	for _, c := range cases {
		if got := s.NormalizeIndex(c.idx); got != c.want {
			t.Errorf("NormalizeIndex(%d) = %d, want %d", c.idx, got, c.want)
		}
	}
	_ = in
}

func TestStack_RequireStackLimit(t *testing.T) {
	s := NewStack(10)
	if err := s.RequireStack(5); err != nil {
		t.Fatal(err)
	}
	s.SetTop(5)
	if err := s.RequireStack(1_000_000_000); err == nil {
		t.Fatal("expected RangeError extending past valstack_max")
	}
}

func TestStack_CheckStackTopThousand(t *testing.T) {
	s := NewStack(1 << 20)
	if !s.CheckStackTop(1000) {
		t.Fatal("expected check_stack_top(1000) to succeed")
	}
	for i := 0; i < 1000; i++ {
		if err := s.PushInt(i); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}
	if s.GetTop() != 1000 {
		t.Fatalf("top = %d, want 1000", s.GetTop())
	}
}

func TestStack_ConcreteToStringScenario(t *testing.T) {
	// testable property #12, first scenario (without buffer round-trip).
	s := NewStack(1000)
	in := newFakeInterner()

	s.PushUndefined()
	s.PushNull()
	s.PushTrue()
	s.PushFalse()
	s.PushNaN()
	s.PushNumber(math.Inf(-1))
	s.PushNumber(math.Inf(1))
	s.PushNumber(math.Copysign(0, -1))
	s.PushNumber(0)
	s.PushInt(123)
	s.PushString(in, "foo")
	s.PushLString(in, []byte("foo\x00bar"))

	// Go strings have no NUL-termination concept, so unlike the C host's
	// to_string (which would stop at the embedded NUL), to_lstring-style
	// byte-preserving conversion is used uniformly here.
	want := []string{"undefined", "null", "true", "false", "NaN", "-Infinity", "Infinity", "0", "0", "123", "foo", "foo\x00bar"}
	for i, w := range want {
		v := s.Get(i)
		got, err := ToString(in, v)
		if err != nil {
			t.Fatalf("ToString(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("index %d: ToString = %q, want %q", i, got, w)
		}
	}
}
