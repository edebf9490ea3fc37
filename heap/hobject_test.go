package heap

import "testing"

func TestHObject_MaybeBuildHash(t *testing.T) {
	o := NewHObject(nil, "Object")
	for i := 0; i < hashPartThreshold; i++ {
		o.Entries = append(o.Entries, Entry{Key: newHString([]byte(itoa(i)), hashBytes([]byte(itoa(i))))})
	}
	if o.hash != nil {
		t.Fatalf("hash built before threshold reached")
	}
	o.MaybeBuildHash()
	if o.hash == nil {
		t.Fatalf("hash not built after threshold reached")
	}
	if idx, ok := o.hash["5"]; !ok || idx != 5 {
		t.Fatalf("hash lookup wrong: %d %v", idx, ok)
	}
}

func TestHObject_Compact(t *testing.T) {
	o := NewHObject(nil, "Object")
	o.Entries = []Entry{
		{Key: newHString([]byte("a"), 1)},
		{Key: newHString([]byte("b"), 2), deleted: true},
		{Key: newHString([]byte("c"), 3)},
	}
	if err := o.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if len(o.Entries) != 2 {
		t.Fatalf("expected 2 live entries, got %d", len(o.Entries))
	}
}

func TestHObject_MarkChildren_Prototype(t *testing.T) {
	proto := NewHObject(nil, "Object")
	child := NewHObject(proto, "Object")

	var visited []GCObject
	child.MarkChildren(func(g GCObject) { visited = append(visited, g) })

	found := false
	for _, g := range visited {
		if g == GCObject(proto) {
			found = true
		}
	}
	if !found {
		t.Fatalf("prototype not visited by MarkChildren")
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 5: "5", 123: "123", -7: "-7"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Fatalf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}
