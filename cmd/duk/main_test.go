package main

import (
	"testing"

	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/value"
)

func TestDescribeValue(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want string
	}{
		{"undefined", value.Undefined(), "undefined"},
		{"null", value.Null(), "null"},
		{"true", value.Bool(true), "true"},
		{"number", value.Number(42), "42"},
	}
	for _, c := range cases {
		if got := describeValue(c.v); got != c.want {
			t.Errorf("%s: describeValue = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestDescribeValue_String(t *testing.T) {
	h := heap.NewDefault()
	s := h.Intern([]byte("hi"))
	if got, want := describeValue(value.String(s)), `"hi"`; got != want {
		t.Errorf("describeValue(string) = %q, want %q", got, want)
	}
}

func TestDescribeValue_Object(t *testing.T) {
	obj := heap.NewHObject(nil, "Object")
	if got, want := describeValue(value.Object(obj)), "[object]"; got != want {
		t.Errorf("describeValue(object) = %q, want %q", got, want)
	}
}
