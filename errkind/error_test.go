package errkind

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseProperty,
				Kind:   KindTypeError,
				Path:   []string{"user", "address", "zip"},
				Detail: "cannot set property of non-object",
			},
			contains: []string{"[property]", "TypeError", "user.address.zip", "cannot set property"},
		},
		{
			name: "minimal error",
			err:  &Error{Phase: PhaseAlloc, Kind: KindAllocError},
			contains: []string{"[alloc]", "AllocError"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindInternalError,
				Detail: "bound chain exceeded sanity limit",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[call]", "InternalError", "bound chain exceeded sanity limit", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Phase: PhaseExec, Kind: KindInternalError, Cause: cause}
	if errors.Unwrap(err) != cause {
		t.Fatal("Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	a := New(PhaseProperty, KindTypeError).Build()
	b := New(PhaseProperty, KindTypeError).Detail("different detail").Build()
	c := New(PhaseCall, KindTypeError).Build()

	if !errors.Is(a, b) {
		t.Error("expected same phase+kind to match")
	}
	if errors.Is(a, c) {
		t.Error("expected different phase to not match")
	}
}

func TestRetCodeToKind(t *testing.T) {
	tests := []struct {
		rc   int
		want Kind
		ok   bool
	}{
		{-1, KindError, true},
		{-3, KindRangeError, true},
		{-6, KindTypeError, true},
		{0, "", false},
		{1, "", false},
		{-100, "", false},
	}
	for _, tt := range tests {
		got, ok := RetCodeToKind(tt.rc)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("RetCodeToKind(%d) = (%v, %v), want (%v, %v)", tt.rc, got, ok, tt.want, tt.ok)
		}
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
