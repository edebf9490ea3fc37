package value

import (
	"math"

	"github.com/wippyai/ecmacore/errkind"
)

// Hint is the ToPrimitive hint (ES5.1 §8.12.8).
type Hint int

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

// Objectifier lets the stack coerce a primitive to a wrapper object
// (ToObject) without this package depending on heap directly.
type Objectifier interface {
	ToObject(v Value) (HeapObject, error)
}

// Primitiver lets the stack invoke an object's [[DefaultValue]] without
// depending on the object/property-engine package directly.
type Primitiver interface {
	DefaultValue(o HeapObject, hint Hint) (Value, error)
}

// ToString implements the ToString abstract operation for non-object
// values; object values require a Primitiver (handled in ToStringVia).
func ToString(in StringInterner, v Value) (string, error) {
	switch v.Tag() {
	case TagUndefined, TagUnusedUndefined:
		return "undefined", nil
	case TagNull:
		return "null", nil
	case TagBoolean:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case TagNumber:
		return NumberToString(v.AsNumber()), nil
	case TagString:
		return string(v.AsString().Bytes()), nil
	default:
		return "", errkind.TypeError(errkind.PhaseAPI, "cannot convert %s to string without ToPrimitive", v.Tag())
	}
}

// ToStringVia converts v to a string, invoking ToPrimitive(HintString)
// through p first when v is an object.
func ToStringVia(in StringInterner, p Primitiver, v Value) (string, error) {
	if v.Tag() == TagObject {
		prim, err := p.DefaultValue(v.AsObject(), HintString)
		if err != nil {
			return "", err
		}
		v = prim
	}
	return ToString(in, v)
}

// ToPrimitive implements ToPrimitive for non-object values directly;
// object values are delegated to p.DefaultValue.
func ToPrimitive(p Primitiver, v Value, hint Hint) (Value, error) {
	if v.Tag() != TagObject {
		return v, nil
	}
	return p.DefaultValue(v.AsObject(), hint)
}

// ToObject implements the ToObject abstract operation via an injected
// Objectifier (the heap owns wrapper-object construction).
func ToObject(o Objectifier, v Value) (Value, error) {
	if v.Tag() == TagObject {
		return v, nil
	}
	if v.IsNullOrUndefined() {
		return Value{}, errkind.TypeError(errkind.PhaseAPI, "cannot convert %s to object", v.Tag())
	}
	obj, err := o.ToObject(v)
	if err != nil {
		return Value{}, err
	}
	return Object(obj), nil
}

// ToIntCheckRange implements to_int_check_range(min, max): ToNumber,
// then ToInteger, then a RangeError if outside [min, max].
func ToIntCheckRange(v Value, min, max int) (int, error) {
	f := ToNumber(v)
	if math.IsNaN(f) {
		f = 0
	}
	i := int(math.Trunc(f))
	if i < min || i > max {
		return 0, errkind.New(errkind.PhaseAPI, errkind.KindRangeError).
			Detail("value %v out of range [%d, %d]", f, min, max).Build()
	}
	return i, nil
}

// ToBuffer implements the to_buffer coercion. Coercing a pointer value
// is refused: a platform-
// dependent textual pointer dump is not reproducible across hosts.
func ToBuffer(in StringInterner, makeBuffer func([]byte) HeapBuffer, v Value) (HeapBuffer, error) {
	switch v.Tag() {
	case TagBuffer:
		return v.AsBuffer(), nil
	case TagString:
		return makeBuffer(v.AsString().Bytes()), nil
	case TagPointer:
		return nil, errkind.TypeError(errkind.PhaseAPI, "pointer to buffer coercion is not supported")
	default:
		s, err := ToString(in, v)
		if err != nil {
			return nil, err
		}
		return makeBuffer([]byte(s)), nil
	}
}

// ConcatTop implements the stack string-concat operation: given n
// strings on top of the stack, replace them with their
// concatenation, bounds-checked against the interner's maximum string
// byte length.
func ConcatTop(s *Stack, in StringInterner, n int) error {
	return joinOrConcat(s, in, n, nil)
}

// JoinTop implements the stack string-join operation: n strings on top
// joined by sep.
func JoinTop(s *Stack, in StringInterner, n int, sep []byte) error {
	return joinOrConcat(s, in, n, sep)
}

func joinOrConcat(s *Stack, in StringInterner, n int, sep []byte) error {
	if n < 0 || n > s.Top() {
		return errkind.API("concat/join: invalid count %d", n)
	}
	start := s.Top() - n
	total := 0
	parts := make([][]byte, n)
	for i := 0; i < n; i++ {
		v := s.Get(start + i)
		if !v.IsString() {
			return errkind.TypeError(errkind.PhaseAPI, "concat/join: element %d is not a string", i)
		}
		b := v.AsString().Bytes()
		parts[i] = b
		total += len(b)
	}
	if n > 1 && sep != nil {
		total += len(sep) * (n - 1)
	}
	if total > in.MaxStringBytes() {
		return errkind.New(errkind.PhaseAPI, errkind.KindRangeError).
			Detail("concatenated string length %d exceeds maximum %d", total, in.MaxStringBytes()).Build()
	}
	out := make([]byte, 0, total)
	for i, p := range parts {
		if i > 0 && sep != nil {
			out = append(out, sep...)
		}
		out = append(out, p...)
	}
	if err := s.PopN(n); err != nil {
		return err
	}
	return s.PushLString(in, out)
}
