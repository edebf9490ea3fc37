package env

import (
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// Reference is the result of GetIdentifierReference (ES5.1 §10.3.1): the
// environment record that owns the binding, or nil for an unresolved
// identifier (which PutVar treats as an implicit global create in
// non-strict mode, GetVar treats as a ReferenceError, and DelVar
// reports as deleted by returning true).
type Reference struct {
	Base *Record
	Name string
}

// HasBinding reports whether r itself (not its parents) declares name,
// implementing the record-kind-specific half of ES5.1 §10.2.1's
// HasBinding concrete method.
func HasBinding(inv object.Invoker, r *Record, name string) (bool, error) {
	if _, ok := r.isOpenRegister(name); ok {
		return true, nil
	}
	if r.Declarative {
		_, ok := object.GetOwnProperty(r.Bindings, name)
		return ok, nil
	}
	return object.HasProp(r.Target, name)
}

// GetIdentifierReference walks the scope chain: check the current
// record, and if unresolved recurse into its parent, until the chain is
// exhausted (base = nil, meaning implicit global).
func GetIdentifierReference(inv object.Invoker, r *Record, name string) (Reference, error) {
	for cur := r; cur != nil; cur = cur.Parent {
		ok, err := HasBinding(inv, cur, name)
		if err != nil {
			return Reference{}, err
		}
		if ok {
			return Reference{Base: cur, Name: name}, nil
		}
	}
	return Reference{Base: nil, Name: name}, nil
}

// ImplicitThisValue returns the `this` a call through ref should use
// (ES5.1 §10.2.1.2.6). Only an object environment record built with
// provideThis (a with-statement's expression object) supplies anything
// but undefined; declarative records and the ordinary global object
// record never do.
func ImplicitThisValue(ref Reference) value.Value {
	if ref.Base != nil && !ref.Base.Declarative && ref.Base.ProvideThis {
		return value.Object(ref.Base.Target)
	}
	return value.Undefined()
}
