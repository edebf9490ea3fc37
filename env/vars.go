package env

import (
	"github.com/wippyai/ecmacore/errkind"
	"github.com/wippyai/ecmacore/heap"
	"github.com/wippyai/ecmacore/object"
	"github.com/wippyai/ecmacore/value"
)

// GetVar resolves and reads name, throwing ReferenceError if
// unresolved anywhere in the chain (ES5.1 §10.3.1 / GetValue on an
// unresolvable reference).
func GetVar(inv object.Invoker, r *Record, name string) (value.Value, error) {
	ref, err := GetIdentifierReference(inv, r, name)
	if err != nil {
		return value.Value{}, err
	}
	if ref.Base == nil {
		return value.Value{}, errkind.New(errkind.PhaseEnv, errkind.KindReferenceError).
			Detail("%s is not defined", name).Build()
	}
	return readBinding(inv, ref.Base, name)
}

// GetVarWithThis is GetVar plus the this-value a call through this
// identifier reference should use (ES5.1 §10.2.1.2.6): the csvar
// call-setup opcode uses it so a with-statement method call
// (`with (obj) { method() }`) binds `this` to obj rather than
// undefined.
func GetVarWithThis(inv object.Invoker, r *Record, name string) (value.Value, value.Value, error) {
	ref, err := GetIdentifierReference(inv, r, name)
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	if ref.Base == nil {
		return value.Value{}, value.Value{}, errkind.New(errkind.PhaseEnv, errkind.KindReferenceError).
			Detail("%s is not defined", name).Build()
	}
	v, err := readBinding(inv, ref.Base, name)
	if err != nil {
		return value.Value{}, value.Value{}, err
	}
	return v, ImplicitThisValue(ref), nil
}

func readBinding(inv object.Invoker, r *Record, name string) (value.Value, error) {
	if off, ok := r.isOpenRegister(name); ok {
		return r.Thread.ValStack.Get(r.RegBase + off), nil
	}
	if r.Declarative {
		d, ok := object.GetOwnProperty(r.Bindings, name)
		if !ok {
			return value.Undefined(), nil
		}
		return d.Value, nil
	}
	return object.GetProp(inv, value.Object(r.Target), r.Target, name)
}

// PutVar resolves and writes name. An unresolved identifier creates a
// property on the global object in non-strict mode (ES5.1 §10.2.1.2.4
// step for object records with no matching binding, rooted at the
// outermost record) or throws ReferenceError in strict mode.
func PutVar(inv object.Invoker, r *Record, intern func([]byte) value.HeapString, global *heap.HObject, name string, v value.Value, strict bool) error {
	ref, err := GetIdentifierReference(inv, r, name)
	if err != nil {
		return err
	}
	if ref.Base == nil {
		if strict {
			return errkind.New(errkind.PhaseEnv, errkind.KindReferenceError).
				Detail("%s is not defined", name).Build()
		}
		return object.PutProp(inv, intern, value.Object(global), global, name, v, false)
	}
	return writeBinding(inv, ref.Base, intern, name, v, strict)
}

func writeBinding(inv object.Invoker, r *Record, intern func([]byte) value.HeapString, name string, v value.Value, strict bool) error {
	if off, ok := r.isOpenRegister(name); ok {
		r.Thread.ValStack.Replace(r.RegBase+off, v)
		return nil
	}
	if r.Declarative {
		d, ok := object.GetOwnProperty(r.Bindings, name)
		if ok && !d.Writable {
			if strict {
				return errkind.New(errkind.PhaseEnv, errkind.KindTypeError).
					Detail("assignment to constant variable %s", name).Build()
			}
			return nil
		}
		object.DefinePropertyInternal(r.Bindings, intern([]byte(name)), v, heap.PropWritable|heap.PropEnumerable)
		return nil
	}
	return object.PutProp(inv, intern, value.Object(r.Target), r.Target, name, v, strict)
}

// HasVar reports whether name resolves anywhere in the chain.
func HasVar(inv object.Invoker, r *Record, name string) (bool, error) {
	ref, err := GetIdentifierReference(inv, r, name)
	if err != nil {
		return false, err
	}
	return ref.Base != nil, nil
}

// DelVar implements the delete operator on an identifier (ES5.1
// §11.4.1): only an object record's binding can be deleted (and only if
// configurable); declarative bindings are never deletable.
func DelVar(r *Record, name string) (bool, error) {
	ref, err := GetIdentifierReference(noopInvoker{}, r, name)
	if err != nil {
		return false, err
	}
	if ref.Base == nil {
		return true, nil
	}
	if ref.Base.Declarative {
		return false, nil
	}
	return object.DelProp(ref.Base.Target, name, false)
}

// DeclVar implements ES5.1 §10.5 step 5 (function/var declaration
// instantiation) for a single variable binding, applying the
// global-redeclaration rule of step 5.e: redeclaring an existing
// configurable global property re-defines its attributes; redeclaring a
// non-configurable one is left untouched (never an error, unlike a
// `let`/`const` redeclaration in later ECMAScript).
func DeclVar(intern func([]byte) value.HeapString, r *Record, name string, v value.Value, deletable bool) error {
	if r.Declarative {
		if _, ok := object.GetOwnProperty(r.Bindings, name); ok {
			return nil
		}
		flags := heap.PropWritable | heap.PropEnumerable
		if deletable {
			flags |= heap.PropConfigurable
		}
		object.DefinePropertyInternal(r.Bindings, intern([]byte(name)), v, flags)
		return nil
	}

	existing, ok := object.GetOwnProperty(r.Target, name)
	if !ok {
		flags := heap.PropWritable | heap.PropEnumerable
		if deletable {
			flags |= heap.PropConfigurable
		}
		object.DefinePropertyInternal(r.Target, intern([]byte(name)), v, flags)
		return nil
	}
	if existing.Configurable {
		flags := heap.PropWritable | heap.PropEnumerable | heap.PropConfigurable
		object.DefinePropertyInternal(r.Target, intern([]byte(name)), v, flags)
	}
	// Non-configurable existing global property: left untouched, per
	// §10.5 step 5.e — redeclaring `var Object` at global scope must not
	// clobber the built-in's attributes.
	return nil
}

type noopInvoker struct{}

func (noopInvoker) Call(fn *heap.HFunction, this value.Value, args []value.Value) (value.Value, error) {
	return value.Undefined(), nil
}
