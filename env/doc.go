// Package env implements ECMAScript environment records (ES5.1 §10.2):
// declarative records backing function/catch scopes, and object
// records backing the global object and with-statement bindings, plus
// the three-step identifier reference lookup that walks the scope
// chain from a record out to the global environment.
package env
