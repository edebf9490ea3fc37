package vm

import "github.com/wippyai/ecmacore/errkind"

// Protect recovers the one kind of panic this codebase ever raises on
// purpose — an *errkind.Signal carrying LjYield — converting it into a
// normal return. Any other panic (a real bug, or a Signal of a type
// this boundary does not own) is re-raised unchanged: only the
// coroutine's Resume driver calls Protect, so a stray LjThrow reaching
// here would mean some Run call failed to convert its own throw into a
// plain error, which is a programming error to surface loudly rather
// than paper over.
func Protect(fn func()) (yielded bool, yieldVal any) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		sig, ok := r.(*errkind.Signal)
		if !ok || sig.Type != errkind.LjYield {
			panic(r)
		}
		yielded = true
		yieldVal = sig.Value1
	}()
	fn()
	return false, nil
}
