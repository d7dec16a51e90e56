// Package deferred provides a scope-guard value: a wrapped closure that runs
// exactly once when the guard is closed. It is the Go shape of mgfw::defer —
// Go has no destructors, so "goes out of scope" becomes an explicit Close(),
// used with the standard `defer g.Close()` idiom.
package deferred

// Guard wraps a nullary function and invokes it exactly once, on Close.
type Guard struct {
	fn   func()
	done bool
}

// New wraps fn in a Guard. Callers must bind the result to a local and
// `defer` its Close — an unused Guard (created and immediately discarded) is
// a usage error, the same as an unbound mgfw::defer; Go has no compile-time
// linear-type check for this, so New only documents the requirement.
func New(fn func()) *Guard {
	return &Guard{fn: fn}
}

// Close runs the wrapped function exactly once. Subsequent calls are no-ops.
func (g *Guard) Close() {
	if g.done {
		return
	}
	g.done = true
	g.fn()
}
