// Package scriptjob compiles a small JavaScript snippet (via goja) into a
// job body a Scheduler can run directly. It is grounded on wilke-GoWe's
// internal/cwlexpr.Evaluator, which evaluates CWL parameter expressions in
// a fresh goja.Runtime per call — the same per-call isolation is used here,
// so one misbehaving script can never leak state into the next run.
//
// This has no analogue in the original C++ core, which only ever schedules
// native closures; it supplements the spec with "a recurring job whose
// body is data, not compiled code," useful for the mgfwctl demo CLI's
// --job-script flag.
package scriptjob

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/me/mgfw/pkg/typeid"
)

// Job is a compiled script ready to be handed to Scheduler.DoNow or
// Scheduler.SetInterval as the job body.
type Job struct {
	ID  uint32
	src string
}

// Compile validates src by parsing it in a scratch VM, without running its
// body (catching syntax errors eagerly, at registration time rather than
// first run), and returns a Job wrapping it. name tags the job with a stable
// id via typeid.StringKey, the same FNV-1a construction the original core's
// StringKey.hpp used for human-chosen keys; the id is kept in Job.ID.
func Compile(name, src string) (*Job, error) {
	vm := goja.New()
	// Constructing, but not calling, the wrapping function parses src
	// (catching syntax errors) without evaluating its body, so an
	// undefined-at-compile-time variable like a future job argument
	// doesn't fail compilation.
	if _, err := vm.RunString(asFunctionExpr(src)); err != nil {
		return nil, fmt.Errorf("scriptjob: compile %q: %w", name, err)
	}
	return &Job{ID: typeid.StringKey(name), src: src}, nil
}

// asFunctionExpr wraps src as a function body, so a script using a bare
// `return` (the expected style for a job body) parses as valid JS.
func asFunctionExpr(src string) string {
	return "(function(){\n" + src + "\n})"
}

// Run executes the script in a fresh goja.Runtime, exposing vars under the
// names given, and returns the value the script returns (undefined if it
// has no return statement). A script that throws becomes a returned Go
// error rather than a panic; AsJobFunc hands that error to its onError
// callback, so it never reaches the Scheduler's panic recovery.
func (j *Job) Run(vars map[string]any) (goja.Value, error) {
	vm := goja.New()
	for name, v := range vars {
		if err := vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("scriptjob: set %q: %w", name, err)
		}
	}
	result, err := vm.RunString(asFunctionExpr(j.src) + "()")
	if err != nil {
		return nil, fmt.Errorf("scriptjob: run: %w", err)
	}
	return result, nil
}

// AsJobFunc adapts Run into a func() suitable for Scheduler.DoNow or
// Scheduler.SetInterval: errors and script-thrown exceptions are reported
// through onError rather than returned, since a scheduled job body has no
// return channel of its own.
func (j *Job) AsJobFunc(vars map[string]any, onError func(error)) func() {
	return func() {
		if _, err := j.Run(vars); err != nil && onError != nil {
			onError(err)
		}
	}
}

// AsPredicateFunc adapts Run into a func() bool, coercing the script's
// return value to a boolean via goja's ToBoolean — useful for a
// scripted job that decides whether its own recurring registration should
// continue (callers check the bool and CancelJob when false).
func (j *Job) AsPredicateFunc(vars map[string]any, onError func(error)) func() bool {
	return func() bool {
		v, err := j.Run(vars)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return false
		}
		return v.ToBoolean()
	}
}
