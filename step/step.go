// Package step implements the six atomic, invertible mutation operations a
// Transaction is built from (spec.md §3.6), grounded on the Step/Apply/
// invertibility shape of other_examples' pulumi deployment step interface
// (pkg/resource/deploy/step.go: Op/Apply/Old/New), adapted from a linear
// resource-deployment plan to edits against a pool.Draft.
package step

import (
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

// Step is one atomic, invertible edit against a document draft (spec.md
// §3.6). Name is stable across versions; it is the tag the persistence
// codec and the step factory registry key on.
type Step interface {
	Name() string
	Apply(d *pool.Draft, s *schema.Schema) *Result
	Invert(before *pool.Pool) (Step, bool)
	Serialize() ([]byte, error)
}

// Result reports the outcome of applying a Step (spec.md §3.6's
// `apply(draft, schema) → StepResult`).
type Result struct {
	Err error
}

// Ok reports success.
func (r *Result) Ok() bool { return r.Err == nil }

func ok() *Result            { return &Result{} }
func fail(err error) *Result { return &Result{Err: err} }

// applyAtomically runs fn against d, rolling d back to its pre-call state
// if fn returns an error, so each Step either fully applies or leaves the
// draft exactly as it found it (spec.md §4.2).
func applyAtomically(d *pool.Draft, fn func() error) *Result {
	cp := d.Checkpoint()
	if err := fn(); err != nil {
		d.Restore(cp)
		return fail(err)
	}
	return ok()
}

// resolvePosition returns position if set, else the length of content
// (append at the end), matching every step variant's `position?: usize`
// field (spec.md §3.6).
func resolvePosition(position *int, contentLen int) int {
	if position == nil {
		return contentLen
	}
	return *position
}
