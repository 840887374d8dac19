// Package transform implements the mutable edit accumulator a Transaction
// opens over a State's document (spec.md §3.7): recording a step runs it
// immediately against an underlying draft, and the transform remembers
// both the forward steps, in application order, and the steps that would
// invert them, in reverse application order, so a poisoned transform can
// report exactly how far it got.
package transform

import (
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/step"
)

// Transform wraps a pool.Draft plus the steps recorded against it so far.
// It is the "mutable Transform initialized from the current State's
// document" spec.md §3.7 describes Transaction creation as implying.
type Transform struct {
	schema      *schema.Schema
	before      *pool.Pool // snapshot the draft started from, for inversion
	draft       *pool.Draft
	steps       []step.Step
	invertSteps []step.Step
	failed      error
}

// New opens a Transform over doc's draft using s to validate every
// recorded step.
func New(s *schema.Schema, doc *pool.Pool) *Transform {
	return &Transform{schema: s, before: doc, draft: doc.Draft()}
}

// Failed reports the error that poisoned this transform, if any.
func (t *Transform) Failed() error { return t.failed }

// Steps returns the steps successfully recorded so far, in application
// order.
func (t *Transform) Steps() []step.Step { return t.steps }

// InvertSteps returns the recorded inverses, in reverse application order
// (spec.md §3.7's `invert_steps`), ready to undo this transform's effect by
// being applied back-to-front.
func (t *Transform) InvertSteps() []step.Step { return t.invertSteps }

// Doc returns the document state the transform started from — the draft's
// pre-edit snapshot. Step inverses are computed against the pool as it
// stood just before each step (snapshotForInvert), not against Doc.
func (t *Transform) Doc() *pool.Pool { return t.before }

// Draft exposes the underlying draft for callers (e.g. Step constructors)
// that need to read in-flight state before deciding what step to record.
func (t *Transform) Draft() *pool.Draft { return t.draft }

// Step records one step against the draft (spec.md §3.7: "recording a step
// runs it immediately"). If the transform is already poisoned, or the step
// fails, the transform stays poisoned and no further step is applied.
func (t *Transform) Step(s step.Step) error {
	if t.failed != nil {
		return t.failed
	}
	before := t.snapshotForInvert()
	res := s.Apply(t.draft, t.schema)
	if !res.Ok() {
		t.failed = res.Err
		return res.Err
	}
	inv, ok := s.Invert(before)
	if ok {
		t.invertSteps = append([]step.Step{inv}, t.invertSteps...)
	}
	t.steps = append(t.steps, s)
	return nil
}

// snapshotForInvert returns the pool each step's Invert should observe:
// the document as it stood immediately before this step (spec.md §9:
// "invert is a function of both the step and the tree at the moment of
// application"). Draft.Commit reads the overlay without clearing it, so
// calling it mid-transform is a non-destructive snapshot of everything
// recorded so far.
func (t *Transform) snapshotForInvert() *pool.Pool {
	return t.draft.Commit()
}

// Commit folds the accumulated edits into a fresh, frozen Pool. It does
// not clear recorded steps; the Transaction that owns this Transform reads
// them afterward to populate its own Steps/InvertSteps.
func (t *Transform) Commit() *pool.Pool {
	return t.draft.Commit()
}
