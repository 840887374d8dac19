package runtime

import "github.com/docweave/docweave/state"

// Applied is broadcast after a successful dispatch (spec.md §4.4 point 7).
type Applied struct {
	OldState     *state.State
	NewState     *state.State
	Transactions []*state.Transaction
}

// Undo is broadcast after popping and restoring the most recent history
// entry.
type Undo struct {
	OldState *state.State
	NewState *state.State
}

// Redo is the symmetric counterpart of Undo.
type Redo struct {
	OldState *state.State
	NewState *state.State
}

// Jump is broadcast once for a composite Jump(n) of several undos or
// redos, carrying every transaction list crossed along the way (spec.md
// §4.4: "broadcast a single Jump event containing the composite
// transaction list").
type Jump struct {
	OldState     *state.State
	NewState     *state.State
	Steps        int // signed count requested; negative is undo, positive redo
	Transactions [][]*state.Transaction
}
