package runtime

import (
	"time"

	"github.com/docweave/docweave/state"
)

// Entry is one history record (spec.md §4.4 point 6): the transactions
// that produced it, the resulting State snapshot, a description, and
// arbitrary metadata. Per spec.md §9's Open Question resolution, only the
// post-state snapshot is stored on every entry; Undo derives the state to
// restore from the previous entry (or History's base state, for the
// oldest entry) rather than each entry also carrying its own "before"
// snapshot.
type Entry struct {
	Transactions []*state.Transaction
	Snapshot     *state.State
	Description  string
	Meta         map[string]interface{}
	Timestamp    time.Time
}

// History is a bounded double-ended buffer of applied Entries plus a
// separate redo stack (spec.md §4.4: "History is a bounded double-ended
// buffer with separate undo and redo stacks; any new dispatch clears the
// redo stack"). The undo stack (entries) keeps at most limit entries;
// pushing past the limit drops the oldest, which bounds how far back Undo
// can reach rather than growing memory without bound.
type History struct {
	limit   int
	base    *state.State // state immediately before the oldest retained entry
	entries []*Entry
	redo    []*Entry
}

// NewHistory starts an empty History anchored at base, the state the
// runtime begins dispatching from.
func NewHistory(limit int, base *state.State) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{limit: limit, base: base}
}

// Push records a freshly applied entry and clears the redo stack (spec.md
// §4.4: "any new dispatch clears the redo stack").
func (h *History) Push(e *Entry) {
	h.redo = nil
	h.entries = append(h.entries, e)
	if len(h.entries) > h.limit {
		// the oldest entry's pre-state is lost; advance base to the next
		// oldest entry's snapshot so Undo still has a consistent anchor.
		h.base = h.entries[0].Snapshot
		h.entries = h.entries[1:]
	}
}

// CanUndo reports whether there is an entry to undo.
func (h *History) CanUndo() bool { return len(h.entries) > 0 }

// CanRedo reports whether there is an entry to redo.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Undo pops the most recent entry, pushes it onto the redo stack, and
// returns the state to restore (the previous entry's snapshot, or the
// history's base if none).
func (h *History) Undo() (*Entry, *state.State, bool) {
	if !h.CanUndo() {
		return nil, nil, false
	}
	last := len(h.entries) - 1
	e := h.entries[last]
	h.entries = h.entries[:last]
	h.redo = append(h.redo, e)
	return e, h.previousSnapshot(), true
}

// Redo pops the most recently undone entry, pushes it back onto the undo
// stack, and returns the state to restore (that entry's own snapshot).
func (h *History) Redo() (*Entry, *state.State, bool) {
	if !h.CanRedo() {
		return nil, nil, false
	}
	last := len(h.redo) - 1
	e := h.redo[last]
	h.redo = h.redo[:last]
	h.entries = append(h.entries, e)
	return e, e.Snapshot, true
}

func (h *History) previousSnapshot() *state.State {
	if len(h.entries) == 0 {
		return h.base
	}
	return h.entries[len(h.entries)-1].Snapshot
}
