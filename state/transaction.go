package state

import (
	"strings"

	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/step"
	"github.com/docweave/docweave/transform"
)

// Transaction accumulates a sequence of steps recorded against a base
// State's document (spec.md §3.7). Creating one opens a Transform over the
// base state's doc immediately, so a transaction under interactive
// construction can be inspected — and its failure observed — before it is
// ever dispatched. The id is minted by the caller (Runtime owns a
// per-runtime monotone counter; State itself has no notion of one, since a
// Transaction can outlive several States across the append-phase fixed
// point).
type Transaction struct {
	id     uint64
	schema *schema.Schema
	base   *State
	tr     *transform.Transform

	// invertSteps is nil until a State.Apply replay finalizes it against
	// the doc the transaction actually lands on; until then InvertSteps
	// falls back to the interactive transform's own inverses.
	invertSteps []step.Step

	meta map[string]interface{}
}

// NewTransaction opens a Transaction against base, identified by id.
func NewTransaction(id uint64, base *State) *Transaction {
	return &Transaction{
		id:     id,
		schema: base.schema,
		base:   base,
		tr:     transform.New(base.schema, base.doc),
		meta:   map[string]interface{}{},
	}
}

func (tr *Transaction) ID() uint64             { return tr.id }
func (tr *Transaction) Schema() *schema.Schema { return tr.schema }
func (tr *Transaction) Base() *State           { return tr.base }

// Steps returns the steps recorded so far, in application order.
func (tr *Transaction) Steps() []step.Step { return tr.tr.Steps() }

// InvertSteps returns the steps that would undo this transaction, in
// reverse application order (spec.md §3.7's invert_steps). Before the
// transaction has gone through a State.Apply, this reflects the
// interactive transform's own bookkeeping; afterward it reflects the
// replay State.Apply performed against the doc the transaction actually
// landed on.
func (tr *Transaction) InvertSteps() []step.Step {
	if tr.invertSteps != nil {
		return tr.invertSteps
	}
	return tr.tr.InvertSteps()
}

// Failed reports the error that poisoned this transaction's interactive
// transform, if any.
func (tr *Transaction) Failed() error { return tr.tr.Failed() }

// Step records s against the in-progress draft (spec.md §3.7: "recording a
// step runs it immediately against the draft"). A poisoned transaction
// rejects every further call with the same error.
func (tr *Transaction) Step(s step.Step) error {
	return tr.tr.Step(s)
}

// Meta reads a value from the transaction's opaque metadata map (spec.md
// §3.7: "opaque to the core; plugins and middleware use it to signal
// intent, e.g. \"history:skip\", \"source:collab\"").
func (tr *Transaction) Meta(key string) (interface{}, bool) {
	v, ok := tr.meta[key]
	return v, ok
}

// SetMeta sets a metadata key.
func (tr *Transaction) SetMeta(key string, value interface{}) {
	tr.meta[key] = value
}

// MetaAll returns the full metadata map; callers must not mutate it.
func (tr *Transaction) MetaAll() map[string]interface{} { return tr.meta }

// Describe returns a human-readable one-line summary of the transaction,
// used in History entries (supplement grounded on original_source's
// core/src/model/patch.rs, which carries a description alongside every
// patch). An explicit meta["description"] overrides the synthesized form.
func (tr *Transaction) Describe() string {
	if d, ok := tr.meta["description"]; ok {
		if s, ok := d.(string); ok && s != "" {
			return s
		}
	}
	steps := tr.Steps()
	if len(steps) == 0 {
		return "empty transaction"
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}
