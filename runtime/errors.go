package runtime

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// TransactionFiltered is returned when a TraitImpl's FilterTransaction
// rejects a transaction during dispatch (spec.md §4.3 point 1, §4.7's
// error model table).
type TransactionFiltered struct {
	Plugin string
}

func (e *TransactionFiltered) Error() string {
	return fmt.Sprintf("runtime: transaction filtered by plugin %q", e.Plugin)
}

func newTransactionFiltered(plugin string) error {
	return errors.WithStack(&TransactionFiltered{Plugin: plugin})
}

// TransactionLoop is returned when the append-phase fixed-point loop
// exceeds the configured cap on appended transactions without converging
// (spec.md §4.3 point 4: "enforce a cap... on total appended transactions").
type TransactionLoop struct {
	Cap int
}

func (e *TransactionLoop) Error() string {
	return fmt.Sprintf("runtime: append fixed point exceeded cap of %d transactions", e.Cap)
}

func newTransactionLoop(cap int) error {
	return errors.WithStack(&TransactionLoop{Cap: cap})
}

// MiddlewareDepthExceeded is returned when a middleware-proposed
// transaction recurses past the configured depth (spec.md §4.4: "dispatched
// recursively under the same guard, bounded depth, default 8").
type MiddlewareDepthExceeded struct {
	Depth int
}

func (e *MiddlewareDepthExceeded) Error() string {
	return fmt.Sprintf("runtime: middleware recursion exceeded depth %d", e.Depth)
}

func newMiddlewareDepthExceeded(depth int) error {
	return errors.WithStack(&MiddlewareDepthExceeded{Depth: depth})
}

// ErrNoHistory is returned by Undo, Redo, and Jump when there is nothing
// left to undo or redo.
var ErrNoHistory = errors.New("runtime: no history entry available")
