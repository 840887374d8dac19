package pool

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind enumerates the PoolError variants spec.md §4.7 names explicitly.
type Kind int

const (
	KindOther Kind = iota
	KindDuplicateId
	KindParentNotFound
	KindChildNotFound
	KindNodeNotFound
	KindOrphan
	KindInvalidParenting
	KindContentViolation
)

// PoolError reports a structural violation of a NodePool or a mutation
// rejected by the content model (spec.md §3.5, §4.2, §4.7).
type PoolError struct {
	Kind   Kind
	Op     string
	NodeId string
	Reason string
}

func (e *PoolError) Error() string {
	if e.NodeId == "" {
		return "pool: " + e.Op + ": " + e.Reason
	}
	return "pool: " + e.Op + " " + e.NodeId + ": " + e.Reason
}

func newPoolError(op, nodeId, format string, args ...interface{}) error {
	return newKindError(KindOther, op, nodeId, format, args...)
}

func newKindError(kind Kind, op, nodeId, format string, args ...interface{}) error {
	return errors.WithStack(&PoolError{Kind: kind, Op: op, NodeId: nodeId, Reason: fmt.Sprintf(format, args...)})
}
