package schema

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// CompileError reports why a SchemaSpec failed to compile (spec.md §3.3
// point 4 and §4.7's SchemaError). It is fatal: a failing compile means
// setup fails, per SPEC_FULL.md §7.
type CompileError struct {
	Reason string
}

func (e *CompileError) Error() string { return "schema compile error: " + e.Reason }

func newCompileError(format string, args ...interface{}) error {
	return errors.WithStack(&CompileError{Reason: fmt.Sprintf(format, args...)})
}
