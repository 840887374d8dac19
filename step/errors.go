package step

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// StepFailed reports why applying a step against a draft was rejected
// (spec.md §4.7's `StepFailed {step_name, reason}`).
type StepFailed struct {
	StepName string
	Reason   string
}

func (e *StepFailed) Error() string {
	return fmt.Sprintf("step %s failed: %s", e.StepName, e.Reason)
}

func newStepFailed(stepName, format string, args ...interface{}) error {
	return errors.WithStack(&StepFailed{StepName: stepName, Reason: fmt.Sprintf(format, args...)})
}
