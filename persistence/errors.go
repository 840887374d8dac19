package persistence

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// LogCorrupt is raised when a log record has a bad magic, fails its CRC
// check, or carries a payload that does not decode (spec.md §4.7). A
// truncated record is reported as io.ErrUnexpectedEOF instead.
type LogCorrupt struct {
	LSN    uint64
	Reason string
}

func (e *LogCorrupt) Error() string {
	return fmt.Sprintf("persistence: log corrupt at lsn %d: %s", e.LSN, e.Reason)
}

func newLogCorrupt(lsn uint64, format string, args ...interface{}) error {
	return errors.WithStack(&LogCorrupt{LSN: lsn, Reason: fmt.Sprintf(format, args...)})
}

// SnapshotCorrupt is raised when a snapshot blob or its sidecar fails to
// decode (spec.md §4.7).
type SnapshotCorrupt struct {
	Path   string
	Reason string
}

func (e *SnapshotCorrupt) Error() string {
	return fmt.Sprintf("persistence: snapshot corrupt at %s: %s", e.Path, e.Reason)
}

func newSnapshotCorrupt(path, format string, args ...interface{}) error {
	return errors.WithStack(&SnapshotCorrupt{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// IoError wraps an underlying filesystem error with the operation that
// triggered it (spec.md §4.7).
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("persistence: io error during %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func newIoError(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&IoError{Op: op, Err: err})
}
