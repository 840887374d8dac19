package common

import "golang.org/x/xerrors"

// Sentinel errors shared by more than one package. Component-specific,
// context-carrying errors (PoolError, StepFailed, SchemaError, ...) live
// next to the component that raises them and wrap github.com/cockroachdb/errors
// instead of these plain sentinels.
var (
	ErrNotFound      = xerrors.New("not found")
	ErrAlreadyExists = xerrors.New("already exists")
	ErrClosed        = xerrors.New("closed")
)
