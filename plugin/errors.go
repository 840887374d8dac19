package plugin

import "golang.org/x/xerrors"

// Sentinel errors raised by Resolve. All three are configuration-time failures
// with no per-node context worth a typed struct, the same plain-sentinel
// idiom common.ErrNotFound and friends use.
var (
	// ErrCycle is returned when the dependency graph over a plugin set
	// contains a cycle (spec.md §3.9: "a cycle is a fatal configuration
	// error").
	ErrCycle = xerrors.New("plugin: dependency cycle")

	// ErrUnknownDependency is returned when a plugin names a dependency
	// key that is not present in the set being resolved.
	ErrUnknownDependency = xerrors.New("plugin: unknown dependency")

	// ErrDuplicateKey is returned when two plugins in the same set share a
	// key.
	ErrDuplicateKey = xerrors.New("plugin: duplicate key")
)
