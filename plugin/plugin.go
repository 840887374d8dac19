// Package plugin defines the pluggable unit of behavior a Runtime installs
// (spec.md §3.9): an optional per-document state field that evolves with
// every transaction, and an optional pair of transaction-pipeline hooks
// (filter, append). Dependency and priority resolution live here too
// (spec.md §4.9's supplement), grounded on original_source's
// extension_manager.rs concept of resolving a plugin set before a Runtime
// starts dispatching against it.
package plugin

import "github.com/docweave/docweave/state"

// Key identifies a plugin. It is a type alias for state.PluginKey (not a
// distinct type) so a Plugin's Key can be used directly as a
// State.plugin_fields map key without conversion, and so this package can
// depend on state one-way without state ever needing to import plugin.
type Key = state.PluginKey

// Metadata carries the descriptive, non-functional facts about a plugin
// (spec.md §3.9's "metadata"), mirrored from original_source's
// PluginMetadata (crates/state/src/plugin/mod.rs).
type Metadata struct {
	Name        string
	Version     string
	Description string
	Author      string
	Tags        []string
}

// StateField is a plugin's per-document piece of state (spec.md §3.9):
// Init seeds the initial field value when a Runtime starts; Apply evolves
// it deterministically alongside every transaction (spec.md §4.3 point 3).
type StateField interface {
	Init(config state.Config, s *state.State) (interface{}, error)
	Apply(tr *state.Transaction, oldValue interface{}, oldState, newState *state.State) (interface{}, error)
}

// TraitImpl is a plugin's pair of transaction-pipeline hooks (spec.md
// §3.9). FilterTransaction vetoes a transaction outright; AppendTransaction
// observes a dispatch's full transaction batch and may propose one more
// transaction to run through the same pipeline (spec.md §4.3 point 4's
// fixed-point loop).
type TraitImpl interface {
	FilterTransaction(tr *state.Transaction, s *state.State) bool
	AppendTransaction(trs []*state.Transaction, oldState, newState *state.State) (*state.Transaction, bool)
}

// Plugin is the installable unit spec.md §3.9 names:
// {key, priority, state_field?, trait_impl?, metadata, dependencies}.
// Both StateField and TraitImpl are optional; a plugin that sets neither is
// legal but inert.
type Plugin struct {
	Key          Key
	Priority     int32
	StateField   StateField
	TraitImpl    TraitImpl
	Metadata     Metadata
	Dependencies []Key
}
