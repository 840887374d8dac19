// Package state implements the immutable State and the Transaction opened
// against it (spec.md §3.7, §3.8). State and Transaction share one package
// because a Transaction's invert_steps can only be finalized by replaying
// its steps against whatever State.Apply is eventually called with, so the
// two types are never meaningfully separable without an import cycle
// through Transform.
package state

// PluginKey identifies a plugin by name within a namespace (spec.md §3.9).
// It is the map key for State.plugin_fields and the comparison key plugin
// dependency resolution and priority tie-breaking both use.
type PluginKey struct {
	Name      string
	Namespace string
}

// String renders the key as "namespace/name", used in log messages and
// History descriptions.
func (k PluginKey) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "/" + k.Name
}
