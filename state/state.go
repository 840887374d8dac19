package state

import (
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/transform"
)

// Config carries per-runtime options visible to plugin state-field
// initialization (spec.md §3.9: "state_field.init(config, state)").
type Config map[string]interface{}

// State is the immutable root spec.md §3.8 names:
// {config, schema, doc: NodePool, plugin_fields, version, resource_manager}.
// Apply never mutates a State in place; it returns a new one, the same
// value-type discipline the document pool itself follows.
type State struct {
	config       Config
	schema       *schema.Schema
	doc          *pool.Pool
	pluginFields map[PluginKey]interface{}
	version      uint64
	resources    *ResourceManager
}

// New builds the initial State of a fresh runtime, with an empty
// plugin_fields map and version 0.
func New(config Config, s *schema.Schema, doc *pool.Pool, resources *ResourceManager) *State {
	return &State{
		config:       config,
		schema:       s,
		doc:          doc,
		pluginFields: map[PluginKey]interface{}{},
		resources:    resources,
	}
}

// Resume builds a State at a specific version and document, as produced by
// persistence recovery replaying a log onto a snapshot (spec.md §6.4's
// Runtime::from_snapshot). The returned State has no plugin field values:
// snapshots record them, but recovery does not read them back, so callers
// must still run each plugin's state_field.Init against the returned State.
func Resume(config Config, s *schema.Schema, doc *pool.Pool, version uint64, resources *ResourceManager) *State {
	return &State{
		config:       config,
		schema:       s,
		doc:          doc,
		pluginFields: map[PluginKey]interface{}{},
		version:      version,
		resources:    resources,
	}
}

func (s *State) Config() Config              { return s.config }
func (s *State) Schema() *schema.Schema      { return s.schema }
func (s *State) Doc() *pool.Pool             { return s.doc }
func (s *State) Version() uint64             { return s.version }
func (s *State) Resources() *ResourceManager { return s.resources }

// PluginField returns the opaque field value a plugin previously stashed
// on this State, if any (spec.md §3.8's plugin_fields map).
func (s *State) PluginField(key PluginKey) (interface{}, bool) {
	v, ok := s.pluginFields[key]
	return v, ok
}

// PluginFields returns a shallow copy of every plugin field currently
// stashed on this State, keyed by PluginKey. Used by persistence's
// snapshot writer to serialize the full plugin_fields map (spec.md §4.6:
// "a zstd-compressed blob of {node_pool_bytes, plugin_fields: map<key,
// bytes>}").
func (s *State) PluginFields() map[PluginKey]interface{} {
	out := make(map[PluginKey]interface{}, len(s.pluginFields))
	for k, v := range s.pluginFields {
		out[k] = v
	}
	return out
}

// WithPluginField returns a copy of s with key's field value replaced,
// sharing every other plugin's field value by reference. Runtime's field
// evolution phase (spec.md §4.3 point 3) calls this once per plugin with a
// state_field, threading the result forward to the next plugin's call.
func (s *State) WithPluginField(key PluginKey, value interface{}) *State {
	next := *s
	next.pluginFields = make(map[PluginKey]interface{}, len(s.pluginFields)+1)
	for k, v := range s.pluginFields {
		next.pluginFields[k] = v
	}
	next.pluginFields[key] = value
	return &next
}

// WithVersion returns a copy of s with its version field replaced. Runtime's
// append-phase fixed point (spec.md §4.3 point 4) uses this to fold the
// primary apply and every plugin-appended transaction's Apply into the
// single version bump one dispatch is owed (spec.md §8's P3: version
// increases by exactly one per successful dispatch, not once per appended
// transaction).
func (s *State) WithVersion(v uint64) *State {
	next := *s
	next.version = v
	return &next
}

// Apply performs spec.md §4.3 point 2, the "primary apply" phase only: the
// filter phase, field evolution, and append fixed-point are the dispatch
// pipeline's job (package runtime), not State's. Apply re-materializes
// tr's recorded steps against THIS state's doc — which may differ from
// the doc tr was originally opened against, when tr is being replayed
// against an intermediate state during the append phase's fixed-point loop
// — and overwrites tr's invert_steps with the ones observed during this
// replay, exactly as spec.md §4.3 directs: "record tr.invert_steps as each
// step is applied."
func (s *State) Apply(tr *Transaction) (*State, error) {
	if err := tr.Failed(); err != nil {
		return nil, err
	}
	replay := transform.New(s.schema, s.doc)
	for _, st := range tr.Steps() {
		if err := replay.Step(st); err != nil {
			return nil, err
		}
	}
	tr.invertSteps = replay.InvertSteps()

	next := &State{
		config:       s.config,
		schema:       s.schema,
		doc:          replay.Commit(),
		pluginFields: s.pluginFields,
		version:      s.version + 1,
		resources:    s.resources,
	}
	return next, nil
}
