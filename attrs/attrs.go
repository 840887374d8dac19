// Package attrs implements the persistent, JSON-valued attribute map
// carried by every Node (spec.md §3.2). Values are never mutated in place:
// every update returns a new Attrs sharing the unchanged entries of its
// parent, following the same "cheap derive off an immutable value" idiom
// the teacher's immutable.Node uses for node data.
package attrs

import "encoding/json"

// Attrs maps string keys to JSON-like values: nil, bool, float64, string,
// []interface{} or map[string]interface{}. Order is never observable.
type Attrs struct {
	m map[string]interface{}
}

// Empty is the zero-value Attrs: no keys, safe to use directly.
var Empty = Attrs{}

// New builds an Attrs from a plain map, copying it so the caller's map can
// be mutated afterwards without affecting the result.
func New(values map[string]interface{}) Attrs {
	if len(values) == 0 {
		return Empty
	}
	cp := make(map[string]interface{}, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Attrs{m: cp}
}

// Get returns the value at key and whether it was present.
func (a Attrs) Get(key string) (interface{}, bool) {
	if a.m == nil {
		return nil, false
	}
	v, ok := a.m[key]
	return v, ok
}

// Set returns a new Attrs with key bound to value, copying every other
// entry of the receiver into a fresh map; the receiver is left unchanged.
func (a Attrs) Set(key string, value interface{}) Attrs {
	cp := make(map[string]interface{}, len(a.m)+1)
	for k, v := range a.m {
		cp[k] = v
	}
	cp[key] = value
	return Attrs{m: cp}
}

// Merge returns a new Attrs with every key in updates applied on top of a,
// replacing only schema-declared keys is the caller's responsibility
// (see schema.NodeType.ApplyAttrs) — Merge itself is unconditional.
func (a Attrs) Merge(updates map[string]interface{}) Attrs {
	if len(updates) == 0 {
		return a
	}
	cp := make(map[string]interface{}, len(a.m)+len(updates))
	for k, v := range a.m {
		cp[k] = v
	}
	for k, v := range updates {
		cp[k] = v
	}
	return Attrs{m: cp}
}

// Keys returns the set of keys present, in no particular order.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a.m))
	for k := range a.m {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of keys.
func (a Attrs) Len() int { return len(a.m) }

// Diff returns the keys whose values differ (by deep equality) between a
// and other, including keys present in only one of them. Used by plugin
// field evolution tests and diagnostics to report what an AttrStep
// actually changed.
func (a Attrs) Diff(other Attrs) []string {
	var changed []string
	seen := make(map[string]bool, len(a.m)+len(other.m))
	for k := range a.m {
		seen[k] = true
	}
	for k := range other.m {
		seen[k] = true
	}
	for k := range seen {
		av, aok := a.Get(k)
		bv, bok := other.Get(k)
		if aok != bok || !deepEqual(av, bv) {
			changed = append(changed, k)
		}
	}
	return changed
}

func deepEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !deepEqual(v, bv[k]) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ToMap returns a shallow copy of the underlying map, safe for the caller
// to mutate.
func (a Attrs) ToMap() map[string]interface{} {
	cp := make(map[string]interface{}, len(a.m))
	for k, v := range a.m {
		cp[k] = v
	}
	return cp
}

// MarshalJSON/UnmarshalJSON let Attrs round-trip through the step and
// snapshot wire formats, which encode node and step payloads as JSON
// (spec.md §6.2's "field payload" is format-agnostic; JSON keeps the
// on-disk step_bytes human-inspectable during development).
func (a Attrs) MarshalJSON() ([]byte, error) {
	if a.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.m)
}

func (a *Attrs) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	a.m = m
	return nil
}
