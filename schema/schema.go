package schema

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto"
)

// AttrType is a compiled attribute declaration carrying its default.
type AttrType struct {
	Name       string
	Default    interface{}
	HasDefault bool
}

// NodeType is a compiled node type (spec.md §3.3 point 1).
type NodeType struct {
	Name    string
	Content *ContentMatch
	Marks   map[string]bool // nil/absent means no marks allowed; allowAllMarks below handles "_"
	allowAllMarks bool
	Group   []string
	Desc    string
	Attrs   map[string]AttrType
	schema  *Schema
}

// DefaultAttrs returns the Attrs value populated with every declared
// attribute's default (spec.md §3.3 point 1: "computed default attribute
// values").
func (nt *NodeType) DefaultAttrs() map[string]interface{} {
	out := make(map[string]interface{}, len(nt.Attrs))
	for name, a := range nt.Attrs {
		if a.HasDefault {
			out[name] = a.Default
		}
	}
	return out
}

// AllowsMark reports whether a mark of markType may be applied to nodes of
// this type.
func (nt *NodeType) AllowsMark(markType string) bool {
	if nt.allowAllMarks {
		return true
	}
	return nt.Marks[markType]
}

// ApplyAttrs returns the subset of values whose keys are declared on this
// node type (spec.md §4.2 set_attrs: "replaces only schema-declared keys").
func (nt *NodeType) ApplyAttrs(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		if _, declared := nt.Attrs[k]; declared {
			out[k] = v
		}
	}
	return out
}

// MarkType is a compiled mark type (spec.md §3.3 point 3).
type MarkType struct {
	Name     string
	Attrs    map[string]AttrType
	Excludes map[string]bool // resolved set of mark type names this mark excludes
	Group    []string
	Spanning bool
	Desc     string
}

// DefaultAttrs mirrors NodeType.DefaultAttrs for marks.
func (mt *MarkType) DefaultAttrs() map[string]interface{} {
	out := make(map[string]interface{}, len(mt.Attrs))
	for name, a := range mt.Attrs {
		if a.HasDefault {
			out[name] = a.Default
		}
	}
	return out
}

// DoesExclude reports whether mt excludes the other mark type (by name).
// A mark type always excludes itself.
func (mt *MarkType) DoesExclude(other string) bool {
	return mt.Excludes[other] || other == mt.Name
}

// Schema is the compiled, immutable node/mark type registry (spec.md §3.3).
// Once returned from Compile it is never mutated and is safe to share
// across goroutines without synchronization.
type Schema struct {
	Nodes   map[string]*NodeType
	Marks   map[string]*MarkType
	TopNode string
	spec    SchemaSpec

	memo *ristretto.Cache // bounds memoization of ValidNextTypes lookups across large documents
}

// Compile materializes a Schema from a SchemaSpec, building the
// content-match automaton for every node type (spec.md §3.3).
func Compile(spec SchemaSpec) (*Schema, error) {
	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	if _, ok := spec.Nodes[top]; !ok {
		return nil, newCompileError("top node type %q is not defined", top)
	}

	s := &Schema{Nodes: map[string]*NodeType{}, Marks: map[string]*MarkType{}, TopNode: top, spec: spec}

	groupMembers := map[string][]string{} // group name -> member node type names
	for name, ns := range spec.Nodes {
		for _, g := range fields(ns.Group) {
			groupMembers[g] = append(groupMembers[g], name)
		}
	}
	markGroupMembers := map[string][]string{}
	for name, ms := range spec.Marks {
		for _, g := range fields(ms.Group) {
			markGroupMembers[g] = append(markGroupMembers[g], name)
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, newCompileError("failed to build schema memo cache: %v", err)
	}
	s.memo = cache

	for name, ms := range spec.Marks {
		mt := &MarkType{Name: name, Attrs: compileAttrs(ms.Attrs), Spanning: true, Desc: ms.Desc, Excludes: map[string]bool{}}
		if ms.Spanning != nil {
			mt.Spanning = *ms.Spanning
		}
		mt.Group = fields(ms.Group)
		s.Marks[name] = mt
	}
	for name, ms := range spec.Marks {
		mt := s.Marks[name]
		for _, tok := range fields(ms.Excludes) {
			if tok == "_" {
				for other := range s.Marks {
					mt.Excludes[other] = true
				}
				continue
			}
			if _, ok := s.Marks[tok]; ok {
				mt.Excludes[tok] = true
				continue
			}
			members, ok := markGroupMembers[tok]
			if !ok {
				return nil, newCompileError("mark %q excludes unknown mark or group %q", name, tok)
			}
			for _, m := range members {
				mt.Excludes[m] = true
			}
		}
	}

	for name, ns := range spec.Nodes {
		nt := &NodeType{Name: name, Attrs: compileAttrs(ns.Attrs), Desc: ns.Desc, Marks: map[string]bool{}, schema: s}
		nt.Group = fields(ns.Group)
		switch strings.TrimSpace(ns.Marks) {
		case "":
			// no marks allowed
		case "_":
			nt.allowAllMarks = true
		default:
			for _, tok := range fields(ns.Marks) {
				if _, ok := s.Marks[tok]; ok {
					nt.Marks[tok] = true
					continue
				}
				members, ok := markGroupMembers[tok]
				if !ok {
					return nil, newCompileError("node %q allows unknown mark or group %q", name, tok)
				}
				for _, m := range members {
					nt.Marks[m] = true
				}
			}
		}
		s.Nodes[name] = nt
	}

	resolve := func(token string) (func(string) bool, []string, error) {
		if _, ok := spec.Nodes[token]; ok {
			return func(t string) bool { return t == token }, []string{token}, nil
		}
		if members, ok := groupMembers[token]; ok {
			set := make(map[string]bool, len(members))
			for _, m := range members {
				set[m] = true
			}
			return func(t string) bool { return set[t] }, members, nil
		}
		return nil, nil, newCompileError("content expression references unknown node type or group %q", token)
	}

	for name, ns := range spec.Nodes {
		cm, err := compileContentExpr(ns.Content, resolve)
		if err != nil {
			return nil, newCompileError("node %q: %v", name, err)
		}
		s.Nodes[name].Content = cm
	}

	return s, nil
}

func compileAttrs(specs map[string]AttrSpec) map[string]AttrType {
	out := make(map[string]AttrType, len(specs))
	for name, a := range specs {
		out[name] = AttrType{Name: name, Default: a.Default, HasDefault: a.HasDefault}
	}
	return out
}

func fields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// ValidNextTypesMemo is ContentMatch.ValidNextTypes with the result
// memoized in the schema's bounded ristretto cache, keyed by node type and
// prefix. Large documents call this on every insertion-point computation
// (e.g. editor UI affordances), making the memoization worthwhile; the
// automaton lookup itself is already O(1) per step; caching amortizes the
// prefix-walk cost for long content sequences.
func (s *Schema) ValidNextTypesMemo(nodeType string, prefix []string) ([]string, bool) {
	nt, ok := s.Nodes[nodeType]
	if !ok {
		return nil, false
	}
	key := memoKey(nodeType, prefix)
	if v, found := s.memo.Get(key); found {
		cached := v.(cachedNext)
		return cached.types, cached.ok
	}
	types, ok := nt.Content.ValidNextTypes(prefix)
	s.memo.Set(key, cachedNext{types: types, ok: ok}, int64(len(types)+1))
	return types, ok
}

type cachedNext struct {
	types []string
	ok    bool
}

func memoKey(nodeType string, prefix []string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(nodeType)
	_, _ = h.Write([]byte{0})
	for _, p := range prefix {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// SortedNodeNames returns node type names in sorted order, useful for
// deterministic iteration (e.g. round-tripping back to a SchemaSpec).
func (s *Schema) SortedNodeNames() []string {
	names := make([]string, 0, len(s.Nodes))
	for n := range s.Nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Spec returns the SchemaSpec this Schema was compiled from (spec.md R1:
// round-tripping schema.compile(spec).serialize_back() ≡ spec).
func (s *Schema) Spec() SchemaSpec {
	return s.spec
}
