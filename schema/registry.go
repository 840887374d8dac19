package schema

// Registry merges independently loadable SchemaSpec fragments before
// compilation — the Go-native analog of original_source's extension
// manager resolving a schema from a set of installed "extensions"
// (core/src/extension_manager.rs), scoped here to schema composition only.
type Registry struct {
	fragments []SchemaSpec
	topNode   string
}

func NewRegistry() *Registry { return &Registry{} }

// Add registers a fragment. Later fragments win ties on TopNode only if
// earlier ones left it unset; node/mark name collisions across fragments
// are a compile error, never a silent overwrite.
func (r *Registry) Add(fragment SchemaSpec) *Registry {
	r.fragments = append(r.fragments, fragment)
	if r.topNode == "" {
		r.topNode = fragment.TopNode
	}
	return r
}

// Merge combines all added fragments into a single SchemaSpec, failing if
// any two fragments declare the same node or mark type name.
func (r *Registry) Merge() (SchemaSpec, error) {
	out := SchemaSpec{Nodes: map[string]NodeSpec{}, Marks: map[string]MarkSpec{}, TopNode: r.topNode}
	for _, frag := range r.fragments {
		for name, ns := range frag.Nodes {
			if _, exists := out.Nodes[name]; exists {
				return SchemaSpec{}, newCompileError("duplicate node type %q across schema fragments", name)
			}
			out.Nodes[name] = ns
		}
		for name, ms := range frag.Marks {
			if _, exists := out.Marks[name]; exists {
				return SchemaSpec{}, newCompileError("duplicate mark type %q across schema fragments", name)
			}
			out.Marks[name] = ms
		}
	}
	return out, nil
}

// Compile merges and compiles in one step.
func (r *Registry) Compile() (*Schema, error) {
	spec, err := r.Merge()
	if err != nil {
		return nil, err
	}
	return Compile(spec)
}
