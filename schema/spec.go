package schema

// SchemaSpec is the uncompiled description of a document's content model
// (spec.md §3.3). It may be built in Go code or loaded from XML (xml.go).
type SchemaSpec struct {
	Nodes   map[string]NodeSpec
	Marks   map[string]MarkSpec
	TopNode string // defaults to "doc" if empty
}

// NodeSpec describes one node type before compilation.
type NodeSpec struct {
	Content string // content expression source, empty means "no children"
	Marks   string // "_" means all marks allowed, empty means none, else space-separated mark/group names
	Group   string // space-separated group memberships
	Desc    string
	Attrs   map[string]AttrSpec
}

// MarkSpec describes one mark type before compilation.
type MarkSpec struct {
	Attrs    map[string]AttrSpec
	Excludes string // space-separated mark names/groups this mark excludes; "_" excludes all, empty excludes none
	Group    string
	Spanning *bool // nil means default true
	Desc     string
}

// AttrSpec carries an attribute's optional default JSON value. HasDefault
// distinguishes "default is JSON null" from "no default was specified".
type AttrSpec struct {
	Default    interface{}
	HasDefault bool
}

// Builder is a small fluent helper for constructing a SchemaSpec in Go
// code, the preferred path for tests and code-defined schemas (spec.md
// §6.1).
type Builder struct {
	spec SchemaSpec
}

func NewBuilder() *Builder {
	return &Builder{spec: SchemaSpec{Nodes: map[string]NodeSpec{}, Marks: map[string]MarkSpec{}}}
}

func (b *Builder) Node(name string, spec NodeSpec) *Builder {
	b.spec.Nodes[name] = spec
	return b
}

func (b *Builder) Mark(name string, spec MarkSpec) *Builder {
	b.spec.Marks[name] = spec
	return b
}

func (b *Builder) TopNode(name string) *Builder {
	b.spec.TopNode = name
	return b
}

func (b *Builder) Build() SchemaSpec {
	return b.spec
}
