package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testSchemaSpec builds the scenario schema used throughout spec.md §8:
// doc -> page+, page -> para*, para is a leaf with a text attr, and a
// bold mark with no attrs.
func testSchemaSpec() SchemaSpec {
	return NewBuilder().
		Node("doc", NodeSpec{Content: "page+"}).
		Node("page", NodeSpec{Content: "para*"}).
		Node("para", NodeSpec{Content: "", Marks: "_", Attrs: map[string]AttrSpec{
			"text": {Default: "", HasDefault: true},
		}}).
		Mark("bold", MarkSpec{}).
		TopNode("doc").
		Build()
}

func TestCompileScenarioSchema(t *testing.T) {
	s, err := Compile(testSchemaSpec())
	require.NoError(t, err)
	require.Equal(t, "doc", s.TopNode)

	doc := s.Nodes["doc"]
	require.NotNil(t, doc)
	require.True(t, doc.Content.Matches([]string{"page"}))
	require.True(t, doc.Content.Matches([]string{"page", "page"}))
	require.False(t, doc.Content.Matches(nil))

	page := s.Nodes["page"]
	require.True(t, page.Content.AcceptsEmpty())
	require.True(t, page.Content.Matches([]string{"para", "para"}))

	para := s.Nodes["para"]
	require.True(t, para.Content.AcceptsEmpty())
	require.False(t, para.Content.Matches([]string{"para"}))
	require.True(t, para.AllowsMark("bold"))
	require.Equal(t, "", para.DefaultAttrs()["text"])

	bold := s.Marks["bold"]
	require.NotNil(t, bold)
}

func TestCompileMissingTopNode(t *testing.T) {
	spec := NewBuilder().Node("page", NodeSpec{}).TopNode("doc").Build()
	_, err := Compile(spec)
	require.Error(t, err)
}

func TestCompileUnknownContentReference(t *testing.T) {
	spec := NewBuilder().
		Node("doc", NodeSpec{Content: "paragraph+"}).
		TopNode("doc").
		Build()
	_, err := Compile(spec)
	require.Error(t, err)
}

func TestMarkExcludes(t *testing.T) {
	spanning := false
	spec := NewBuilder().
		Node("doc", NodeSpec{Content: "", Marks: "_"}).
		TopNode("doc").
		Mark("bold", MarkSpec{}).
		Mark("strong", MarkSpec{Excludes: "bold", Spanning: &spanning}).
		Build()
	s, err := Compile(spec)
	require.NoError(t, err)
	require.True(t, s.Marks["strong"].DoesExclude("bold"))
	require.True(t, s.Marks["strong"].DoesExclude("strong")) // a mark always excludes itself
	require.False(t, s.Marks["bold"].DoesExclude("strong"))
	require.False(t, s.Marks["strong"].Spanning)
}

func TestRegistryMerge(t *testing.T) {
	r := NewRegistry()
	r.Add(NewBuilder().Node("doc", NodeSpec{Content: "page+"}).TopNode("doc").Build())
	r.Add(NewBuilder().Node("page", NodeSpec{Content: "para*"}).Build())
	s, err := r.Compile()
	require.NoError(t, err)
	require.Len(t, s.Nodes, 2)
}

func TestRegistryDuplicateNode(t *testing.T) {
	r := NewRegistry()
	r.Add(NewBuilder().Node("doc", NodeSpec{}).TopNode("doc").Build())
	r.Add(NewBuilder().Node("doc", NodeSpec{}).Build())
	_, err := r.Compile()
	require.Error(t, err)
}
