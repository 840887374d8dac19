package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	spec := schema.NewBuilder().
		Node("doc", schema.NodeSpec{Content: "page+"}).
		Node("page", schema.NodeSpec{Content: "para*"}).
		Node("para", schema.NodeSpec{Content: "", Marks: "_"}).
		Mark("bold", schema.MarkSpec{}).
		Mark("italic", schema.MarkSpec{}).
		Mark("strong", schema.MarkSpec{Excludes: "bold"}).
		TopNode("doc").
		Build()
	s, err := schema.Compile(spec)
	require.NoError(t, err)
	return s
}

func buildDoc(t *testing.T, s *schema.Schema) (*Pool, id.NodeId, id.NodeId) {
	t.Helper()
	docId, pageId := id.Generate(), id.Generate()
	p := Empty()
	d := p.Draft()
	require.NoError(t, d.InitRoot(s, node.New(docId, "doc", attrs.Empty, nil, nil)))
	p = d.Commit()

	d2 := p.Draft()
	require.NoError(t, d2.AddNode(s, docId, 0, node.New(pageId, "page", attrs.Empty, nil, nil)))
	p2 := d2.Commit()
	return p2, docId, pageId
}

func TestAddNodeAndValidate(t *testing.T) {
	s := testSchema(t)
	p, docId, pageId := buildDoc(t, s)

	require.NoError(t, p.Validate())
	doc, ok := p.Get(docId)
	require.True(t, ok)
	require.Equal(t, []id.NodeId{pageId}, doc.Content)
}

func TestAddNodeRejectsContentModelViolation(t *testing.T) {
	s := testSchema(t)
	p, docId, _ := buildDoc(t, s)

	d := p.Draft()
	paraId := id.Generate()
	// para is not a valid direct child of doc (doc only accepts page+).
	err := d.AddNode(s, docId, 0, node.New(paraId, "para", attrs.Empty, nil, nil))
	require.Error(t, err)
}

func TestRemoveNodeRejectsWhenContentModelWouldBreak(t *testing.T) {
	s := testSchema(t)
	p, docId, pageId := buildDoc(t, s)

	// doc requires page+, so removing the only page must be rejected.
	d := p.Draft()
	require.Error(t, d.RemoveNode(s, docId, pageId))
}

func TestRemoveNodeSucceedsWhenSiblingRemains(t *testing.T) {
	s := testSchema(t)
	p, docId, pageId := buildDoc(t, s)

	d := p.Draft()
	secondPage := id.Generate()
	require.NoError(t, d.AddNode(s, docId, 1, node.New(secondPage, "page", attrs.Empty, nil, nil)))
	p2 := d.Commit()

	d2 := p2.Draft()
	require.NoError(t, d2.RemoveNode(s, docId, pageId))
	p3 := d2.Commit()

	require.NoError(t, p3.Validate())
	doc, _ := p3.Get(docId)
	require.Equal(t, []id.NodeId{secondPage}, doc.Content)
	_, stillThere := p3.Get(pageId)
	require.False(t, stillThere)
}

func TestMoveNodeWithinSameParent(t *testing.T) {
	s := testSchema(t)
	p, docId, _ := buildDoc(t, s)

	d := p.Draft()
	secondPage := id.Generate()
	require.NoError(t, d.AddNode(s, docId, 1, node.New(secondPage, "page", attrs.Empty, nil, nil)))
	p2 := d.Commit()

	doc, _ := p2.Get(docId)
	require.Len(t, doc.Content, 2)
	first := doc.Content[0]

	d2 := p2.Draft()
	require.NoError(t, d2.MoveNode(s, docId, first, docId, 2))
	p3 := d2.Commit()
	doc3, _ := p3.Get(docId)
	require.Equal(t, secondPage, doc3.Content[0])
	require.Equal(t, first, doc3.Content[1])
}

func TestMoveNodeRejectsSelfDescendant(t *testing.T) {
	s := testSchema(t)
	p, docId, pageId := buildDoc(t, s)
	d := p.Draft()
	err := d.MoveNode(s, docId, docId, pageId, 0)
	require.Error(t, err)
}

func TestAddMarkExclusion(t *testing.T) {
	s := testSchema(t)
	docId, pageId := id.Generate(), id.Generate()
	paraId := id.Generate()
	p := Empty()
	d := p.Draft()
	require.NoError(t, d.InitRoot(s, node.New(docId, "doc", attrs.Empty, nil, nil)))
	p = d.Commit()
	d2 := p.Draft()
	require.NoError(t, d2.AddNode(s, docId, 0, node.New(pageId, "page", attrs.Empty, nil, nil)))
	p2 := d2.Commit()
	d3 := p2.Draft()
	require.NoError(t, d3.AddNode(s, pageId, 0, node.New(paraId, "para", attrs.Empty, nil, nil)))
	p3 := d3.Commit()

	d4 := p3.Draft()
	require.NoError(t, d4.AddMark(s, paraId, node.Mark{Type: "bold"}))
	require.NoError(t, d4.AddMark(s, paraId, node.Mark{Type: "italic"}))
	p4 := d4.Commit()
	para, _ := p4.Get(paraId)
	require.Len(t, para.Marks, 2)

	d5 := p4.Draft()
	require.NoError(t, d5.AddMark(s, paraId, node.Mark{Type: "strong"}))
	p5 := d5.Commit()
	para2, _ := p5.Get(paraId)
	require.Len(t, para2.Marks, 2)
	var types []string
	for _, m := range para2.Marks {
		types = append(types, m.Type)
	}
	require.Contains(t, types, "strong")
	require.Contains(t, types, "italic")
	require.NotContains(t, types, "bold")
}

func TestValidateAcceptsEmptyPoolWithoutRoot(t *testing.T) {
	p := Empty()
	require.NoError(t, p.Validate())
}

