package step

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	spec := schema.NewBuilder().
		Node("doc", schema.NodeSpec{Content: "page+"}).
		Node("page", schema.NodeSpec{Content: "para*"}).
		Node("para", schema.NodeSpec{Content: "", Marks: "_", Attrs: map[string]schema.AttrSpec{
			"text": {Default: "", HasDefault: true},
		}}).
		Mark("bold", schema.MarkSpec{}).
		Mark("strong", schema.MarkSpec{Excludes: "bold"}).
		TopNode("doc").
		Build()
	s, err := schema.Compile(spec)
	require.NoError(t, err)
	return s
}

func seedDoc(t *testing.T, s *schema.Schema) (*pool.Pool, id.NodeId, id.NodeId) {
	t.Helper()
	docId, pageId := id.Generate(), id.Generate()
	p := pool.Empty()
	d := p.Draft()
	require.NoError(t, d.InitRoot(s, node.New(docId, "doc", attrs.Empty, nil, nil)))
	p = d.Commit()
	d2 := p.Draft()
	require.NoError(t, d2.AddNode(s, docId, 0, node.New(pageId, "page", attrs.Empty, nil, nil)))
	return d2.Commit(), docId, pageId
}

func TestAddNodeStepApplyAndInvert(t *testing.T) {
	s := testSchema(t)
	p, _, pageId := seedDoc(t, s)

	paraId := id.Generate()
	add := &AddNodeStep{ParentId: pageId, Nodes: []node.Node{node.New(paraId, "para", attrs.Empty, nil, nil)}}

	d := p.Draft()
	res := add.Apply(d, s)
	require.True(t, res.Ok())
	p2 := d.Commit()

	page, _ := p2.Get(pageId)
	require.Equal(t, []id.NodeId{paraId}, page.Content)

	inv, ok := add.Invert(p)
	require.True(t, ok)
	rm, isRemove := inv.(*RemoveNodeStep)
	require.True(t, isRemove)
	require.Equal(t, pageId, rm.ParentId)
	require.Equal(t, []id.NodeId{paraId}, rm.NodeIds)

	d2 := p2.Draft()
	res2 := inv.Apply(d2, s)
	require.True(t, res2.Ok())
	p3 := d2.Commit()
	page3, _ := p3.Get(pageId)
	require.Empty(t, page3.Content)
	require.NoError(t, p3.Validate())
}

func TestAddNodeStepRejectsContentViolation(t *testing.T) {
	s := testSchema(t)
	p, docId, _ := seedDoc(t, s)

	add := &AddNodeStep{ParentId: docId, Nodes: []node.Node{node.New(id.Generate(), "para", attrs.Empty, nil, nil)}}
	d := p.Draft()
	res := add.Apply(d, s)
	require.False(t, res.Ok())
	require.Error(t, res.Err)

	// draft must be left exactly as found
	doc, _ := d.Get(docId)
	require.Len(t, doc.Content, 1)
}

func TestRemoveNodeStepInvertRestoresSubtree(t *testing.T) {
	s := testSchema(t)
	p, _, pageId := seedDoc(t, s)

	paraId := id.Generate()
	d := p.Draft()
	require.NoError(t, d.AddNode(s, pageId, 0, node.New(paraId, "para", attrs.Empty, nil, nil)))
	p2 := d.Commit()

	rm := &RemoveNodeStep{ParentId: pageId, NodeIds: []id.NodeId{paraId}}
	d2 := p2.Draft()
	res := rm.Apply(d2, s)
	require.True(t, res.Ok())
	p3 := d2.Commit()
	page3, _ := p3.Get(pageId)
	require.Empty(t, page3.Content)

	inv, ok := rm.Invert(p2)
	require.True(t, ok)
	d3 := p3.Draft()
	res2 := inv.Apply(d3, s)
	require.True(t, res2.Ok())
	p4 := d3.Commit()
	page4, _ := p4.Get(pageId)
	require.Equal(t, []id.NodeId{paraId}, page4.Content)
	require.NoError(t, p4.Validate())
}

func TestMoveNodeStepApplyAndInvert(t *testing.T) {
	s := testSchema(t)
	p, docId, pageId := seedDoc(t, s)

	secondPage := id.Generate()
	d := p.Draft()
	require.NoError(t, d.AddNode(s, docId, 1, node.New(secondPage, "page", attrs.Empty, nil, nil)))
	p2 := d.Commit()

	move := &MoveNodeStep{NodeId: pageId, TargetParentId: docId, Position: intPtr(2)}
	d2 := p2.Draft()
	res := move.Apply(d2, s)
	require.True(t, res.Ok())
	p3 := d2.Commit()
	doc3, _ := p3.Get(docId)
	require.Equal(t, []id.NodeId{secondPage, pageId}, doc3.Content)

	inv, ok := move.Invert(p2)
	require.True(t, ok)
	d3 := p3.Draft()
	res2 := inv.Apply(d3, s)
	require.True(t, res2.Ok())
	p4 := d3.Commit()
	doc4, _ := p4.Get(docId)
	require.Equal(t, []id.NodeId{pageId, secondPage}, doc4.Content)
}

func TestMoveNodeStepRejectsMoveUnderOwnDescendant(t *testing.T) {
	s := testSchema(t)
	p, docId, pageId := seedDoc(t, s)

	move := &MoveNodeStep{NodeId: docId, TargetParentId: pageId}
	d := p.Draft()
	res := move.Apply(d, s)
	require.False(t, res.Ok())
	// draft is untouched: doc's content is unchanged
	doc, _ := d.Get(docId)
	require.Equal(t, []id.NodeId{pageId}, doc.Content)
}

func TestAttrStepApplyAndInvert(t *testing.T) {
	s := testSchema(t)
	p, _, pageId := seedDoc(t, s)
	paraId := id.Generate()
	d := p.Draft()
	require.NoError(t, d.AddNode(s, pageId, 0, node.New(paraId, "para", attrs.New(map[string]interface{}{"text": "hi"}), nil, nil)))
	p2 := d.Commit()

	set := &AttrStep{NodeId: paraId, Values: map[string]interface{}{"text": "bye"}}
	d2 := p2.Draft()
	res := set.Apply(d2, s)
	require.True(t, res.Ok())
	p3 := d2.Commit()
	para3, _ := p3.Get(paraId)
	v, _ := para3.Attrs.Get("text")
	require.Equal(t, "bye", v)

	inv, ok := set.Invert(p2)
	require.True(t, ok)
	d3 := p3.Draft()
	res2 := inv.Apply(d3, s)
	require.True(t, res2.Ok())
	p4 := d3.Commit()
	para4, _ := p4.Get(paraId)
	v2, _ := para4.Attrs.Get("text")
	require.Equal(t, "hi", v2)
}

func TestAddMarkStepExclusionAndInvert(t *testing.T) {
	s := testSchema(t)
	p, _, pageId := seedDoc(t, s)
	paraId := id.Generate()
	d := p.Draft()
	require.NoError(t, d.AddNode(s, pageId, 0, node.New(paraId, "para", attrs.Empty, nil, nil)))
	p2 := d.Commit()

	add := &AddMarkStep{NodeId: paraId, Marks: []node.Mark{{Type: "bold"}}}
	d2 := p2.Draft()
	res := add.Apply(d2, s)
	require.True(t, res.Ok())
	p3 := d2.Commit()
	para3, _ := p3.Get(paraId)
	require.True(t, para3.HasMark("bold"))

	inv, ok := add.Invert(p2)
	require.True(t, ok)
	d3 := p3.Draft()
	res2 := inv.Apply(d3, s)
	require.True(t, res2.Ok())
	p4 := d3.Commit()
	para4, _ := p4.Get(paraId)
	require.False(t, para4.HasMark("bold"))

	addBold := &AddMarkStep{NodeId: paraId, Marks: []node.Mark{{Type: "bold"}}}
	d4 := p4.Draft()
	res3 := addBold.Apply(d4, s)
	require.True(t, res3.Ok())
	p5 := d4.Commit()
	para5, _ := p5.Get(paraId)
	require.True(t, para5.HasMark("bold"))

	addStrong := &AddMarkStep{NodeId: paraId, Marks: []node.Mark{{Type: "strong"}}}
	d5 := p5.Draft()
	res4 := addStrong.Apply(d5, s)
	require.True(t, res4.Ok())
	p6 := d5.Commit()
	para6, _ := p6.Get(paraId)
	require.True(t, para6.HasMark("strong"))
	require.False(t, para6.HasMark("bold"))
}

func TestStepSerializeRoundTrip(t *testing.T) {
	add := &AddNodeStep{ParentId: id.Generate(), Nodes: []node.Node{node.New(id.Generate(), "para", attrs.New(map[string]interface{}{"text": "x"}), nil, nil)}}
	data, err := add.Serialize()
	require.NoError(t, err)
	decoded, err := Decode(add.Name(), data)
	require.NoError(t, err)
	redone, ok := decoded.(*AddNodeStep)
	require.True(t, ok)
	require.Equal(t, add.ParentId, redone.ParentId)
	require.Equal(t, add.Nodes[0].Id, redone.Nodes[0].Id)
	v, _ := redone.Nodes[0].Attrs.Get("text")
	require.Equal(t, "x", v)
}

func intPtr(v int) *int { return &v }
