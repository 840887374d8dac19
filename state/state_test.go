package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/step"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	spec := schema.NewBuilder().
		Node("doc", schema.NodeSpec{Content: "page+"}).
		Node("page", schema.NodeSpec{Content: "para*"}).
		Node("para", schema.NodeSpec{Content: "", Marks: "_"}).
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

func TestStateApplyAdvancesVersionAndDoc(t *testing.T) {
	s := testSchema(t)
	doc, _, pageId := seedDoc(t, s)
	st := New(Config{"name": "doc1"}, s, doc, NewResourceManager())

	tr := NewTransaction(1, st)
	paraId := id.Generate()
	require.NoError(t, tr.Step(&step.AddNodeStep{ParentId: pageId, Nodes: []node.Node{node.New(paraId, "para", attrs.Empty, nil, nil)}}))

	next, err := st.Apply(tr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), next.Version())
	require.Equal(t, uint64(0), st.Version())

	page, ok := next.Doc().Get(pageId)
	require.True(t, ok)
	require.Equal(t, []id.NodeId{paraId}, page.Content)

	// the base State's doc is untouched
	oldPage, _ := st.Doc().Get(pageId)
	require.Empty(t, oldPage.Content)

	require.Len(t, tr.InvertSteps(), 1)
	rm, ok := tr.InvertSteps()[0].(*step.RemoveNodeStep)
	require.True(t, ok)
	require.Equal(t, pageId, rm.ParentId)
}

func TestStateApplyPoisonedTransactionFails(t *testing.T) {
	s := testSchema(t)
	doc, docId, _ := seedDoc(t, s)
	st := New(nil, s, doc, NewResourceManager())

	tr := NewTransaction(1, st)
	err := tr.Step(&step.AddNodeStep{ParentId: docId, Nodes: []node.Node{node.New(id.Generate(), "para", attrs.Empty, nil, nil)}})
	require.Error(t, err)

	_, applyErr := st.Apply(tr)
	require.Error(t, applyErr)
	require.Equal(t, err, applyErr)
}

func TestStateApplyReplaysAgainstGivenDoc(t *testing.T) {
	// A transaction opened against one state can be re-materialized
	// against a different (but compatible) doc, as the append phase's
	// fixed-point loop requires (spec.md §4.3 point 2).
	s := testSchema(t)
	doc, _, pageId := seedDoc(t, s)
	base := New(nil, s, doc, NewResourceManager())

	paraId := id.Generate()
	tr := NewTransaction(1, base)
	require.NoError(t, tr.Step(&step.AddNodeStep{ParentId: pageId, Nodes: []node.Node{node.New(paraId, "para", attrs.Empty, nil, nil)}}))

	// advance the doc independently (simulating an earlier transaction in
	// the same append pass already having landed) before replaying tr.
	secondPage := id.Generate()
	d := doc.Draft()
	require.NoError(t, d.AddNode(s, mustRoot(t, doc), 1, node.New(secondPage, "page", attrs.Empty, nil, nil)))
	advancedDoc := d.Commit()
	intermediate := New(nil, s, advancedDoc, base.Resources())

	next, err := intermediate.Apply(tr)
	require.NoError(t, err)
	page, _ := next.Doc().Get(pageId)
	require.Equal(t, []id.NodeId{paraId}, page.Content)
	_, stillPresent := next.Doc().Get(secondPage)
	require.True(t, stillPresent)
}

func mustRoot(t *testing.T, p *pool.Pool) id.NodeId {
	t.Helper()
	require.False(t, p.Root().IsZero())
	return p.Root()
}

func TestTransactionDescribeUsesMetaOverride(t *testing.T) {
	s := testSchema(t)
	doc, _, pageId := seedDoc(t, s)
	st := New(nil, s, doc, NewResourceManager())

	tr := NewTransaction(1, st)
	require.NoError(t, tr.Step(&step.AddNodeStep{ParentId: pageId, Nodes: []node.Node{node.New(id.Generate(), "para", attrs.Empty, nil, nil)}}))
	require.Equal(t, "AddNodeStep", tr.Describe())

	tr.SetMeta("description", "insert paragraph")
	require.Equal(t, "insert paragraph", tr.Describe())
}

func TestResourceManagerRegisterAndLookup(t *testing.T) {
	rm := NewResourceManager()
	type counter struct{ n int }
	Register(rm, &counter{n: 3})

	got, ok := Resource[*counter](rm)
	require.True(t, ok)
	require.Equal(t, 3, got.n)

	_, ok = Resource[*schema.Schema](rm)
	require.False(t, ok)
}

func TestStateWithPluginFieldIsolatesOtherFields(t *testing.T) {
	s := testSchema(t)
	doc, _, _ := seedDoc(t, s)
	st := New(nil, s, doc, NewResourceManager())

	keyA := PluginKey{Name: "a"}
	keyB := PluginKey{Name: "b"}
	st2 := st.WithPluginField(keyA, 1)
	st3 := st2.WithPluginField(keyB, 2)

	va, ok := st3.PluginField(keyA)
	require.True(t, ok)
	require.Equal(t, 1, va)
	vb, ok := st3.PluginField(keyB)
	require.True(t, ok)
	require.Equal(t, 2, vb)

	_, ok = st.PluginField(keyA)
	require.False(t, ok)
}
