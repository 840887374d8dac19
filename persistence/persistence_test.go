package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/runtime"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/state"
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

func seedDoc(t *testing.T, s *schema.Schema) (*pool.Pool, id.NodeId) {
	t.Helper()
	docId, pageId := id.Generate(), id.Generate()
	p := pool.Empty()
	d := p.Draft()
	require.NoError(t, d.InitRoot(s, node.New(docId, "doc", attrs.Empty, nil, nil)))
	p = d.Commit()
	d2 := p.Draft()
	require.NoError(t, d2.AddNode(s, docId, 0, node.New(pageId, "page", attrs.Empty, nil, nil)))
	return d2.Commit(), pageId
}

func TestAppendAndRecoverRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := testSchema(t)
	doc, pageId := seedDoc(t, s)

	w, err := Open(dir, s, DefaultOptions(), 0)
	require.NoError(t, err)

	base := state.New(nil, s, doc, state.NewResourceManager())
	tr := state.NewTransaction(1, base)
	paraId := id.Generate()
	require.NoError(t, tr.Step(&step.AddNodeStep{ParentId: pageId, Nodes: []node.Node{node.New(paraId, "para", attrs.Empty, nil, nil)}}))
	next, err := base.Apply(tr)
	require.NoError(t, err)

	lsn, err := w.Append(tr.Steps())
	require.NoError(t, err)
	require.Equal(t, uint64(1), lsn)
	require.NoError(t, w.Close())

	recovered, lastLSN, err := Recover(dir, nil, s, state.NewResourceManager())
	require.NoError(t, err)
	require.Equal(t, uint64(1), lastLSN)

	page, ok := recovered.Doc().Get(pageId)
	require.True(t, ok)
	require.Equal(t, []id.NodeId{paraId}, page.Content)

	wantPage, _ := next.Doc().Get(pageId)
	require.Equal(t, wantPage.Content, page.Content)
}

func TestSnapshotThenRecoverSkipsCoveredLog(t *testing.T) {
	dir := t.TempDir()
	s := testSchema(t)
	doc, pageId := seedDoc(t, s)

	w, err := Open(dir, s, DefaultOptions(), 0)
	require.NoError(t, err)

	base := state.New(nil, s, doc, state.NewResourceManager())
	tr := state.NewTransaction(1, base)
	paraId := id.Generate()
	require.NoError(t, tr.Step(&step.AddNodeStep{ParentId: pageId, Nodes: []node.Node{node.New(paraId, "para", attrs.Empty, nil, nil)}}))
	next, err := base.Apply(tr)
	require.NoError(t, err)
	_, err = w.Append(tr.Steps())
	require.NoError(t, err)

	require.NoError(t, w.Snapshot(next))
	require.NoError(t, w.Close())

	recovered, lastLSN, err := Recover(dir, nil, s, state.NewResourceManager())
	require.NoError(t, err)
	require.Equal(t, uint64(1), lastLSN)
	page, ok := recovered.Doc().Get(pageId)
	require.True(t, ok)
	require.Len(t, page.Content, 1)
}

func TestRecoverWithNoDirectoryReturnsEmptyState(t *testing.T) {
	dir := t.TempDir()
	s := testSchema(t)
	recovered, lastLSN, err := Recover(dir, nil, s, state.NewResourceManager())
	require.NoError(t, err)
	require.Equal(t, uint64(0), lastLSN)
	require.True(t, recovered.Doc().Root().IsZero())
}

func TestWriterSubscribeAppendsOnDispatch(t *testing.T) {
	dir := t.TempDir()
	s := testSchema(t)
	doc, pageId := seedDoc(t, s)

	w, err := Open(dir, s, DefaultOptions(), 0)
	require.NoError(t, err)
	defer w.Close()

	rt, err := runtime.Create(runtime.DefaultOptions(), nil, s, doc, nil, nil)
	require.NoError(t, err)
	w.Subscribe(rt.Bus())

	_, err = rt.Command(func(tr *state.Transaction) error {
		return tr.Step(&step.AddNodeStep{
			ParentId: pageId,
			Nodes:    []node.Node{node.New(id.Generate(), "para", attrs.Empty, nil, nil)},
		})
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recovered, lastLSN, err := Recover(dir, nil, s, state.NewResourceManager())
		if err != nil || lastLSN != 1 {
			return false
		}
		page, ok := recovered.Doc().Get(pageId)
		return ok && len(page.Content) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFlushReturnsImmediatelyInSyncDurableMode(t *testing.T) {
	dir := t.TempDir()
	s := testSchema(t)
	w, err := Open(dir, s, DefaultOptions(), 0)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Flush(ctx))
}
