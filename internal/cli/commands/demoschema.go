package commands

import (
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

// demoSchema is the fixed content model docweavectl exercises: a doc made
// of one or more pages, each holding zero or more paragraphs carrying
// freeform text in a "text" attribute. It is deliberately small; the
// point of the CLI is to exercise create/append/inspect/replay, not to
// demonstrate schema authoring.
func demoSchema() (*schema.Schema, error) {
	spec := schema.NewBuilder().
		Node("doc", schema.NodeSpec{Content: "page+"}).
		Node("page", schema.NodeSpec{Content: "para*"}).
		Node("para", schema.NodeSpec{
			Content: "",
			Marks:   "_",
			Attrs: map[string]schema.AttrSpec{
				"text": {Default: "", HasDefault: true},
			},
		}).
		TopNode("doc").
		Build()
	return schema.Compile(spec)
}

// firstPage returns the id of doc's first page, the target append
// operates on when the caller doesn't name one explicitly.
func firstPage(doc *pool.Pool) (id.NodeId, bool) {
	root, ok := doc.Get(doc.Root())
	if !ok || len(root.Content) == 0 {
		return "", false
	}
	return root.Content[0], true
}
