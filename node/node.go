// Package node defines the document's vertex and annotation types
// (spec.md §3.4): Node and Mark. Both are immutable values; every edit
// produces a new Node sharing the parts that did not change, mirroring the
// teacher's immutable.Node / common.NodeData read-only node shape.
package node

import (
	"github.com/docweave/docweave/attrs"
	"github.com/docweave/docweave/id"
)

// Mark is a named annotation attached to a Node (bold, link, ...).
type Mark struct {
	Type  string
	Attrs attrs.Attrs
}

// Equal reports whether two marks have the same type and attributes.
func (m Mark) Equal(other Mark) bool {
	return m.Type == other.Type && len(m.Attrs.Diff(other.Attrs)) == 0
}

// Node is a typed, attributed, mark-bearing vertex (spec.md §3.4). Content
// stores child ids only; the children themselves live in the owning
// NodePool. Node is a plain immutable value — copying it is cheap and
// every mutation in package pool produces a new Node rather than editing
// one in place.
type Node struct {
	Id      id.NodeId
	Type    string
	Attrs   attrs.Attrs
	Content []id.NodeId
	Marks   []Mark
}

// New builds a Node, copying content and marks so the caller's slices can
// be reused afterwards.
func New(nodeId id.NodeId, typ string, a attrs.Attrs, content []id.NodeId, marks []Mark) Node {
	c := make([]id.NodeId, len(content))
	copy(c, content)
	ms := make([]Mark, len(marks))
	copy(ms, marks)
	return Node{Id: nodeId, Type: typ, Attrs: a, Content: c, Marks: ms}
}

// WithContent returns a copy of n with Content replaced.
func (n Node) WithContent(content []id.NodeId) Node {
	c := make([]id.NodeId, len(content))
	copy(c, content)
	n.Content = c
	return n
}

// WithAttrs returns a copy of n with Attrs replaced.
func (n Node) WithAttrs(a attrs.Attrs) Node {
	n.Attrs = a
	return n
}

// WithMarks returns a copy of n with Marks replaced.
func (n Node) WithMarks(marks []Mark) Node {
	ms := make([]Mark, len(marks))
	copy(ms, marks)
	n.Marks = ms
	return n
}

// HasMark reports whether n carries a mark of the given type.
func (n Node) HasMark(markType string) bool {
	for _, m := range n.Marks {
		if m.Type == markType {
			return true
		}
	}
	return false
}

// IndexOfChild returns the position of childID in Content, or -1.
func (n Node) IndexOfChild(childID id.NodeId) int {
	for i, c := range n.Content {
		if c == childID {
			return i
		}
	}
	return -1
}

// ContentTypes returns, for a resolver that knows the type of each child
// id, the ordered sequence of child type names. Used by the schema content
// automaton to validate Content against the node's content expression.
func (n Node) ContentTypes(typeOf func(id.NodeId) (string, bool)) ([]string, bool) {
	types := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		t, ok := typeOf(c)
		if !ok {
			return nil, false
		}
		types = append(types, t)
	}
	return types, true
}
