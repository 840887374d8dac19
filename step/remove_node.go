package step

import (
	"encoding/json"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

const nameRemoveNode = "RemoveNodeStep"

// RemoveNodeStep detaches node_ids (all children of parent_id) from the
// tree; removal cascades to every descendant (spec.md §3.6, §4.2).
type RemoveNodeStep struct {
	ParentId id.NodeId
	NodeIds  []id.NodeId
}

func (s *RemoveNodeStep) Name() string { return nameRemoveNode }

func (s *RemoveNodeStep) Apply(d *pool.Draft, sc *schema.Schema) *Result {
	return applyAtomically(d, func() error {
		for _, nid := range s.NodeIds {
			if err := d.RemoveNode(sc, s.ParentId, nid); err != nil {
				return err
			}
		}
		return nil
	})
}

// Invert captures each removed node's full pre-removal subtree — the roots
// plus every descendant, recursively — so the resulting AddNodeStep can
// graft the whole thing back verbatim via GraftSubtrees.
func (s *RemoveNodeStep) Invert(before *pool.Pool) (Step, bool) {
	roots := make([]node.Node, 0, len(s.NodeIds))
	var descendants []node.Node
	for _, nid := range s.NodeIds {
		n, ok := before.Get(nid)
		if !ok {
			return nil, false
		}
		roots = append(roots, n)
		descendants = append(descendants, collectDescendants(before, n)...)
	}
	parent, ok := before.Get(s.ParentId)
	if !ok {
		return nil, false
	}
	// Preserve original sibling order by inserting back at the lowest
	// removed index.
	pos := len(parent.Content)
	for i, nid := range s.NodeIds {
		if idx := parent.IndexOfChild(nid); idx >= 0 && (i == 0 || idx < pos) {
			pos = idx
		}
	}
	return &AddNodeStep{ParentId: s.ParentId, Nodes: roots, Descendants: descendants, Position: &pos}, true
}

func collectDescendants(p *pool.Pool, n node.Node) []node.Node {
	var out []node.Node
	for _, cid := range n.Content {
		c, ok := p.Get(cid)
		if !ok {
			continue
		}
		out = append(out, c)
		out = append(out, collectDescendants(p, c)...)
	}
	return out
}

type removeNodeWire struct {
	ParentId id.NodeId   `json:"parent_id"`
	NodeIds  []id.NodeId `json:"node_ids"`
}

func (s *RemoveNodeStep) Serialize() ([]byte, error) {
	return json.Marshal(removeNodeWire{ParentId: s.ParentId, NodeIds: s.NodeIds})
}

func decodeRemoveNodeStep(data []byte) (Step, error) {
	var w removeNodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &RemoveNodeStep{ParentId: w.ParentId, NodeIds: w.NodeIds}, nil
}
