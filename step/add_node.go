package step

import (
	"encoding/json"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

const nameAddNode = "AddNodeStep"

// AddNodeStep inserts one or more sibling nodes under parent_id starting at
// position (or appended, if position is omitted) (spec.md §3.6).
//
// Descendants carries the flattened remainder of each inserted node's
// subtree. It is empty for a step built fresh by a caller (Nodes are leaf
// or already-complete trees whose own descendants, if any, are listed
// inline via each Node's Content — but those descendant Node values must
// still be reachable, so callers building a multi-level insert populate
// Descendants too); it is always populated when an AddNodeStep is produced
// by RemoveNodeStep.Invert, since undoing a cascade-delete must restore
// every descendant, not just the removed roots.
type AddNodeStep struct {
	ParentId    id.NodeId
	Nodes       []node.Node
	Descendants []node.Node
	Position    *int
}

func (s *AddNodeStep) Name() string { return nameAddNode }

func (s *AddNodeStep) Apply(d *pool.Draft, sc *schema.Schema) *Result {
	return applyAtomically(d, func() error {
		parent, ok := d.Get(s.ParentId)
		if !ok {
			return newStepFailed(s.Name(), "parent %s not found", s.ParentId)
		}
		pos := resolvePosition(s.Position, len(parent.Content))

		if len(s.Descendants) > 0 {
			all := make([]node.Node, 0, len(s.Nodes)+len(s.Descendants))
			all = append(all, s.Nodes...)
			all = append(all, s.Descendants...)
			return d.GraftSubtrees(sc, s.ParentId, pos, s.Nodes, all)
		}

		for i, n := range s.Nodes {
			if n.Id.IsZero() {
				n.Id = id.Generate()
			}
			if err := d.AddNode(sc, s.ParentId, pos+i, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// Invert returns the RemoveNodeStep that would undo this insertion: the
// pre-application tree is only consulted to confirm the parent existed
// (inversion is impossible otherwise).
func (s *AddNodeStep) Invert(before *pool.Pool) (Step, bool) {
	if _, ok := before.Get(s.ParentId); !ok {
		return nil, false
	}
	ids := make([]id.NodeId, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.Id)
	}
	return &RemoveNodeStep{ParentId: s.ParentId, NodeIds: ids}, true
}

type addNodeWire struct {
	ParentId    id.NodeId   `json:"parent_id"`
	Nodes       []node.Node `json:"nodes"`
	Descendants []node.Node `json:"descendants,omitempty"`
	Position    *int        `json:"position,omitempty"`
}

func (s *AddNodeStep) Serialize() ([]byte, error) {
	return json.Marshal(addNodeWire{ParentId: s.ParentId, Nodes: s.Nodes, Descendants: s.Descendants, Position: s.Position})
}

func decodeAddNodeStep(data []byte) (Step, error) {
	var w addNodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &AddNodeStep{ParentId: w.ParentId, Nodes: w.Nodes, Descendants: w.Descendants, Position: w.Position}, nil
}
