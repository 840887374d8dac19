package step

import (
	"encoding/json"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

const nameMoveNode = "MoveNodeStep"

// MoveNodeStep relocates node_id under target_parent_id at position (or
// appended, if omitted). Moving a node under itself or one of its own
// descendants is rejected (spec.md §3.6, Scenario F).
type MoveNodeStep struct {
	NodeId         id.NodeId
	TargetParentId id.NodeId
	Position       *int
}

func (s *MoveNodeStep) Name() string { return nameMoveNode }

func (s *MoveNodeStep) Apply(d *pool.Draft, sc *schema.Schema) *Result {
	return applyAtomically(d, func() error {
		fromParent, ok := d.ParentOf(s.NodeId)
		if !ok {
			return newStepFailed(s.Name(), "node %s has no parent to move from", s.NodeId)
		}
		target, ok := d.Get(s.TargetParentId)
		if !ok {
			return newStepFailed(s.Name(), "target parent %s not found", s.TargetParentId)
		}
		pos := resolvePosition(s.Position, len(target.Content))
		return d.MoveNode(sc, fromParent, s.NodeId, s.TargetParentId, pos)
	})
}

// Invert returns the MoveNodeStep that restores node_id to its prior parent
// and position.
func (s *MoveNodeStep) Invert(before *pool.Pool) (Step, bool) {
	fromParent, ok := before.ParentOf(s.NodeId)
	if !ok {
		return nil, false
	}
	parent, ok := before.Get(fromParent)
	if !ok {
		return nil, false
	}
	idx := parent.IndexOfChild(s.NodeId)
	if idx < 0 {
		return nil, false
	}
	return &MoveNodeStep{NodeId: s.NodeId, TargetParentId: fromParent, Position: &idx}, true
}

type moveNodeWire struct {
	NodeId         id.NodeId `json:"node_id"`
	TargetParentId id.NodeId `json:"target_parent_id"`
	Position       *int      `json:"position,omitempty"`
}

func (s *MoveNodeStep) Serialize() ([]byte, error) {
	return json.Marshal(moveNodeWire{NodeId: s.NodeId, TargetParentId: s.TargetParentId, Position: s.Position})
}

func decodeMoveNodeStep(data []byte) (Step, error) {
	var w moveNodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &MoveNodeStep{NodeId: w.NodeId, TargetParentId: w.TargetParentId, Position: w.Position}, nil
}
