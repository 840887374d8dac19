package step

import (
	"encoding/json"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

const nameRemoveMark = "RemoveMarkStep"

// RemoveMarkStep detaches every mark of each named type from node_id
// (spec.md §3.6, §4.2 remove_marks).
type RemoveMarkStep struct {
	NodeId        id.NodeId
	MarkTypeNames []string
}

func (s *RemoveMarkStep) Name() string { return nameRemoveMark }

func (s *RemoveMarkStep) Apply(d *pool.Draft, sc *schema.Schema) *Result {
	return applyAtomically(d, func() error {
		for _, mt := range s.MarkTypeNames {
			if err := d.RemoveMark(sc, s.NodeId, mt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Invert restores exactly the marks (with their attributes) that were
// present before removal, for each named type.
func (s *RemoveMarkStep) Invert(before *pool.Pool) (Step, bool) {
	n, ok := before.Get(s.NodeId)
	if !ok {
		return nil, false
	}
	removed := make(map[string]bool, len(s.MarkTypeNames))
	for _, mt := range s.MarkTypeNames {
		removed[mt] = true
	}
	var restore []node.Mark
	for _, m := range n.Marks {
		if removed[m.Type] {
			restore = append(restore, m)
		}
	}
	if len(restore) == 0 {
		return nil, false
	}
	return &AddMarkStep{NodeId: s.NodeId, Marks: restore}, true
}

type removeMarkWire struct {
	NodeId        id.NodeId `json:"node_id"`
	MarkTypeNames []string  `json:"mark_type_names"`
}

func (s *RemoveMarkStep) Serialize() ([]byte, error) {
	return json.Marshal(removeMarkWire{NodeId: s.NodeId, MarkTypeNames: s.MarkTypeNames})
}

func decodeRemoveMarkStep(data []byte) (Step, error) {
	var w removeMarkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &RemoveMarkStep{NodeId: w.NodeId, MarkTypeNames: w.MarkTypeNames}, nil
}
