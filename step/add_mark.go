package step

import (
	"encoding/json"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

const nameAddMark = "AddMarkStep"

// AddMarkStep attaches marks to node_id, respecting each mark type's
// exclusion group (spec.md §3.6, §4.2 add_marks).
type AddMarkStep struct {
	NodeId id.NodeId
	Marks  []node.Mark
}

func (s *AddMarkStep) Name() string { return nameAddMark }

func (s *AddMarkStep) Apply(d *pool.Draft, sc *schema.Schema) *Result {
	return applyAtomically(d, func() error {
		for _, m := range s.Marks {
			if err := d.AddMark(sc, s.NodeId, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// Invert removes exactly the mark types this step added.
func (s *AddMarkStep) Invert(before *pool.Pool) (Step, bool) {
	if _, ok := before.Get(s.NodeId); !ok {
		return nil, false
	}
	names := make([]string, 0, len(s.Marks))
	for _, m := range s.Marks {
		names = append(names, m.Type)
	}
	return &RemoveMarkStep{NodeId: s.NodeId, MarkTypeNames: names}, true
}

type addMarkWire struct {
	NodeId id.NodeId   `json:"node_id"`
	Marks  []node.Mark `json:"marks"`
}

func (s *AddMarkStep) Serialize() ([]byte, error) {
	return json.Marshal(addMarkWire{NodeId: s.NodeId, Marks: s.Marks})
}

func decodeAddMarkStep(data []byte) (Step, error) {
	var w addMarkWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &AddMarkStep{NodeId: w.NodeId, Marks: w.Marks}, nil
}
