package step

import (
	"encoding/json"

	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
)

const nameAttr = "AttrStep"

// AttrStep replaces node_id's schema-declared attribute keys with values;
// unknown keys are silently dropped (spec.md §3.6, §4.2 set_attrs).
type AttrStep struct {
	NodeId id.NodeId
	Values map[string]interface{}
}

func (s *AttrStep) Name() string { return nameAttr }

func (s *AttrStep) Apply(d *pool.Draft, sc *schema.Schema) *Result {
	return applyAtomically(d, func() error {
		return d.SetAttrs(sc, s.NodeId, s.Values)
	})
}

// Invert restores the node's pre-application attribute values for exactly
// the keys this step touched (rather than the whole attribute map, so an
// undo does not clobber a concurrent-in-the-same-batch unrelated key).
func (s *AttrStep) Invert(before *pool.Pool) (Step, bool) {
	n, ok := before.Get(s.NodeId)
	if !ok {
		return nil, false
	}
	prior := make(map[string]interface{}, len(s.Values))
	for k := range s.Values {
		if v, has := n.Attrs.Get(k); has {
			prior[k] = v
		} else {
			prior[k] = nil
		}
	}
	return &AttrStep{NodeId: s.NodeId, Values: prior}, true
}

type attrWire struct {
	NodeId id.NodeId              `json:"node_id"`
	Values map[string]interface{} `json:"values"`
}

func (s *AttrStep) Serialize() ([]byte, error) {
	return json.Marshal(attrWire{NodeId: s.NodeId, Values: s.Values})
}

func decodeAttrStep(data []byte) (Step, error) {
	var w attrWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &AttrStep{NodeId: w.NodeId, Values: w.Values}, nil
}
