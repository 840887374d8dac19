package step

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Decoder reconstructs a Step from the bytes its Serialize produced. The
// registry is keyed by Step.Name(), the same string the persistence log
// records alongside each step's payload (spec.md §6.2).
type Decoder func(data []byte) (Step, error)

var registry = map[string]Decoder{}

func register(name string, dec Decoder) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("step: decoder already registered for %q", name))
	}
	registry[name] = dec
}

// Decode reconstructs a Step given its wire name and payload, used by the
// persistence replay path (spec.md §6.3) to turn logged frames back into
// Steps without the reader needing to know every concrete type.
func Decode(name string, data []byte) (Step, error) {
	dec, ok := registry[name]
	if !ok {
		return nil, errors.Newf("step: no decoder registered for %q", name)
	}
	return dec(data)
}

func init() {
	register(nameAddNode, decodeAddNodeStep)
	register(nameRemoveNode, decodeRemoveNodeStep)
	register(nameMoveNode, decodeMoveNodeStep)
	register(nameAttr, decodeAttrStep)
	register(nameAddMark, decodeAddMarkStep)
	register(nameRemoveMark, decodeRemoveMarkStep)
}
