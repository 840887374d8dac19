// Package id generates the opaque node identifiers used throughout the
// document model (spec.md §3.1): process-globally unique, comparable only
// by equality, with no ordering guarantee.
package id

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// NodeId is an opaque, comparable identifier for a Node. The zero value is
// never a valid id.
type NodeId string

// Generate returns a fresh NodeId. Collision across a single run is
// astronomically unlikely (122 bits of randomness from uuid v4,
// base58-encoded for a short, URL-safe string) but not formally
// guaranteed collision-free the way a counter would be; that tradeoff is
// accepted because spec.md §3.1 only requires collision-freedom "across a
// single run", not determinism, and a random id lets nodes be minted
// concurrently without any shared counter.
func Generate() NodeId {
	u, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand failure is unrecoverable for an id generator that
		// promises uniqueness; retry by reading 16 bytes from crypto/rand
		// directly, and panic if that fails too rather than silently
		// return a weaker id.
		var buf [16]byte
		if _, rerr := rand.Read(buf[:]); rerr != nil {
			panic(rerr)
		}
		return NodeId(base58.Encode(buf[:]))
	}
	raw, _ := u.MarshalBinary()
	return NodeId(base58.Encode(raw))
}

func (n NodeId) String() string { return string(n) }

// IsZero reports whether n is the unset NodeId.
func (n NodeId) IsZero() bool { return n == "" }
