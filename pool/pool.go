// Package pool implements the immutable NodePool and its mutable Draft
// counterpart (spec.md §3.5): the document's node-id-keyed node store
// with structural sharing between versions. The split mirrors the
// teacher's immutable.NodeStore (direct, cached reads over a frozen store)
// and mutable.Trie (a buffered overlay that commits back into a new,
// frozen store) — here generalized from trie nodes to schema-validated
// document nodes.
package pool

import (
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
)

const shardCount = 16

// shard holds a slice of the node id space. Sharding lets a Draft commit
// reallocate only the shards an edit touched while sharing the rest with
// the previous Pool; NodePool itself needs no lock at all since it is
// frozen once built.
type shard map[id.NodeId]node.Node

// Pool is an immutable, frozen collection of nodes plus the id of the root
// node (spec.md §3.5 point 1). Two Pools may share any number of node
// entries by aliasing the same shard maps; only shards touched by an edit
// are reallocated when a Draft commits.
type Pool struct {
	shards  [shardCount]shard
	root    id.NodeId
	version uint64
}

func shardIndex(nid id.NodeId) int {
	h := fnv32(string(nid))
	return int(h % shardCount)
}

// fnv32 is a tiny inline hash so pool need not import a shard-sizing
// dependency for what is, at 16 buckets, a throwaway distribution function.
func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Empty returns a Pool with no nodes and no root, the starting point before
// a top node is ever inserted.
func Empty() *Pool {
	p := &Pool{}
	for i := range p.shards {
		p.shards[i] = shard{}
	}
	return p
}

// FromNodes rebuilds a Pool directly from a flat node list and a root id,
// bypassing Draft/commit validation. Used by persistence recovery to
// rehydrate a Pool from a snapshot's already-validated node set (spec.md
// §4.6 point 1: "rehydrate State from {snapshot.node_pool, ...}") without
// re-deriving it through a sequence of steps.
func FromNodes(root id.NodeId, nodes []node.Node, version uint64) *Pool {
	p := Empty()
	p.root = root
	p.version = version
	for _, n := range nodes {
		p.shards[shardIndex(n.Id)][n.Id] = n
	}
	return p
}

// Root returns the id of the document's top node.
func (p *Pool) Root() id.NodeId { return p.root }

// Version is a monotonically increasing counter bumped on every commit
// (spec.md §3.8).
func (p *Pool) Version() uint64 { return p.version }

// Get returns the node with the given id, if present.
func (p *Pool) Get(nid id.NodeId) (node.Node, bool) {
	n, ok := p.shards[shardIndex(nid)][nid]
	return n, ok
}

// TypeOf is the id.NodeId -> type name resolver Node.ContentTypes needs to
// validate content against the schema's automaton.
func (p *Pool) TypeOf(nid id.NodeId) (string, bool) {
	n, ok := p.Get(nid)
	if !ok {
		return "", false
	}
	return n.Type, true
}

// ParentOf finds the parent of nid by walking the tree from root. The pool
// has no standing reverse index (spec.md's conceptual `parent_map` is
// derived on demand rather than maintained eagerly, trading an O(size)
// lookup for zero bookkeeping cost on every commit); callers that need the
// parent repeatedly within one operation, such as a Move step, should cache
// the result rather than re-deriving it per descendant.
func (p *Pool) ParentOf(nid id.NodeId) (id.NodeId, bool) {
	if p.root.IsZero() {
		return "", false
	}
	return findParent(p.Get, p.root, nid)
}

func findParent(get func(id.NodeId) (node.Node, bool), parent, target id.NodeId) (id.NodeId, bool) {
	n, ok := get(parent)
	if !ok {
		return "", false
	}
	for _, c := range n.Content {
		if c == target {
			return parent, true
		}
		if found, ok := findParent(get, c, target); ok {
			return found, true
		}
	}
	return "", false
}

// Len returns the total number of nodes across all shards.
func (p *Pool) Len() int {
	n := 0
	for _, s := range p.shards {
		n += len(s)
	}
	return n
}

// All calls fn for every node in the pool; iteration order is unspecified.
func (p *Pool) All(fn func(node.Node)) {
	for _, s := range p.shards {
		for _, n := range s {
			fn(n)
		}
	}
}

// Draft begins a mutable editing session over this Pool (spec.md §3.5
// point 2). The Draft never mutates p; every write lands in an overlay
// that Commit later folds into a fresh Pool.
func (p *Pool) Draft() *Draft {
	return &Draft{
		base:    p,
		overlay: map[id.NodeId]*node.Node{}, // nil value means deleted
		root:    p.root,
	}
}

// clone returns a shallow copy of p's shard array, sharing every shard map
// by reference. Only shards actually rewritten during commit are replaced,
// giving the structural sharing the spec requires: unrelated subtrees cost
// nothing to "copy".
func (p *Pool) clone() *Pool {
	cp := &Pool{root: p.root, version: p.version}
	copy(cp.shards[:], p.shards[:])
	return cp
}
