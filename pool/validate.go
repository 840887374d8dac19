package pool

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/docweave/docweave/id"
)

// Validate walks the pool from its root and confirms the hierarchical
// integrity invariants spec.md §3.5 requires of every committed Pool: the
// root exists, every reachable id resolves, no id is reachable from two
// different parents, and no id is its own ancestor. This is a structural
// supplement to per-operation validation — AddNode/MoveNode/RemoveNode
// already enforce the content model inline, but Validate exists to catch
// any pool assembled by means other than the Draft API (e.g. replayed from
// a persisted log) before it is trusted as a State's document.
//
// Each child subtree is checked on its own goroutine via errgroup, bounded
// implicitly by Go's scheduler; for the wide, shallow trees typical of
// structured documents this parallelizes the dominant cost, the descendant
// walk, across the top-level children of the root.
func (p *Pool) Validate() error {
	if p.root.IsZero() {
		if p.Len() == 0 {
			return nil
		}
		return newPoolError("validate", "", "pool has nodes but no root")
	}
	root, ok := p.Get(p.root)
	if !ok {
		return newPoolError("validate", p.root.String(), "root id not found in pool")
	}

	visited := newVisitedSet()
	if !visited.claim(p.root) {
		return newPoolError("validate", p.root.String(), "root visited twice")
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, child := range root.Content {
		child := child
		g.Go(func() error {
			return p.validateSubtree(child, visited)
		})
	}
	return g.Wait()
}

func (p *Pool) validateSubtree(nid id.NodeId, visited *visitedSet) error {
	if !visited.claim(nid) {
		return newPoolError("validate", nid.String(), "node reachable from more than one parent (not a tree)")
	}
	n, ok := p.Get(nid)
	if !ok {
		return newPoolError("validate", nid.String(), "referenced child id not found in pool")
	}
	for _, child := range n.Content {
		if err := p.validateSubtree(child, visited); err != nil {
			return err
		}
	}
	return nil
}

// visitedSet is a concurrency-safe set used to detect the same id reachable
// from two places in the tree (a structural-sharing violation at the
// document level, distinct from the deliberate node-entry sharing across
// Pool versions that Draft.Commit performs).
type visitedSet struct {
	ch chan map[id.NodeId]bool
}

func newVisitedSet() *visitedSet {
	v := &visitedSet{ch: make(chan map[id.NodeId]bool, 1)}
	v.ch <- map[id.NodeId]bool{}
	return v
}

func (v *visitedSet) claim(nid id.NodeId) bool {
	m := <-v.ch
	ok := !m[nid]
	m[nid] = true
	v.ch <- m
	return ok
}
