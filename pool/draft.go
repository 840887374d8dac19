package pool

import (
	"github.com/docweave/docweave/id"
	"github.com/docweave/docweave/node"
	"github.com/docweave/docweave/schema"
)

// Draft is a mutable editing session opened over a frozen Pool (spec.md
// §3.5 point 2, §4.2). Every mutation writes into an overlay keyed by node
// id; a nil overlay entry is a tombstone marking deletion. Commit folds the
// overlay into a new, frozen Pool, reusing every shard the overlay never
// touched — the same buffer-then-commit shape as the teacher's
// mutable.Trie over its nodeStoreBuffered.
type Draft struct {
	base    *Pool
	overlay map[id.NodeId]*node.Node
	root    id.NodeId
}

// get resolves a node id through the overlay first, falling back to base.
func (d *Draft) get(nid id.NodeId) (node.Node, bool) {
	if n, overlaid := d.overlay[nid]; overlaid {
		if n == nil {
			return node.Node{}, false
		}
		return *n, true
	}
	return d.base.Get(nid)
}

func (d *Draft) put(n node.Node) {
	cp := n
	d.overlay[n.Id] = &cp
}

func (d *Draft) tombstone(nid id.NodeId) {
	d.overlay[nid] = nil
}

// typeOf is the resolver passed to Node.ContentTypes / the schema automaton;
// it sees draft-in-flight state, not just the committed base.
func (d *Draft) typeOf(nid id.NodeId) (string, bool) {
	n, ok := d.get(nid)
	if !ok {
		return "", false
	}
	return n.Type, true
}

// Root returns the draft's current root id, which SetRoot may have changed.
func (d *Draft) Root() id.NodeId { return d.root }

// Checkpoint is an opaque snapshot of draft state, taken before a
// multi-operation edit (e.g. a Step touching several nodes) so the whole
// edit can be rolled back atomically on partial failure (spec.md §4.2:
// "every mutation is either fully applied or leaves the draft unchanged").
type Checkpoint struct {
	overlay map[id.NodeId]*node.Node
	root    id.NodeId
}

// Checkpoint captures the draft's current overlay and root.
func (d *Draft) Checkpoint() Checkpoint {
	cp := make(map[id.NodeId]*node.Node, len(d.overlay))
	for k, v := range d.overlay {
		cp[k] = v
	}
	return Checkpoint{overlay: cp, root: d.root}
}

// Restore rolls the draft back to a previously taken Checkpoint, discarding
// any edits made since.
func (d *Draft) Restore(cp Checkpoint) {
	d.overlay = cp.overlay
	d.root = cp.root
}

// SetRoot rebinds the document's top node. Used when building a document
// from scratch, where the very first AddNode has no parent to attach to.
func (d *Draft) SetRoot(nid id.NodeId) { d.root = nid }

// Get exposes draft-visible node state to callers inspecting a Transform in
// progress (spec.md §3.7's StepResult needs to report pre/post node state).
func (d *Draft) Get(nid id.NodeId) (node.Node, bool) { return d.get(nid) }

// ParentOf mirrors Pool.ParentOf but walks draft-visible (overlay-aware)
// state, needed by MoveNodeStep when node_id's parent isn't supplied
// explicitly and must be derived from the tree as it stands mid-transform.
func (d *Draft) ParentOf(nid id.NodeId) (id.NodeId, bool) {
	if d.root.IsZero() {
		return "", false
	}
	return findParent(d.get, d.root, nid)
}

func (d *Draft) validateContent(s *schema.Schema, parent node.Node) error {
	nt, ok := s.Nodes[parent.Type]
	if !ok {
		return newPoolError("validate", parent.Id.String(), "node type %q is not defined in schema", parent.Type)
	}
	types, ok := parent.ContentTypes(d.typeOf)
	if !ok {
		return newPoolError("validate", parent.Id.String(), "content references an id with no resolvable type")
	}
	if !nt.Content.Matches(types) {
		return newKindError(KindContentViolation, "validate", parent.Id.String(), "content %v does not match node type %q's content model", types, parent.Type)
	}
	return nil
}

// InitRoot places n into an empty pool as the document's top node and sets
// it as root, with no parent content model to satisfy. Used exactly once,
// to seed a brand-new document; every subsequent insertion goes through
// AddNode against an already-rooted pool.
func (d *Draft) InitRoot(s *schema.Schema, n node.Node) error {
	if d.base.Len() > 0 || !d.root.IsZero() {
		return newPoolError("init_root", n.Id.String(), "pool is not empty")
	}
	if _, ok := s.Nodes[n.Type]; !ok {
		return newPoolError("init_root", n.Id.String(), "node type %q is not defined in schema", n.Type)
	}
	d.put(n)
	d.root = n.Id
	return nil
}

// AddNode inserts n as a child of parentId at position index, validating
// that the resulting content sequence still matches the parent's content
// model (spec.md §4.2 add, Scenario B's rejection case).
func (d *Draft) AddNode(s *schema.Schema, parentId id.NodeId, index int, n node.Node) error {
	if _, exists := d.get(n.Id); exists {
		return newKindError(KindDuplicateId, "add", n.Id.String(), "node id already present in pool")
	}
	if _, ok := s.Nodes[n.Type]; !ok {
		return newPoolError("add", n.Id.String(), "node type %q is not defined in schema", n.Type)
	}
	parent, ok := d.get(parentId)
	if !ok {
		return newKindError(KindParentNotFound, "add", parentId.String(), "parent node not found")
	}
	if index < 0 || index > len(parent.Content) {
		return newPoolError("add", parentId.String(), "insertion index %d out of range [0,%d]", index, len(parent.Content))
	}
	content := make([]id.NodeId, 0, len(parent.Content)+1)
	content = append(content, parent.Content[:index]...)
	content = append(content, n.Id)
	content = append(content, parent.Content[index:]...)
	newParent := parent.WithContent(content)

	d.put(n)
	if err := d.validateContent(s, newParent); err != nil {
		delete(d.overlay, n.Id)
		return err
	}
	d.put(newParent)
	return nil
}

// GraftSubtrees restores one or more complete subtrees (roots plus every
// descendant already linked through their Content ids) as children of
// parentId starting at index. Unlike AddNode, descendant nodes are placed
// without re-validating their own parent's content model, since they are
// being restored exactly as a prior RemoveNode cascade captured them; only
// the top-level insertion point is checked, mirroring how Step.Invert
// reconstructs a previously removed subtree (spec.md §3.6's invert
// contract) rather than performing a fresh, independently-validated add.
func (d *Draft) GraftSubtrees(s *schema.Schema, parentId id.NodeId, index int, roots []node.Node, all []node.Node) error {
	parent, ok := d.get(parentId)
	if !ok {
		return newKindError(KindParentNotFound, "graft", parentId.String(), "parent node not found")
	}
	if index < 0 || index > len(parent.Content) {
		return newPoolError("graft", parentId.String(), "insertion index %d out of range [0,%d]", index, len(parent.Content))
	}
	for _, n := range all {
		if _, exists := d.get(n.Id); exists {
			return newKindError(KindDuplicateId, "graft", n.Id.String(), "node id already present in pool")
		}
	}

	rootIds := make([]id.NodeId, len(roots))
	for i, n := range roots {
		rootIds[i] = n.Id
	}
	content := make([]id.NodeId, 0, len(parent.Content)+len(rootIds))
	content = append(content, parent.Content[:index]...)
	content = append(content, rootIds...)
	content = append(content, parent.Content[index:]...)
	newParent := parent.WithContent(content)

	for _, n := range all {
		d.put(n)
	}
	if err := d.validateContent(s, newParent); err != nil {
		for _, n := range all {
			delete(d.overlay, n.Id)
		}
		return err
	}
	d.put(newParent)
	return nil
}

// RemoveNode detaches childId from parentId's content and tombstones the
// entire subtree rooted at childId, so no orphaned descendants survive the
// edit (spec.md §3.5's no-orphans invariant).
func (d *Draft) RemoveNode(s *schema.Schema, parentId, childId id.NodeId) error {
	parent, ok := d.get(parentId)
	if !ok {
		return newKindError(KindParentNotFound, "remove", parentId.String(), "parent node not found")
	}
	idx := parent.IndexOfChild(childId)
	if idx < 0 {
		return newKindError(KindChildNotFound, "remove", childId.String(), "not a child of %s", parentId)
	}
	content := make([]id.NodeId, 0, len(parent.Content)-1)
	content = append(content, parent.Content[:idx]...)
	content = append(content, parent.Content[idx+1:]...)
	newParent := parent.WithContent(content)
	if err := d.validateContent(s, newParent); err != nil {
		return err
	}
	d.put(newParent)
	d.removeSubtree(childId)
	return nil
}

func (d *Draft) removeSubtree(nid id.NodeId) {
	n, ok := d.get(nid)
	if !ok {
		return
	}
	for _, c := range n.Content {
		d.removeSubtree(c)
	}
	d.tombstone(nid)
}

// MoveNode relocates childId from fromParent to a position within toParent,
// validating both parents' content models post-move (spec.md §4.2 move).
// Moving a node under itself or one of its own descendants is rejected up
// front with KindInvalidParenting, before either parent is touched.
func (d *Draft) MoveNode(s *schema.Schema, fromParent, childId, toParent id.NodeId, toIndex int) error {
	if toParent == childId {
		return newKindError(KindInvalidParenting, "move", childId.String(), "cannot move a node under itself")
	}
	if d.isDescendant(childId, toParent) {
		return newKindError(KindInvalidParenting, "move", childId.String(), "cannot move a node under its own descendant %s", toParent)
	}

	from, ok := d.get(fromParent)
	if !ok {
		return newKindError(KindParentNotFound, "move", fromParent.String(), "source parent not found")
	}
	idx := from.IndexOfChild(childId)
	if idx < 0 {
		return newKindError(KindChildNotFound, "move", childId.String(), "not a child of %s", fromParent)
	}
	to, ok := d.get(toParent)
	if !ok {
		return newKindError(KindParentNotFound, "move", toParent.String(), "destination parent not found")
	}
	if fromParent == toParent && idx < toIndex {
		toIndex--
	}
	if toIndex < 0 || toIndex > len(to.Content) {
		return newPoolError("move", toParent.String(), "insertion index %d out of range", toIndex)
	}

	fromContent := make([]id.NodeId, 0, len(from.Content)-1)
	fromContent = append(fromContent, from.Content[:idx]...)
	fromContent = append(fromContent, from.Content[idx+1:]...)

	destContent := to.Content
	if fromParent == toParent {
		destContent = fromContent
	}
	newDestContent := make([]id.NodeId, 0, len(destContent)+1)
	newDestContent = append(newDestContent, destContent[:toIndex]...)
	newDestContent = append(newDestContent, childId)
	newDestContent = append(newDestContent, destContent[toIndex:]...)
	newTo := to.WithContent(newDestContent)

	if fromParent == toParent {
		if err := d.validateContent(s, newTo); err != nil {
			return err
		}
		d.put(newTo)
		return nil
	}

	newFrom := from.WithContent(fromContent)
	if err := d.validateContent(s, newFrom); err != nil {
		return err
	}
	if err := d.validateContent(s, newTo); err != nil {
		return err
	}
	d.put(newFrom)
	d.put(newTo)
	return nil
}

func (d *Draft) isDescendant(ancestor, candidate id.NodeId) bool {
	n, ok := d.get(ancestor)
	if !ok {
		return false
	}
	for _, c := range n.Content {
		if c == candidate || d.isDescendant(c, candidate) {
			return true
		}
	}
	return false
}

// SetAttrs merges the schema-filtered subset of values into nid's
// attributes (spec.md §4.2 set_attrs): keys of values the node type does
// not declare are dropped, and existing attributes not named in values
// keep their current values.
func (d *Draft) SetAttrs(s *schema.Schema, nid id.NodeId, values map[string]interface{}) error {
	n, ok := d.get(nid)
	if !ok {
		return newKindError(KindNodeNotFound, "set_attrs", nid.String(), "node not found")
	}
	nt, ok := s.Nodes[n.Type]
	if !ok {
		return newPoolError("set_attrs", nid.String(), "node type %q is not defined in schema", n.Type)
	}
	d.put(n.WithAttrs(n.Attrs.Merge(nt.ApplyAttrs(values))))
	return nil
}

// AddMark attaches m to nid if the node's type allows that mark, removing
// any existing mark that m excludes or that excludes m (spec.md §4.2
// add_mark: "adding a mark removes any mark it excludes", §3.3 point 3's
// exclusion groups).
func (d *Draft) AddMark(s *schema.Schema, nid id.NodeId, m node.Mark) error {
	n, ok := d.get(nid)
	if !ok {
		return newKindError(KindNodeNotFound, "add_mark", nid.String(), "node not found")
	}
	nt, ok := s.Nodes[n.Type]
	if !ok {
		return newPoolError("add_mark", nid.String(), "node type %q is not defined in schema", n.Type)
	}
	if !nt.AllowsMark(m.Type) {
		return newPoolError("add_mark", nid.String(), "node type %q does not allow mark %q", n.Type, m.Type)
	}
	mt, ok := s.Marks[m.Type]
	if !ok {
		return newPoolError("add_mark", nid.String(), "mark type %q is not defined in schema", m.Type)
	}
	marks := make([]node.Mark, 0, len(n.Marks)+1)
	for _, existing := range n.Marks {
		if existing.Type == m.Type {
			continue // replaced below
		}
		if mt.DoesExclude(existing.Type) || s.Marks[existing.Type].DoesExclude(m.Type) {
			continue // excluded by the incoming mark
		}
		marks = append(marks, existing)
	}
	marks = append(marks, m)
	d.put(n.WithMarks(marks))
	return nil
}

// RemoveMark detaches every mark of markType from nid.
func (d *Draft) RemoveMark(s *schema.Schema, nid id.NodeId, markType string) error {
	n, ok := d.get(nid)
	if !ok {
		return newKindError(KindNodeNotFound, "remove_mark", nid.String(), "node not found")
	}
	marks := make([]node.Mark, 0, len(n.Marks))
	for _, m := range n.Marks {
		if m.Type != markType {
			marks = append(marks, m)
		}
	}
	d.put(n.WithMarks(marks))
	return nil
}

// Commit folds the overlay into a fresh, frozen Pool. Shards untouched by
// the overlay are shared by reference with base; only shards containing at
// least one changed id are rewritten.
func (d *Draft) Commit() *Pool {
	p := d.base.clone()
	p.root = d.root
	p.version = d.base.version + 1

	touched := map[int]bool{}
	for nid := range d.overlay {
		touched[shardIndex(nid)] = true
	}
	for idx := range touched {
		fresh := make(shard, len(p.shards[idx]))
		for k, v := range p.shards[idx] {
			fresh[k] = v
		}
		p.shards[idx] = fresh
	}
	for nid, n := range d.overlay {
		idx := shardIndex(nid)
		if n == nil {
			delete(p.shards[idx], nid)
		} else {
			p.shards[idx][nid] = *n
		}
	}
	return p
}
