package broadphase

import (
	"fmt"
	"slices"
)

// debugInvariants makes every Build and Update verify the tree structure
// and panic on a violation. Tests switch it on.
var debugInvariants = false

// Stats describes the tree after the last Build or Update
type Stats struct {
	Entries     int
	Placements  int // tree nodes, root excluded
	Duplicates  int // placements beyond one per entry
	Depth       int
	Comparisons int // predicate calls made by the last Build or Update
	Reinserted  int // entries placed again by the last Build or Update
}

// OverlapTree keeps entries in a tree where every node overlaps all of its
// ancestors and an entry sits below every earlier circle that contains it.
// Traversal only visits ancestor/descendant pairs, so widely spread or
// deeply nested populations cost far less than a pairwise scan.
//
// Entries are inserted largest radius first. Each insertion walks down
// from the root: a non-overlapping child is skipped, an overlapping child
// is descended into, and a child that fully contains the entry ends the
// scan at that level. An entry that only partially overlaps a child is
// placed below it and also carried on to the remaining siblings as a
// duplicate placement, so no overlap is lost while every node keeps a
// single parent.
type OverlapTree[T comparable] struct {
	preds  Predicates[T]
	arena  arena[T]
	master []handle // canonical placements, largest radius first
	index  map[T]handle
	dirty  bool
	guard  traversalGuard
	stats  Stats

	seen    map[[2]int]struct{}
	want    []handle
	got     []handle
	scratch []handle
}

// NewOverlapTree requires a complete predicate set
func NewOverlapTree[T comparable](preds Predicates[T]) (*OverlapTree[T], error) {
	if err := preds.validate(true); err != nil {
		return nil, err
	}
	return &OverlapTree[T]{
		preds: preds,
		arena: newArena[T](),
		index: make(map[T]handle),
	}, nil
}

// Add registers entry in the master list. The tree itself is rebuilt by
// the next Build, Update or Traverse.
func (t *OverlapTree[T]) Add(entry T) error {
	if err := t.guard.check(); err != nil {
		return err
	}
	if _, ok := t.index[entry]; ok {
		return nil
	}
	h := t.arena.alloc(entry, len(t.master))
	t.index[entry] = h
	t.master = append(t.master, h)
	t.sortHandles(t.master)
	t.dirty = true
	return nil
}

// Remove drops entry and every duplicate placement of it. Children of a
// removed placement move up to its parent, so the tree stays well formed
// until the next rebuild.
func (t *OverlapTree[T]) Remove(entry T) error {
	if err := t.guard.check(); err != nil {
		return err
	}
	h, ok := t.index[entry]
	if !ok {
		return nil
	}
	for p := h; p != none; {
		next := t.arena.at(p).next
		t.unlink(p)
		t.arena.release(p)
		p = next
	}
	delete(t.index, entry)
	t.master = slices.DeleteFunc(t.master, func(m handle) bool { return m == h })
	t.dirty = true
	return nil
}

// Build reconstructs the whole tree from the master list
func (t *OverlapTree[T]) Build() error {
	if err := t.guard.check(); err != nil {
		return err
	}
	t.build()
	return nil
}

// Update rebuilds only what current geometry invalidates. Insertion is
// replayed entry by entry against the part of the tree built before it;
// the first entry whose placements would differ, and everything after it,
// is inserted again. The result is identical to Build.
func (t *OverlapTree[T]) Update() error {
	if err := t.guard.check(); err != nil {
		return err
	}
	if t.dirty {
		t.build()
		return nil
	}

	t.stats.Comparisons = 0
	sorted := append(t.scratch[:0], t.master...)
	t.sortHandles(sorted)

	k := len(sorted)
	for i := range sorted {
		if sorted[i] != t.master[i] {
			k = i
			break
		}
	}
	for i := 0; i < k; i++ {
		if !t.consistent(i) {
			k = i
			break
		}
	}

	t.master, t.scratch = sorted, t.master
	t.stats.Reinserted = len(t.master) - k
	if k < len(t.master) {
		t.truncate(k)
		t.insertFrom(k)
	}
	t.assertInvariants()
	return nil
}

// Traverse calls fn(ancestor, descendant) for every overlapping pair. A
// tree with pending membership changes is rebuilt first. fn must not call
// back into the tree.
func (t *OverlapTree[T]) Traverse(fn PairFunc[T]) error {
	if err := t.guard.check(); err != nil {
		return err
	}
	if t.dirty {
		t.build()
	}
	if err := t.guard.enter(); err != nil {
		return err
	}
	defer t.guard.exit()

	dedupe := t.arena.count > len(t.master)
	if dedupe {
		if t.seen == nil {
			t.seen = make(map[[2]int]struct{})
		} else {
			clear(t.seen)
		}
	}

	t.walk(root, t.scratch[:0], fn, dedupe)
	return nil
}

// Len returns the number of registered entries
func (t *OverlapTree[T]) Len() int {
	return len(t.master)
}

// Contains reports whether entry is registered
func (t *OverlapTree[T]) Contains(entry T) bool {
	_, ok := t.index[entry]
	return ok
}

// Stats returns sizes and costs of the current tree
func (t *OverlapTree[T]) Stats() Stats {
	s := t.stats
	s.Entries = len(t.master)
	s.Placements = t.arena.count
	s.Duplicates = t.arena.count - len(t.master)
	s.Depth = t.depth(root)
	return s
}

func (t *OverlapTree[T]) build() {
	t.stats.Comparisons = 0
	t.sortHandles(t.master)
	t.truncate(0)
	t.insertFrom(0)
	t.stats.Reinserted = len(t.master)
	t.dirty = false
	t.assertInvariants()
}

// insertFrom places master[k:] into a tree that holds exactly master[:k]
func (t *OverlapTree[T]) insertFrom(k int) {
	for i := k; i < len(t.master); i++ {
		h := t.master[i]
		t.arena.at(h).seq = i
		t.insert(root, h)
	}
}

// insert places h somewhere below parent, which h is known to overlap
func (t *OverlapTree[T]) insert(parent, h handle) {
	entry := t.arena.at(h).entry
	contained := false

	for i := 0; i < len(t.arena.at(parent).children); i++ {
		c := t.arena.at(parent).children[i]
		other := t.arena.at(c).entry

		t.stats.Comparisons++
		if !t.preds.PartiallyOverlaps(other, entry) {
			continue
		}

		t.insert(c, h)

		t.stats.Comparisons++
		if t.preds.FullyOverlaps(other, entry) {
			contained = true
			break
		}
		// Partial overlap: h now lives below c, a fresh placement
		// carries on through the remaining siblings.
		h = t.clone(h)
	}

	if !contained {
		t.arena.attach(parent, h)
	}
}

func (t *OverlapTree[T]) clone(h handle) handle {
	src := t.arena.at(h)
	entry, seq := src.entry, src.seq
	c := t.arena.alloc(entry, seq)
	t.arena.at(t.arena.tail(h)).next = c
	return c
}

// consistent replays the insertion of master[i] and reports whether it
// would produce the placements the entry already has
func (t *OverlapTree[T]) consistent(i int) bool {
	h := t.master[i]
	t.want = t.replay(root, t.arena.at(h).entry, i, t.want[:0])

	t.got = t.got[:0]
	for p := h; p != none; p = t.arena.at(p).next {
		t.got = append(t.got, t.arena.at(p).parent)
	}
	if len(t.want) != len(t.got) {
		return false
	}
	slices.Sort(t.want)
	slices.Sort(t.got)
	return slices.Equal(t.want, t.got)
}

// replay mirrors insert without mutating the tree, appending the parent of
// every placement insert would create. Placements of entries at or after
// limit did not exist when master[limit] was inserted and are ignored.
func (t *OverlapTree[T]) replay(parent handle, entry T, limit int, out []handle) []handle {
	contained := false
	for _, c := range t.arena.at(parent).children {
		n := t.arena.at(c)
		if n.seq >= limit {
			continue
		}

		t.stats.Comparisons++
		if !t.preds.PartiallyOverlaps(n.entry, entry) {
			continue
		}

		out = t.replay(c, entry, limit, out)

		t.stats.Comparisons++
		if t.preds.FullyOverlaps(n.entry, entry) {
			contained = true
			break
		}
	}
	if !contained {
		out = append(out, parent)
	}
	return out
}

// truncate removes every placement of master[k:] from the tree, leaving
// the tree that inserting master[:k] alone would have built
func (t *OverlapTree[T]) truncate(k int) {
	if k == 0 {
		r := t.arena.at(root)
		r.children = r.children[:0]
	} else {
		t.prune(root, k)
	}

	for _, h := range t.master[k:] {
		n := t.arena.at(h)
		dup := n.next
		n.parent = none
		n.children = n.children[:0]
		n.next = none
		for dup != none {
			next := t.arena.at(dup).next
			t.arena.release(dup)
			dup = next
		}
	}
}

func (t *OverlapTree[T]) prune(h handle, k int) {
	n := t.arena.at(h)
	kept := n.children[:0]
	for _, c := range n.children {
		if t.arena.at(c).seq < k {
			kept = append(kept, c)
		}
	}
	n.children = kept
	for _, c := range kept {
		t.prune(c, k)
	}
}

// unlink detaches h and hands its children to h's parent in h's place
func (t *OverlapTree[T]) unlink(h handle) {
	n := t.arena.at(h)
	parent := n.parent
	orphans := n.children

	for _, c := range orphans {
		t.arena.at(c).parent = parent
	}
	if parent == none {
		return
	}

	siblings := t.arena.at(parent).children
	i := slices.Index(siblings, h)
	if i < 0 {
		return
	}
	t.arena.at(parent).children = slices.Replace(siblings, i, i+1, orphans...)
	n.parent = none
}

// walk emits every (ancestor, descendant) pair below h. ancestors holds the
// placements on the path from the root to h, root excluded.
func (t *OverlapTree[T]) walk(h handle, ancestors []handle, fn PairFunc[T], dedupe bool) {
	for _, c := range t.arena.at(h).children {
		for _, a := range ancestors {
			t.emit(a, c, fn, dedupe)
		}
		t.walk(c, append(ancestors, c), fn, dedupe)
	}
}

func (t *OverlapTree[T]) emit(a, c handle, fn PairFunc[T], dedupe bool) {
	an, cn := t.arena.at(a), t.arena.at(c)
	if an.seq == cn.seq {
		return
	}
	if dedupe {
		key := [2]int{min(an.seq, cn.seq), max(an.seq, cn.seq)}
		if _, ok := t.seen[key]; ok {
			return
		}
		t.seen[key] = struct{}{}
	}
	fn(an.entry, cn.entry)
}

func (t *OverlapTree[T]) depth(h handle) int {
	d := 0
	for _, c := range t.arena.at(h).children {
		d = max(d, 1+t.depth(c))
	}
	return d
}

func (t *OverlapTree[T]) sortHandles(hs []handle) {
	slices.SortStableFunc(hs, func(a, b handle) int {
		ra := t.preds.RadiusOf(t.arena.at(a).entry)
		rb := t.preds.RadiusOf(t.arena.at(b).entry)
		switch {
		case keyLess(ra, rb):
			return -1
		case keyLess(rb, ra):
			return 1
		default:
			return 0
		}
	})
}

func (t *OverlapTree[T]) assertInvariants() {
	if !debugInvariants {
		return
	}
	if err := t.checkInvariants(); err != nil {
		panic(err)
	}
}

// checkInvariants verifies that the tree is a proper rooted tree over
// exactly the live placements, that radii never grow towards the leaves,
// and that every next chain stays on one entry.
func (t *OverlapTree[T]) checkInvariants() error {
	visited := make(map[handle]bool, t.arena.count)

	var visit func(h handle) error
	visit = func(h handle) error {
		for _, c := range t.arena.at(h).children {
			n := t.arena.at(c)
			if !n.live {
				return fmt.Errorf("broadphase: dead node %d reachable from %d", c, h)
			}
			if visited[c] {
				return fmt.Errorf("broadphase: node %d reached twice", c)
			}
			visited[c] = true
			if n.parent != h {
				return fmt.Errorf("broadphase: node %d lists parent %d, found under %d", c, n.parent, h)
			}
			if h != root {
				rp := t.preds.RadiusOf(t.arena.at(h).entry)
				rc := t.preds.RadiusOf(n.entry)
				if keyLess(rc, rp) {
					return fmt.Errorf("broadphase: node %d (r=%g) larger than parent %d (r=%g)", c, rc, h, rp)
				}
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(root); err != nil {
		return err
	}
	if len(visited) != t.arena.count {
		return fmt.Errorf("broadphase: %d of %d placements reachable", len(visited), t.arena.count)
	}

	for i, h := range t.master {
		if t.index[t.arena.at(h).entry] != h {
			return fmt.Errorf("broadphase: master[%d] not indexed", i)
		}
		for p := h; p != none; p = t.arena.at(p).next {
			n := t.arena.at(p)
			if n.entry != t.arena.at(h).entry || n.seq != i {
				return fmt.Errorf("broadphase: placement %d belongs to another entry than master[%d]", p, i)
			}
		}
	}
	return nil
}
