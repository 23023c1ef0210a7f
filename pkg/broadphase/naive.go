package broadphase

// NaivePairFinder tests every pair of registered entries on each
// traversal. It keeps no structure, which makes it the reference for
// OverlapTree and a reasonable choice for small populations.
type NaivePairFinder[T comparable] struct {
	overlaps func(a, b T) bool
	entries  []T
	members  map[T]struct{}
	guard    traversalGuard
}

// NewNaivePairFinder only needs preds.PartiallyOverlaps
func NewNaivePairFinder[T comparable](preds Predicates[T]) (*NaivePairFinder[T], error) {
	if err := preds.validate(false); err != nil {
		return nil, err
	}
	return &NaivePairFinder[T]{
		overlaps: preds.PartiallyOverlaps,
		members:  make(map[T]struct{}),
	}, nil
}

// Add appends entry unless it is already registered
func (n *NaivePairFinder[T]) Add(entry T) error {
	if err := n.guard.check(); err != nil {
		return err
	}
	if _, ok := n.members[entry]; ok {
		return nil
	}
	n.members[entry] = struct{}{}
	n.entries = append(n.entries, entry)
	return nil
}

// Remove deletes every occurrence of entry
func (n *NaivePairFinder[T]) Remove(entry T) error {
	if err := n.guard.check(); err != nil {
		return err
	}
	if _, ok := n.members[entry]; !ok {
		return nil
	}
	delete(n.members, entry)

	kept := n.entries[:0]
	for _, e := range n.entries {
		if e != entry {
			kept = append(kept, e)
		}
	}
	clear(n.entries[len(kept):])
	n.entries = kept
	return nil
}

// Build is a no-op
func (n *NaivePairFinder[T]) Build() error {
	return n.guard.check()
}

// Update is a no-op
func (n *NaivePairFinder[T]) Update() error {
	return n.guard.check()
}

// Traverse calls fn(a, b) for every pair i < j in registration order that
// overlaps.
func (n *NaivePairFinder[T]) Traverse(fn PairFunc[T]) error {
	if err := n.guard.enter(); err != nil {
		return err
	}
	defer n.guard.exit()

	entries := n.entries
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if n.overlaps(entries[i], entries[j]) {
				fn(entries[i], entries[j])
			}
		}
	}
	return nil
}

// Len returns the number of registered entries
func (n *NaivePairFinder[T]) Len() int {
	return len(n.entries)
}
