package broadphase

// handle indexes a node in the tree arena
type handle int32

const (
	none handle = -1
	root handle = 0
)

// node is one placement of an entry in the tree. An entry fully contained
// by some earlier circle has a single placement. An entry that only
// partially overlaps earlier circles is placed once per branch it touches;
// the extra placements hang off the canonical one through next.
type node[T comparable] struct {
	entry    T
	parent   handle
	children []handle
	next     handle
	seq      int // position of the entry in the master list
	live     bool
}

// arena owns every node. Slot 0 is the sentinel root, which holds no entry
// and is never handed to a predicate.
type arena[T comparable] struct {
	nodes []node[T]
	free  []handle
	count int // live nodes, root excluded
}

func newArena[T comparable]() arena[T] {
	return arena[T]{
		nodes: []node[T]{{parent: none, next: none, seq: -1, live: true}},
	}
}

func (a *arena[T]) alloc(entry T, seq int) handle {
	n := node[T]{entry: entry, parent: none, next: none, seq: seq, live: true}
	a.count++
	if k := len(a.free); k > 0 {
		h := a.free[k-1]
		a.free = a.free[:k-1]
		n.children = a.nodes[h].children[:0]
		a.nodes[h] = n
		return h
	}
	a.nodes = append(a.nodes, n)
	return handle(len(a.nodes) - 1)
}

func (a *arena[T]) release(h handle) {
	var zero T
	n := &a.nodes[h]
	n.entry = zero
	n.parent = none
	n.next = none
	n.children = n.children[:0]
	n.live = false
	a.count--
	a.free = append(a.free, h)
}

// at returns the node for h. The pointer is only valid until the next alloc.
func (a *arena[T]) at(h handle) *node[T] {
	return &a.nodes[h]
}

func (a *arena[T]) attach(parent, child handle) {
	a.nodes[child].parent = parent
	a.nodes[parent].children = append(a.nodes[parent].children, child)
}

// detach unlinks child from its parent, preserving sibling order
func (a *arena[T]) detach(child handle) {
	p := a.nodes[child].parent
	if p == none {
		return
	}
	siblings := a.nodes[p].children
	for i, h := range siblings {
		if h == child {
			a.nodes[p].children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	a.nodes[child].parent = none
}

// tail returns the last placement in the chain that starts at h
func (a *arena[T]) tail(h handle) handle {
	for a.nodes[h].next != none {
		h = a.nodes[h].next
	}
	return h
}
