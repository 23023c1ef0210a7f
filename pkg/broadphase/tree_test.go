package broadphase

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
)

func newTree(t *testing.T, discs ...*disc) *OverlapTree[*disc] {
	t.Helper()
	tree, err := NewOverlapTree(discPredicates())
	if err != nil {
		t.Fatalf("NewOverlapTree() error: %v", err)
	}
	for _, d := range discs {
		if err := tree.Add(d); err != nil {
			t.Fatalf("Add(%s) error: %v", d.name, err)
		}
	}
	return tree
}

// nestedScene is the six-circle layout: A, B, C, E are equal circles
// along the x axis, D sits inside A, F sits inside B
func nestedScene() map[string]*disc {
	return map[string]*disc{
		"A": newDisc("A", -15, 0, 10),
		"B": newDisc("B", 0, 0, 10),
		"C": newDisc("C", 15, 0, 10),
		"D": newDisc("D", -10, 0, 1),
		"E": newDisc("E", 30, 0, 10),
		"F": newDisc("F", -1, 0, 1),
	}
}

func placementsOf(tree *OverlapTree[*disc], d *disc) []handle {
	var hs []handle
	for p := tree.index[d]; p != none; p = tree.arena.at(p).next {
		hs = append(hs, p)
	}
	return hs
}

// hasAncestor reports whether some placement of d sits below some
// placement of ancestor
func hasAncestor(tree *OverlapTree[*disc], d, ancestor *disc) bool {
	for _, h := range placementsOf(tree, d) {
		for p := tree.arena.at(h).parent; p != root && p != none; p = tree.arena.at(p).parent {
			if tree.arena.at(p).entry == ancestor {
				return true
			}
		}
	}
	return false
}

func isTopLevel(tree *OverlapTree[*disc], d *disc) bool {
	for _, h := range placementsOf(tree, d) {
		if tree.arena.at(h).parent == root {
			return true
		}
	}
	return false
}

// shape renders the tree as nested names in child order
func shape(tree *OverlapTree[*disc]) string {
	var sb strings.Builder
	var write func(h handle)
	write = func(h handle) {
		for i, c := range tree.arena.at(h).children {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(tree.arena.at(c).entry.name)
			if len(tree.arena.at(c).children) > 0 {
				sb.WriteByte('(')
				write(c)
				sb.WriteByte(')')
			}
		}
	}
	write(root)
	return sb.String()
}

func naivePairs(t *testing.T, discs []*disc) pairSet {
	t.Helper()
	return collect(t, newNaive(t, discs...))
}

func TestOverlapTree_ContainmentNesting(t *testing.T) {
	s := nestedScene()
	tree := newTree(t, s["A"], s["B"], s["C"], s["D"], s["E"], s["F"])

	if err := tree.Build(); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := tree.checkInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	t.Run("placement", func(t *testing.T) {
		if !hasAncestor(tree, s["D"], s["A"]) {
			t.Errorf("D should sit below A: %s", shape(tree))
		}
		if !hasAncestor(tree, s["F"], s["B"]) {
			t.Errorf("F should sit below B: %s", shape(tree))
		}
		for _, name := range []string{"A", "B", "C", "E"} {
			if !isTopLevel(tree, s[name]) {
				t.Errorf("%s should be reachable as a top-level sibling: %s", name, shape(tree))
			}
		}
		if isTopLevel(tree, s["D"]) || isTopLevel(tree, s["F"]) {
			t.Errorf("contained circles must not be top level: %s", shape(tree))
		}
		if got := len(placementsOf(tree, s["A"])); got != 1 {
			t.Errorf("A has %d placements, expected 1", got)
		}
	})

	t.Run("pairs", func(t *testing.T) {
		got := collect(t, tree)
		for _, p := range [][2]string{{"A", "D"}, {"B", "F"}, {"A", "B"}, {"B", "C"}, {"B", "D"}, {"C", "E"}} {
			if !got.has(p[0], p[1]) {
				t.Errorf("missing pair %v", p)
			}
		}
		for _, p := range [][2]string{{"A", "C"}, {"A", "E"}, {"A", "F"}, {"D", "F"}, {"C", "F"}, {"B", "E"}} {
			if got.has(p[0], p[1]) {
				t.Errorf("unexpected pair %v", p)
			}
		}
		assertSamePairs(t, got, naivePairs(t, []*disc{s["A"], s["B"], s["C"], s["D"], s["E"], s["F"]}))
	})
}

func TestOverlapTree_EquivalentToNaive(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 300; trial++ {
		discs := randomDiscs(rng, 1+rng.IntN(60))
		t.Run(fmt.Sprintf("trial_%d_n%d", trial, len(discs)), func(t *testing.T) {
			tree := newTree(t, discs...)
			if err := tree.Build(); err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			assertSamePairs(t, collect(t, tree), naivePairs(t, discs))
		})
	}
}

func TestOverlapTree_DenseNesting(t *testing.T) {
	// concentric rings plus satellites, every circle overlaps many others
	var discs []*disc
	for i := 0; i < 10; i++ {
		discs = append(discs, newDisc(fmt.Sprintf("ring%d", i), 0, 0, float64(100-i*9)))
	}
	for i := 0; i < 12; i++ {
		discs = append(discs, newDisc(fmt.Sprintf("sat%d", i), float64(i*8-48), float64(i%3*5), 6))
	}

	tree := newTree(t, discs...)
	assertSamePairs(t, collect(t, tree), naivePairs(t, discs))

	if s := tree.Stats(); s.Depth < 10 {
		t.Errorf("expected concentric rings to nest at least 10 deep, depth %d", s.Depth)
	}
}

func TestOverlapTree_UpdateMatchesBuild(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 100; trial++ {
		discs := randomDiscs(rng, 2+rng.IntN(40))
		t.Run(fmt.Sprintf("trial_%d", trial), func(t *testing.T) {
			tree := newTree(t, discs...)
			if err := tree.Build(); err != nil {
				t.Fatalf("Build() error: %v", err)
			}

			for step := 0; step < 5; step++ {
				for _, d := range discs {
					if rng.IntN(3) == 0 {
						d.pos.X += rng.Float64()*20 - 10
						d.pos.Y += rng.Float64()*20 - 10
					}
					if rng.IntN(10) == 0 {
						d.r = rng.Float64() * 60
					}
				}

				if err := tree.Update(); err != nil {
					t.Fatalf("Update() error: %v", err)
				}
				updated := shape(tree)
				assertSamePairs(t, collect(t, tree), naivePairs(t, discs))

				if err := tree.Build(); err != nil {
					t.Fatalf("Build() error: %v", err)
				}
				if rebuilt := shape(tree); rebuilt != updated {
					t.Fatalf("step %d: update produced\n%s\nrebuild produced\n%s", step, updated, rebuilt)
				}
			}
		})
	}
}

func TestOverlapTree_UpdateWithoutMovementReusesTree(t *testing.T) {
	s := nestedScene()
	tree := newTree(t, s["A"], s["B"], s["C"], s["D"], s["E"], s["F"])
	if err := tree.Build(); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	before := shape(tree)

	if err := tree.Update(); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if st := tree.Stats(); st.Reinserted != 0 {
		t.Errorf("Reinserted = %d, expected 0", st.Reinserted)
	}
	if after := shape(tree); after != before {
		t.Errorf("tree changed without movement:\n%s\n%s", before, after)
	}

	// move the last, smallest entry only: earlier entries keep their place
	s["F"].pos.X = -14
	if err := tree.Update(); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if st := tree.Stats(); st.Reinserted != 1 {
		t.Errorf("Reinserted = %d, expected 1", st.Reinserted)
	}
	if !hasAncestor(tree, s["F"], s["A"]) {
		t.Errorf("F moved into A but is not below it: %s", shape(tree))
	}
}

func TestOverlapTree_Membership(t *testing.T) {
	s := nestedScene()
	tree := newTree(t, s["A"], s["B"], s["C"], s["D"], s["E"], s["F"])

	t.Run("idempotent_add", func(t *testing.T) {
		if err := tree.Add(s["A"]); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		if tree.Len() != 6 {
			t.Errorf("Len() = %d, expected 6", tree.Len())
		}
		if err := tree.Build(); err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		if got := len(placementsOf(tree, s["A"])); got != 1 {
			t.Errorf("A has %d placements after double add", got)
		}
	})

	t.Run("remove_duplicated_entry", func(t *testing.T) {
		if got := len(placementsOf(tree, s["B"])); got < 2 {
			t.Fatalf("B should have a duplicate placement, has %d: %s", got, shape(tree))
		}
		before := tree.Stats().Placements
		dupsOfB := len(placementsOf(tree, s["B"]))

		if err := tree.Remove(s["B"]); err != nil {
			t.Fatalf("Remove() error: %v", err)
		}
		if tree.Contains(s["B"]) {
			t.Error("B still registered")
		}
		if got := tree.Stats().Placements; got != before-dupsOfB {
			t.Errorf("Placements = %d, expected %d", got, before-dupsOfB)
		}
		got := collect(t, tree)
		for k := range got {
			if k[0] == "B" || k[1] == "B" {
				t.Errorf("pair %v involves a removed entry", k)
			}
		}
		assertSamePairs(t, got, naivePairs(t, []*disc{s["A"], s["C"], s["D"], s["E"], s["F"]}))
	})

	t.Run("remove_non_member", func(t *testing.T) {
		if err := tree.Remove(newDisc("stranger", 0, 0, 3)); err != nil {
			t.Errorf("Remove(non-member) error: %v", err)
		}
		if tree.Len() != 5 {
			t.Errorf("Len() = %d, expected 5", tree.Len())
		}
	})

	t.Run("re_add", func(t *testing.T) {
		if err := tree.Add(s["B"]); err != nil {
			t.Fatalf("Add() error: %v", err)
		}
		all := []*disc{s["A"], s["B"], s["C"], s["D"], s["E"], s["F"]}
		assertSamePairs(t, collect(t, tree), naivePairs(t, all))
	})
}

func TestOverlapTree_RemoveBeforeBuild(t *testing.T) {
	a := newDisc("a", 0, 0, 5)
	b := newDisc("b", 1, 0, 5)
	tree := newTree(t, a, b)

	if err := tree.Remove(a); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if got := collect(t, tree); len(got) != 0 {
		t.Errorf("expected no pairs, got %v", got)
	}
}

func TestOverlapTree_MonotonicRadius(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	discs := randomDiscs(rng, 80)
	tree := newTree(t, discs...)
	if err := tree.Build(); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	var visit func(h handle)
	visit = func(h handle) {
		for _, c := range tree.arena.at(h).children {
			if h != root {
				parent, child := tree.arena.at(h).entry, tree.arena.at(c).entry
				if child.r > parent.r {
					t.Errorf("child %s (r=%g) larger than parent %s (r=%g)", child.name, child.r, parent.name, parent.r)
				}
			}
			visit(c)
		}
	}
	visit(root)
}

func TestOverlapTree_ZeroPopulation(t *testing.T) {
	tree := newTree(t)

	if err := tree.Build(); err != nil {
		t.Errorf("Build() error: %v", err)
	}
	if err := tree.Update(); err != nil {
		t.Errorf("Update() error: %v", err)
	}
	calls := 0
	if err := tree.Traverse(func(a, b *disc) { calls++ }); err != nil {
		t.Errorf("Traverse() error: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no callbacks, got %d", calls)
	}
	if s := tree.Stats(); s.Entries != 0 || s.Placements != 0 || s.Depth != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestOverlapTree_ZeroRadiusEntries(t *testing.T) {
	points := []*disc{
		newDisc("p1", 0, 0, 0),
		newDisc("p2", 0, 0, 0),
		newDisc("p3", 5, 0, 0),
		newDisc("big", 0, 0, 10),
	}
	tree := newTree(t, points...)

	got := collect(t, tree)
	assertSamePairs(t, got, naivePairs(t, points))
	if !got.has("p1", "p2") {
		t.Error("coincident points should overlap")
	}
	if got.has("p1", "p3") {
		t.Error("separate points must not overlap")
	}

	// zero radius entries sort last
	last := tree.arena.at(tree.master[len(tree.master)-1]).entry
	if last.r != 0 {
		t.Errorf("last master entry has radius %g", last.r)
	}
	if first := tree.arena.at(tree.master[0]).entry; first.name != "big" {
		t.Errorf("first master entry is %s, expected big", first.name)
	}
}

func TestOverlapTree_TraverseBuildsDirtyTree(t *testing.T) {
	a := newDisc("a", 0, 0, 5)
	b := newDisc("b", 3, 0, 5)
	tree := newTree(t, a, b)

	got := collect(t, tree)
	if !got.has("a", "b") {
		t.Errorf("expected pair (a, b), got %v", got)
	}
	if tree.dirty {
		t.Error("tree still dirty after traversal")
	}
}

func TestOverlapTree_RejectsReentrantCalls(t *testing.T) {
	s := nestedScene()
	tree := newTree(t, s["A"], s["B"], s["D"])
	if err := tree.Build(); err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	before := shape(tree)

	var errs []error
	err := tree.Traverse(func(x, y *disc) {
		errs = append(errs,
			tree.Add(s["C"]),
			tree.Remove(x),
			tree.Build(),
			tree.Update(),
			tree.Traverse(func(*disc, *disc) {}),
		)
	})
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}
	if len(errs) == 0 {
		t.Fatal("callback never ran")
	}
	for i, e := range errs {
		if !errors.Is(e, ErrTraversing) {
			t.Errorf("reentrant call %d returned %v, expected ErrTraversing", i, e)
		}
	}
	if after := shape(tree); after != before {
		t.Errorf("tree changed during traversal:\n%s\n%s", before, after)
	}
}

func TestOverlapTree_GuardResetAfterPanic(t *testing.T) {
	tree := newTree(t, newDisc("a", 0, 0, 5), newDisc("b", 1, 0, 5))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic from callback")
			}
		}()
		_ = tree.Traverse(func(*disc, *disc) { panic("boom") })
	}()

	if err := tree.Add(newDisc("c", 0, 0, 1)); err != nil {
		t.Errorf("Add() after panicking traversal error: %v", err)
	}
}

func TestOverlapTree_StatsCountDuplicates(t *testing.T) {
	s := nestedScene()
	tree := newTree(t, s["A"], s["B"], s["C"], s["D"], s["E"], s["F"])
	if err := tree.Build(); err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	st := tree.Stats()
	if st.Entries != 6 {
		t.Errorf("Entries = %d", st.Entries)
	}
	if st.Duplicates != st.Placements-st.Entries || st.Duplicates == 0 {
		t.Errorf("unexpected duplicate count in %+v", st)
	}
	if st.Comparisons == 0 || st.Reinserted != 6 {
		t.Errorf("unexpected build cost in %+v", st)
	}
}

func BenchmarkTraverse(b *testing.B) {
	rng := rand.New(rand.NewPCG(42, 42))
	discs := randomDiscs(rng, 500)

	naive, _ := NewNaivePairFinder(discPredicates())
	tree, _ := NewOverlapTree(discPredicates())
	for _, d := range discs {
		_ = naive.Add(d)
		_ = tree.Add(d)
	}
	_ = tree.Build()

	b.Run("naive", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = naive.Traverse(func(*disc, *disc) {})
		}
	})
	b.Run("tree_update", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = tree.Update()
			_ = tree.Traverse(func(*disc, *disc) {})
		}
	})
	b.Run("tree_build", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = tree.Build()
			_ = tree.Traverse(func(*disc, *disc) {})
		}
	})
}
