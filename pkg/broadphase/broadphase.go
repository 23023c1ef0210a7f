// Package broadphase finds the pairs of bodies whose interaction circles
// overlap. Two strategies share one contract: NaivePairFinder tests every
// pair, OverlapTree partitions entries by circle containment so that only
// ancestor/descendant pairs are ever tested.
//
// Neither strategy is safe for concurrent use. An instance belongs to the
// force system that owns it and is driven once per simulation tick:
// Add/Remove as membership changes, Update (or Build), then Traverse.
package broadphase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/physthing/pkg/physics"
)

var (
	// ErrTraversing is returned when the structure is mutated, rebuilt or
	// traversed again from inside a Traverse callback.
	ErrTraversing = errors.New("broadphase: called from inside a traversal callback")

	// ErrNilPredicate is returned by constructors given an incomplete
	// predicate set.
	ErrNilPredicate = errors.New("broadphase: incomplete predicate set")

	// ErrUnknownStrategy is returned by ParseStrategy and New
	ErrUnknownStrategy = errors.New("broadphase: unknown strategy")
)

// PairFunc receives one overlapping pair of entries
type PairFunc[T comparable] func(a, b T)

// BroadPhase is implemented by every pair-finding strategy. Entries are
// compared by identity, so T is normally a pointer type.
type BroadPhase[T comparable] interface {
	// Add registers an entry. Adding an entry twice has no effect.
	Add(entry T) error
	// Remove unregisters an entry. Removing a non-member is a no-op.
	Remove(entry T) error
	// Build reconstructs any cached structure from scratch.
	Build() error
	// Update brings cached structure up to date with current geometry.
	// The result is observationally identical to Build.
	Update() error
	// Traverse calls fn once for every overlapping unordered pair.
	Traverse(fn PairFunc[T]) error
	// Len returns the number of registered entries.
	Len() int
}

// Predicates is the geometry a broad-phase instance is keyed on. The same
// bodies carry different radii for gravity and for collision, so every
// instance gets its own set.
type Predicates[T comparable] struct {
	// RadiusOf extracts the radius used to order entries
	RadiusOf func(T) float64
	// PartiallyOverlaps reports distance(a, b) <= r(a) + r(b)
	PartiallyOverlaps func(a, b T) bool
	// FullyOverlaps reports distance(a, b) <= |r(a) - r(b)|
	FullyOverlaps func(a, b T) bool
}

// CirclePredicates derives a full predicate set from a circle accessor
func CirclePredicates[T comparable](circleOf func(T) physics.Circle) Predicates[T] {
	return Predicates[T]{
		RadiusOf: func(e T) float64 {
			return circleOf(e).Radius
		},
		PartiallyOverlaps: func(a, b T) bool {
			return physics.PartiallyOverlaps(circleOf(a), circleOf(b))
		},
		FullyOverlaps: func(a, b T) bool {
			return physics.FullyOverlaps(circleOf(a), circleOf(b))
		},
	}
}

func (p Predicates[T]) validate(needOrdering bool) error {
	if p.PartiallyOverlaps == nil {
		return fmt.Errorf("%w: PartiallyOverlaps is nil", ErrNilPredicate)
	}
	if !needOrdering {
		return nil
	}
	if p.RadiusOf == nil {
		return fmt.Errorf("%w: RadiusOf is nil", ErrNilPredicate)
	}
	if p.FullyOverlaps == nil {
		return fmt.Errorf("%w: FullyOverlaps is nil", ErrNilPredicate)
	}
	return nil
}

// SortKey maps a radius to its ordering key: 1/r for positive radii and 0
// for a zero radius. Ascending keys give descending radii with point
// entries last.
func SortKey(r float64) float64 {
	if r <= 0 {
		return 0
	}
	return 1 / r
}

// keyLess orders two radii the way the master list is kept: larger
// radii first, zero radii last.
func keyLess(ra, rb float64) bool {
	ka, kb := SortKey(ra), SortKey(rb)
	switch {
	case ka == 0:
		return false
	case kb == 0:
		return true
	default:
		return ka < kb
	}
}

// Strategy names a broad-phase implementation
type Strategy string

const (
	StrategyNaive Strategy = "naive"
	StrategyTree  Strategy = "tree"
)

// ParseStrategy accepts a strategy name case-insensitively
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyNaive:
		return StrategyNaive, nil
	case StrategyTree, "overlap", "overlap-tree":
		return StrategyTree, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// UnmarshalText lets configuration files use any name ParseStrategy accepts
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// New creates the broad-phase implementation named by strategy
func New[T comparable](strategy Strategy, preds Predicates[T]) (BroadPhase[T], error) {
	switch strategy {
	case StrategyNaive:
		return NewNaivePairFinder(preds)
	case StrategyTree:
		return NewOverlapTree(preds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// traversalGuard rejects reentrant calls from inside a Traverse callback
type traversalGuard struct {
	traversing bool
}

func (g *traversalGuard) check() error {
	if g.traversing {
		return ErrTraversing
	}
	return nil
}

func (g *traversalGuard) enter() error {
	if err := g.check(); err != nil {
		return err
	}
	g.traversing = true
	return nil
}

func (g *traversalGuard) exit() {
	g.traversing = false
}
