package force

import (
	"github.com/opd-ai/physthing/pkg/broadphase"
	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/physics"
)

// DefaultG is the gravitational constant of the demo scenes
const DefaultG = 100.0

// GravitySystem attracts bodies whose interaction circles overlap
type GravitySystem struct {
	pairSystem
	G float64
}

// NewGravitySystem creates a gravity system using the given broad-phase
// strategy. A zero g selects DefaultG.
func NewGravitySystem(strategy broadphase.Strategy, g float64, logger *logging.Logger) (*GravitySystem, error) {
	ps, err := newPairSystem("gravity", strategy, (*physics.Body).GravityCircle, logger)
	if err != nil {
		return nil, err
	}
	if g == 0 {
		g = DefaultG
	}
	return &GravitySystem{pairSystem: ps, G: g}, nil
}

// Add registers a body carrying a gravity component
func (s *GravitySystem) Add(b *physics.Body) error {
	if b.Gravity == nil {
		return ErrMissingComponent
	}
	return s.add(b)
}

// Priority places gravity before collision and integration
func (s *GravitySystem) Priority() int {
	return GravityPriority
}

// Update satisfies the ecs.System interface
func (s *GravitySystem) Update(dt float32) {
	if err := s.step(s.attract); err != nil {
		s.fail(err)
	}
}

// attract applies equal and opposite forces of magnitude G·ma·mb/r²
func (s *GravitySystem) attract(a, b *physics.Body) {
	ab := b.Position.Sub(a.Position)
	rSq := ab.LengthSquared()
	if rSq == 0 {
		return
	}
	f := ab.Normalize().Scale(s.G * a.Mass * b.Mass / rSq)
	a.ApplyForce(f)
	b.ApplyForce(f.Negate())
}
