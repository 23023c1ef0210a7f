package force

import (
	"github.com/opd-ai/physthing/pkg/broadphase"
	"github.com/opd-ai/physthing/pkg/event"
	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/physics"
)

// CollisionSystem resolves contacts between overlapping collision circles.
// Approaching bodies exchange velocity along the contact normal with
// restitution 1 - damping; every overlapping pair is then pushed apart so
// the lighter body moves further.
type CollisionSystem struct {
	pairSystem
	bus *event.Bus

	// Collisions counts the contacts resolved by the last Update
	Collisions int
}

// NewCollisionSystem creates a collision system. bus may be nil.
func NewCollisionSystem(strategy broadphase.Strategy, bus *event.Bus, logger *logging.Logger) (*CollisionSystem, error) {
	ps, err := newPairSystem("collision", strategy, (*physics.Body).CollisionCircle, logger)
	if err != nil {
		return nil, err
	}
	return &CollisionSystem{pairSystem: ps, bus: bus}, nil
}

// Add registers a body carrying a collision component
func (s *CollisionSystem) Add(b *physics.Body) error {
	if b.Collision == nil {
		return ErrMissingComponent
	}
	return s.add(b)
}

// Priority places collision after gravity and before integration
func (s *CollisionSystem) Priority() int {
	return CollisionPriority
}

// Update satisfies the ecs.System interface
func (s *CollisionSystem) Update(dt float32) {
	s.Collisions = 0
	if err := s.step(s.resolve); err != nil {
		s.fail(err)
	}
}

func (s *CollisionSystem) resolve(a, b *physics.Body) {
	// an earlier contact this tick may already have separated the pair
	hit := physics.CheckCollision(a.CollisionCircle(), b.CollisionCircle())
	if !hit.Collided {
		return
	}
	wa, wb, ok := massWeights(a, b)
	if !ok {
		return
	}
	n := hit.Normal
	if n.LengthSquared() == 0 {
		n = physics.Vector2D{X: 1}
	}

	ua := a.Velocity.ProjectOn(n)
	ub := b.Velocity.ProjectOn(n)
	closing := ua.Sub(ub).Dot(n)

	impulse := 0.0
	if closing > 0 {
		cra := 1 - a.Collision.Damping
		crb := 1 - b.Collision.Damping
		common := ua.Scale(wa).Add(ub.Scale(wb))
		va := common.Add(ub.Sub(ua).Scale(wb * cra))
		vb := common.Add(ua.Sub(ub).Scale(wa * crb))

		a.Velocity = a.Velocity.Sub(ua).Add(va)
		b.Velocity = b.Velocity.Sub(ub).Add(vb)
		impulse = closing - va.Sub(vb).Dot(n)
	}

	a.Translate(n.Scale(-hit.Penetration * wb))
	b.Translate(n.Scale(hit.Penetration * wa))

	s.Collisions++
	if s.bus != nil {
		s.bus.Publish(event.NewCollisionEvent(s, a.ID(), b.ID(), hit.Penetration, impulse))
	}
}

// massWeights returns the share of the exchange each body keeps: a fixed
// body behaves as infinitely heavy. ok is false when neither body can move
// or the pair has no mass.
func massWeights(a, b *physics.Body) (wa, wb float64, ok bool) {
	switch {
	case a.Fixed && b.Fixed:
		return 0, 0, false
	case a.Fixed:
		return 1, 0, true
	case b.Fixed:
		return 0, 1, true
	}
	m := a.Mass + b.Mass
	if m <= 0 {
		return 0, 0, false
	}
	return a.Mass / m, b.Mass / m, true
}
