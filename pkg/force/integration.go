package force

import (
	"slices"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/physthing/pkg/physics"
)

// IntegrationSystem advances every registered body by the tick delta
type IntegrationSystem struct {
	bodies []*physics.Body
}

// NewIntegrationSystem creates an empty integration system
func NewIntegrationSystem() *IntegrationSystem {
	return &IntegrationSystem{}
}

// Add registers b. Adding a body twice is a no-op.
func (s *IntegrationSystem) Add(b *physics.Body) {
	if slices.Contains(s.bodies, b) {
		return
	}
	s.bodies = append(s.bodies, b)
}

// Remove satisfies the ecs.System interface
func (s *IntegrationSystem) Remove(basic ecs.BasicEntity) {
	s.bodies = slices.DeleteFunc(s.bodies, func(b *physics.Body) bool {
		return b.ID() == basic.ID()
	})
}

// Priority places integration after every force system
func (s *IntegrationSystem) Priority() int {
	return IntegrationPriority
}

// Update satisfies the ecs.System interface
func (s *IntegrationSystem) Update(dt float32) {
	for _, b := range s.bodies {
		b.Integrate(float64(dt))
	}
}

// Len returns the number of bodies the system tracks
func (s *IntegrationSystem) Len() int {
	return len(s.bodies)
}
