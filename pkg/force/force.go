// Package force contains the ecs systems that move bodies each tick:
// gravity and collision accumulate forces and constraints over the pairs
// a broad-phase reports, integration then advances every body.
package force

import (
	"context"
	"errors"
	"fmt"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/physthing/pkg/broadphase"
	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/physics"
)

// ecs runs higher priorities first
const (
	GravityPriority     = 30
	CollisionPriority   = 20
	IntegrationPriority = 10
)

// ErrMissingComponent is returned when a body lacks the component a system
// works on
var ErrMissingComponent = errors.New("force: body lacks required component")

type statser interface {
	Stats() broadphase.Stats
}

// pairSystem is the body registry and broad-phase shared by the pairwise
// systems
type pairSystem struct {
	name   string
	pairs  broadphase.BroadPhase[*physics.Body]
	bodies map[uint64]*physics.Body
	logger *logging.Logger
	err    error
}

func newPairSystem(name string, strategy broadphase.Strategy, circleOf func(*physics.Body) physics.Circle, logger *logging.Logger) (pairSystem, error) {
	pairs, err := broadphase.New(strategy, broadphase.CirclePredicates(circleOf))
	if err != nil {
		return pairSystem{}, logging.WrapError(err, "%s system", name)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return pairSystem{
		name:   name,
		pairs:  pairs,
		bodies: make(map[uint64]*physics.Body),
		logger: logger,
	}, nil
}

func (s *pairSystem) add(b *physics.Body) error {
	if err := s.pairs.Add(b); err != nil {
		return logging.WrapError(err, "%s system: add %s", s.name, b.Name)
	}
	s.bodies[b.ID()] = b
	return nil
}

// Remove satisfies the ecs.System interface
func (s *pairSystem) Remove(basic ecs.BasicEntity) {
	b, ok := s.bodies[basic.ID()]
	if !ok {
		return
	}
	if err := s.pairs.Remove(b); err != nil {
		s.fail(logging.WrapError(err, "%s system: remove %s", s.name, b.Name))
		return
	}
	delete(s.bodies, basic.ID())
}

// Len returns the number of bodies the system tracks
func (s *pairSystem) Len() int {
	return len(s.bodies)
}

// Err returns the first error raised during Update since the last call
// and clears it. ecs.System.Update has no error return.
func (s *pairSystem) Err() error {
	err := s.err
	s.err = nil
	return err
}

func (s *pairSystem) fail(err error) {
	s.logger.Error(context.Background(), "system update failed", err, "system", s.name)
	if s.err == nil {
		s.err = err
	}
}

// step refreshes the broad-phase and hands every reported pair to fn
func (s *pairSystem) step(fn broadphase.PairFunc[*physics.Body]) error {
	if err := s.pairs.Update(); err != nil {
		return fmt.Errorf("%s broadphase update: %w", s.name, err)
	}
	if err := s.pairs.Traverse(fn); err != nil {
		return fmt.Errorf("%s broadphase traverse: %w", s.name, err)
	}

	ctx := context.Background()
	if st, ok := s.pairs.(statser); ok && s.logger.DebugEnabled(ctx) {
		stats := st.Stats()
		s.logger.Debug(ctx, "broadphase refreshed",
			"system", s.name,
			"entries", stats.Entries,
			"duplicates", stats.Duplicates,
			"depth", stats.Depth,
			"comparisons", stats.Comparisons,
			"reinserted", stats.Reinserted,
		)
	}
	return nil
}
