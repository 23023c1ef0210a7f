// pkg/engine/simulation.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/physthing/pkg/config"
	"github.com/opd-ai/physthing/pkg/event"
	"github.com/opd-ai/physthing/pkg/force"
	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/physics"
	"github.com/opd-ai/physthing/pkg/render"
	"github.com/opd-ai/physthing/pkg/validation"
)

var (
	// ErrUnknownBody is returned when removing a body that was never added
	ErrUnknownBody = errors.New("engine: unknown body")
	// ErrDuplicateBody is returned when adding a body twice
	ErrDuplicateBody = errors.New("engine: body already added")
)

// Status describes the simulation loop state
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
)

// Simulation owns the ecs world, the force systems and every body
type Simulation struct {
	Config      *config.SimulationConfig
	World       *ecs.World
	Gravity     *force.GravitySystem
	Collision   *force.CollisionSystem
	Integration *force.IntegrationSystem
	EventBus    *event.Bus

	BodyLock    sync.RWMutex
	Status      Status
	CurrentTick uint64
	ElapsedTime float64 // simulated seconds
	LastUpdate  time.Time

	bodies map[uint64]*physics.Body
	order  []*physics.Body
	logger *logging.Logger
}

// NewSimulation creates an empty simulation. A nil config selects the
// defaults, a nil logger discards output.
func NewSimulation(cfg *config.SimulationConfig, logger *logging.Logger) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	bus := event.NewEventBus()
	gravity, err := force.NewGravitySystem(cfg.Broadphase.Gravity, cfg.Physics.Gravity, logger)
	if err != nil {
		return nil, err
	}
	collision, err := force.NewCollisionSystem(cfg.Broadphase.Collision, bus, logger)
	if err != nil {
		return nil, err
	}
	integration := force.NewIntegrationSystem()

	world := &ecs.World{}
	world.AddSystem(gravity)
	world.AddSystem(collision)
	world.AddSystem(integration)

	return &Simulation{
		Config:      cfg,
		World:       world,
		Gravity:     gravity,
		Collision:   collision,
		Integration: integration,
		EventBus:    bus,
		LastUpdate:  time.Now(),
		bodies:      make(map[uint64]*physics.Body),
		logger:      logger,
	}, nil
}

// AddBody registers b with integration and with every force system whose
// component it carries
func (s *Simulation) AddBody(b *physics.Body) error {
	if err := validation.ValidateBody(b); err != nil {
		return err
	}

	s.BodyLock.Lock()
	if _, ok := s.bodies[b.ID()]; ok {
		s.BodyLock.Unlock()
		return fmt.Errorf("%w: %s (%d)", ErrDuplicateBody, b.Name, b.ID())
	}
	if b.Gravity != nil {
		if err := s.Gravity.Add(b); err != nil {
			s.BodyLock.Unlock()
			return err
		}
	}
	if b.Collision != nil {
		if err := s.Collision.Add(b); err != nil {
			s.Gravity.Remove(b.BasicEntity)
			s.BodyLock.Unlock()
			return err
		}
	}
	s.Integration.Add(b)
	s.bodies[b.ID()] = b
	s.order = append(s.order, b)
	s.BodyLock.Unlock()

	s.EventBus.Publish(event.NewBodyEvent(event.BodyAdded, s, b.ID(), b.Name))
	return nil
}

// RemoveBody unregisters the body with the given ID from every system
func (s *Simulation) RemoveBody(id uint64) error {
	s.BodyLock.Lock()
	b, ok := s.bodies[id]
	if !ok {
		s.BodyLock.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	s.World.RemoveEntity(b.BasicEntity)
	delete(s.bodies, id)
	for i, o := range s.order {
		if o == b {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.BodyLock.Unlock()

	s.EventBus.Publish(event.NewBodyEvent(event.BodyRemoved, s, id, b.Name))
	return nil
}

// Body returns the body with the given ID
func (s *Simulation) Body(id uint64) (*physics.Body, bool) {
	s.BodyLock.RLock()
	defer s.BodyLock.RUnlock()
	b, ok := s.bodies[id]
	return b, ok
}

// Bodies returns the bodies in the order they were added
func (s *Simulation) Bodies() []*physics.Body {
	s.BodyLock.RLock()
	defer s.BodyLock.RUnlock()
	return append([]*physics.Body(nil), s.order...)
}

// BodyCount returns the number of registered bodies
func (s *Simulation) BodyCount() int {
	s.BodyLock.RLock()
	defer s.BodyLock.RUnlock()
	return len(s.bodies)
}

// Start marks the simulation running and resets the wall clock
func (s *Simulation) Start() {
	s.Status = StatusRunning
	s.LastUpdate = time.Now()
	s.EventBus.Publish(event.NewSimulationEvent(event.SimulationStarted, s, s.CurrentTick))
}

// Stop halts the simulation loop
func (s *Simulation) Stop() {
	if s.Status != StatusRunning {
		return
	}
	s.Status = StatusStopped
	s.EventBus.Publish(event.NewSimulationEvent(event.SimulationStopped, s, s.CurrentTick))
}

// Running reports whether Start was called without a matching Stop
func (s *Simulation) Running() bool {
	return s.Status == StatusRunning
}

// Step advances the simulation by dt seconds, capped at the configured
// maximum delta. Non-positive deltas are ignored.
func (s *Simulation) Step(dt float64) error {
	if dt <= 0 {
		return nil
	}
	if limit := s.Config.Physics.MaxDelta; limit > 0 && dt > limit {
		dt = limit
	}

	s.BodyLock.Lock()
	s.World.Update(float32(dt))
	s.CurrentTick++
	s.ElapsedTime += dt
	s.BodyLock.Unlock()

	return errors.Join(s.Gravity.Err(), s.Collision.Err())
}

// Update advances the simulation by the wall-clock time since the last
// update
func (s *Simulation) Update() error {
	return s.Step(s.calculateDeltaTime())
}

func (s *Simulation) calculateDeltaTime() float64 {
	now := time.Now()
	deltaTime := now.Sub(s.LastUpdate).Seconds()
	s.LastUpdate = now
	return deltaTime
}

// Render draws the current state through r
func (s *Simulation) Render(r render.Renderer) {
	s.BodyLock.RLock()
	defer s.BodyLock.RUnlock()

	r.Clear()
	for _, b := range s.order {
		r.RenderBody(b)
	}
	r.Present()
}

// Run ticks and renders at the configured rate until ctx is done. r may
// be nil for a headless run.
func (s *Simulation) Run(ctx context.Context, r render.Renderer) error {
	interval := s.Config.Physics.TickInterval()
	if interval <= 0 {
		return fmt.Errorf("%w: tick rate %d", config.ErrInvalidConfig, s.Config.Physics.TickRate)
	}

	ctx = logging.WithCorrelationID(ctx, logging.GetCorrelationID(ctx))
	s.logger.Info(ctx, "simulation started",
		"bodies", s.BodyCount(),
		"tick_rate", s.Config.Physics.TickRate,
		"gravity_broadphase", s.Config.Broadphase.Gravity,
		"collision_broadphase", s.Config.Broadphase.Collision,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Start()
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "simulation stopped", "tick", s.CurrentTick, "elapsed", s.ElapsedTime)
			return nil
		case <-ticker.C:
			if err := s.Update(); err != nil {
				s.logger.Error(ctx, "simulation step failed", err, "tick", s.CurrentTick)
				return logging.WrapError(err, "tick %d", s.CurrentTick)
			}
			if r != nil {
				s.Render(r)
			}
		}
	}
}
