// pkg/physics/body.go
package physics

import (
	"github.com/EngoEngine/ecs"
)

// Defaults taken from the original demo bodies
const (
	DefaultInteractionRadius = 100.0
	DefaultDamping           = 0.6
)

// GravityComponent marks a body as taking part in gravity. Bodies only
// attract each other while their interaction circles overlap.
type GravityComponent struct {
	InteractionRadius float64
}

// CollisionComponent gives a body a physical boundary
type CollisionComponent struct {
	Radius  float64
	Damping float64 // 0 is perfectly elastic, 1 is perfectly inelastic
}

// Body is a point mass with optional gravity and collision components
type Body struct {
	ecs.BasicEntity

	Name        string
	Mass        float64
	InverseMass float64
	Position    Vector2D
	Velocity    Vector2D
	Fixed       bool // fixed bodies never move

	Gravity   *GravityComponent
	Collision *CollisionComponent

	force Vector2D
}

// NewBody creates a body with the given mass and no components
func NewBody(name string, mass float64) *Body {
	b := &Body{
		BasicEntity: ecs.NewBasic(),
		Name:        name,
	}
	b.SetMass(mass)
	return b
}

// NewPlanet creates a body with both a gravity field and a collision
// boundary. A zero interactionRadius falls back to DefaultInteractionRadius.
func NewPlanet(name string, mass, radius, interactionRadius float64) *Body {
	if interactionRadius == 0 {
		interactionRadius = DefaultInteractionRadius
	}
	b := NewBody(name, mass)
	b.Gravity = &GravityComponent{InteractionRadius: interactionRadius}
	b.Collision = &CollisionComponent{Radius: radius, Damping: DefaultDamping}
	return b
}

// SetMass updates the mass and cached inverse. Non-positive masses get a
// zero inverse, so forces never accelerate them.
func (b *Body) SetMass(mass float64) {
	b.Mass = mass
	if mass > 0 {
		b.InverseMass = 1 / mass
	} else {
		b.InverseMass = 0
	}
}

// ApplyForce adds f to the force accumulator for the current tick
func (b *Body) ApplyForce(f Vector2D) {
	b.force = b.force.Add(f)
}

// NetForce returns the forces accumulated since the last Integrate
func (b *Body) NetForce() Vector2D {
	return b.force
}

// Integrate advances the body by dt using semi-implicit Euler and clears
// the force accumulator.
func (b *Body) Integrate(dt float64) {
	defer func() { b.force = Vector2D{} }()

	if b.Fixed {
		b.Velocity = Vector2D{}
		return
	}

	b.Velocity = b.Velocity.Add(b.force.Scale(b.InverseMass * dt))
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
}

// Translate moves the body without touching its velocity
func (b *Body) Translate(offset Vector2D) {
	b.Position = b.Position.Add(offset)
}

// GravityCircle returns the gravity interaction circle, radius zero when the
// body has no gravity component.
func (b *Body) GravityCircle() Circle {
	c := Circle{Center: b.Position}
	if b.Gravity != nil {
		c.Radius = b.Gravity.InteractionRadius
	}
	return c
}

// CollisionCircle returns the physical boundary, radius zero when the body
// has no collision component.
func (b *Body) CollisionCircle() Circle {
	c := Circle{Center: b.Position}
	if b.Collision != nil {
		c.Radius = b.Collision.Radius
	}
	return c
}
