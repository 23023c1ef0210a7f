// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	BodyAdded         Type = "body_added"
	BodyRemoved       Type = "body_removed"
	BodiesCollided    Type = "bodies_collided"
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies one registered handler
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	sub := &Subscription{ID: id, Type: eventType}
	sub.Cancel = func() { b.Unsubscribe(sub) }
	return sub
}

// Unsubscribe removes the handler registered by sub. Cancelling twice is
// harmless.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.Type]
	for i, r := range regs {
		if r.id == sub.ID {
			b.handlers[sub.Type] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.handlers[sub.Type]) == 0 {
		delete(b.handlers, sub.Type)
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	// Unsubscribe copies on removal, so the snapshot stays valid
	for _, r := range regs {
		r.handler(event)
	}
}

// BodyEvent reports a body joining or leaving the simulation
type BodyEvent struct {
	BaseEvent
	BodyID uint64
	Name   string
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, bodyID uint64, name string) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		BodyID: bodyID,
		Name:   name,
	}
}

// CollisionEvent contains information about a resolved body collision
type CollisionEvent struct {
	BaseEvent
	BodyA       uint64
	BodyB       uint64
	Penetration float64
	// Impulse is the relative speed removed along the contact normal
	Impulse float64
}

// NewCollisionEvent creates a new collision event
func NewCollisionEvent(source interface{}, bodyA, bodyB uint64, penetration, impulse float64) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{
			EventType: BodiesCollided,
			Source:    source,
		},
		BodyA:       bodyA,
		BodyB:       bodyB,
		Penetration: penetration,
		Impulse:     impulse,
	}
}

// SimulationEvent marks the simulation loop starting or stopping
type SimulationEvent struct {
	BaseEvent
	Tick uint64
}

// NewSimulationEvent creates a new simulation lifecycle event
func NewSimulationEvent(eventType Type, source interface{}, tick uint64) *SimulationEvent {
	return &SimulationEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Tick: tick,
	}
}
