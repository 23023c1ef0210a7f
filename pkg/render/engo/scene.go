// pkg/render/engo/scene.go
package engo

import (
	"context"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/physthing/pkg/engine"
	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/physics"
)

// SimulationScene shows a running simulation in an engo window
type SimulationScene struct {
	sim    *engine.Simulation
	logger *logging.Logger

	camera   *CameraSystem
	renderer *BodyRenderer
}

// NewSimulationScene creates a scene for sim
func NewSimulationScene(sim *engine.Simulation, logger *logging.Logger) *SimulationScene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SimulationScene{sim: sim, logger: logger}
}

// Type returns the scene type (required by Engo)
func (scene *SimulationScene) Type() string {
	return "SimulationScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *SimulationScene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *SimulationScene) Setup(u engo.Updater) {
	world, ok := u.(*ecs.World)
	if !ok {
		panic("engo scene requires an *ecs.World updater")
	}
	common.SetBackground(color.Black)

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)

	scene.camera = NewCameraSystem()
	scene.camera.SetViewport(float64(engo.GameWidth()), float64(engo.GameHeight()))
	scene.camera.Follow(heaviest(scene.sim.Bodies()))
	world.AddSystem(scene.camera)
	SetupCameraControls()

	scene.renderer = NewBodyRenderer(renderSystem, scene.camera)
	world.AddSystem(&stepSystem{scene: scene})

	scene.sim.Start()
}

// Exit is called when the scene is exiting (required by Engo)
func (scene *SimulationScene) Exit() {
	scene.sim.Stop()
}

// stepSystem advances the simulation once per engo frame and redraws it
type stepSystem struct {
	scene *SimulationScene
}

// Remove satisfies the ecs.System interface
func (s *stepSystem) Remove(ecs.BasicEntity) {}

// Update satisfies the ecs.System interface
func (s *stepSystem) Update(dt float32) {
	sim := s.scene.sim
	if err := sim.Step(float64(dt)); err != nil {
		s.scene.logger.Error(context.Background(), "simulation step failed", err, "tick", sim.CurrentTick)
	}
	if engo.Input.Button("nextTarget").JustPressed() {
		s.scene.camera.Follow(nextBody(sim.Bodies(), s.scene.camera.Target()))
	}
	sim.Render(s.scene.renderer)
}

// heaviest returns the body with the largest mass
func heaviest(bodies []*physics.Body) *physics.Body {
	var best *physics.Body
	for _, b := range bodies {
		if best == nil || b.Mass > best.Mass {
			best = b
		}
	}
	return best
}

// nextBody returns the body after current, wrapping around
func nextBody(bodies []*physics.Body, current *physics.Body) *physics.Body {
	if len(bodies) == 0 {
		return nil
	}
	for i, b := range bodies {
		if b == current {
			return bodies[(i+1)%len(bodies)]
		}
	}
	return bodies[0]
}

// Run opens a window and shows sim until the window is closed
func Run(sim *engine.Simulation, width, height int, logger *logging.Logger) {
	engo.Run(engo.RunOptions{
		Title:          "physthing",
		Width:          width,
		Height:         height,
		StandardInputs: true,
	}, NewSimulationScene(sim, logger))
}
