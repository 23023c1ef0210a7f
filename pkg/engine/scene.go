// pkg/engine/scene.go
package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/opd-ai/physthing/pkg/config"
	"github.com/opd-ai/physthing/pkg/physics"
)

// ErrUnknownScene is returned by BuildScene for an unregistered name
var ErrUnknownScene = errors.New("engine: unknown scene")

// SceneFunc builds the bodies of a scene from its configuration
type SceneFunc func(cfg config.SceneConfig, phys config.PhysicsConfig) []*physics.Body

var scenes = map[string]SceneFunc{
	"sun":    sunScene,
	"grid":   gridScene,
	"nested": nestedScene,
	"random": randomScene,
	"custom": customScene,
}

// SceneNames lists the registered scenes
func SceneNames() []string {
	return []string{"sun", "grid", "nested", "random", "custom"}
}

// BuildScene creates the bodies of the named scene. A configuration that
// lists bodies is built as a custom scene whatever its name.
func BuildScene(cfg config.SceneConfig, phys config.PhysicsConfig) ([]*physics.Body, error) {
	if len(cfg.Bodies) > 0 {
		return customScene(cfg, phys), nil
	}
	fn, ok := scenes[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, cfg.Name)
	}
	return fn(cfg, phys), nil
}

// LoadScene builds the configured scene and adds every body
func (s *Simulation) LoadScene(cfg config.SceneConfig) error {
	bodies, err := BuildScene(cfg, s.Config.Physics)
	if err != nil {
		return err
	}
	for _, b := range bodies {
		if err := s.AddBody(b); err != nil {
			return fmt.Errorf("failed to add %s: %w", b.Name, err)
		}
	}
	return nil
}

func planet(name string, mass, radius, interaction float64, phys config.PhysicsConfig) *physics.Body {
	if interaction == 0 {
		interaction = phys.InteractionRadius
	}
	b := physics.NewPlanet(name, mass, radius, interaction)
	if phys.Damping > 0 {
		b.Collision.Damping = phys.Damping
	}
	return b
}

// sunScene is a sun with an orbiting planet and its moon
func sunScene(_ config.SceneConfig, phys config.PhysicsConfig) []*physics.Body {
	sun := planet("sun", 50e3, 100, 1e6, phys)

	earth := planet("planet", 1e3, 15, 1000, phys)
	earth.Translate(physics.Vector2D{X: -400})
	earth.Velocity = physics.Vector2D{Y: -120}

	moon := planet("moon", 100, 5, 1000, phys)
	moon.Translate(physics.Vector2D{X: -400, Y: 50})
	moon.Velocity = physics.Vector2D{X: -40, Y: -120}

	return []*physics.Body{sun, earth, moon}
}

// gridScene lays out rows×cols resting planets centred on the origin.
// Their interaction radius is twice the spacing so neighbours attract.
func gridScene(cfg config.SceneConfig, phys config.PhysicsConfig) []*physics.Body {
	rows, cols := max(cfg.Rows, 1), max(cfg.Cols, 1)
	spacing := cfg.Spacing
	if spacing <= 0 {
		spacing = 250
	}

	bodies := make([]*physics.Body, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b := planet(fmt.Sprintf("grid-%d-%d", r, c), 100, 10, 2*spacing, phys)
			b.Translate(physics.Vector2D{
				X: (float64(c) - float64(cols-1)/2) * spacing,
				Y: (float64(r) - float64(rows-1)/2) * spacing,
			})
			bodies = append(bodies, b)
		}
	}
	return bodies
}

// nestedScene is the six-circle containment layout. D lies inside A and F
// inside B while A, B, C and E form a chain of partial overlaps.
func nestedScene(_ config.SceneConfig, phys config.PhysicsConfig) []*physics.Body {
	layout := []struct {
		name string
		x, r float64
	}{
		{"A", -15, 10},
		{"B", 0, 10},
		{"C", 15, 10},
		{"D", -10, 1},
		{"E", 30, 10},
		{"F", -1, 1},
	}

	bodies := make([]*physics.Body, 0, len(layout))
	for _, l := range layout {
		b := planet(l.name, 1, l.r, l.r, phys)
		b.Translate(physics.Vector2D{X: l.x})
		bodies = append(bodies, b)
	}
	return bodies
}

// randomScene scatters Count bodies with mixed sizes from a seeded source
func randomScene(cfg config.SceneConfig, phys config.PhysicsConfig) []*physics.Body {
	n := cfg.Count
	if n <= 0 {
		n = 200
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	extent := 50 * float64(n)

	bodies := make([]*physics.Body, 0, n)
	for i := 0; i < n; i++ {
		radius := 2 + rng.Float64()*18
		if rng.IntN(10) == 0 {
			radius *= 5
		}
		b := planet(fmt.Sprintf("body-%d", i), radius*radius, radius, radius*(4+rng.Float64()*8), phys)
		b.Translate(physics.Vector2D{
			X: (rng.Float64() - 0.5) * extent,
			Y: (rng.Float64() - 0.5) * extent,
		})
		b.Velocity = physics.Vector2D{
			X: (rng.Float64() - 0.5) * 40,
			Y: (rng.Float64() - 0.5) * 40,
		}
		bodies = append(bodies, b)
	}
	return bodies
}

// customScene builds exactly the configured bodies
func customScene(cfg config.SceneConfig, phys config.PhysicsConfig) []*physics.Body {
	bodies := make([]*physics.Body, 0, len(cfg.Bodies))
	for _, bc := range cfg.Bodies {
		b := planet(bc.Name, bc.Mass, bc.Radius, bc.InteractionRadius, phys)
		b.Position = physics.Vector2D{X: bc.X, Y: bc.Y}
		b.Velocity = physics.Vector2D{X: bc.VX, Y: bc.VY}
		b.Fixed = bc.Fixed
		bodies = append(bodies, b)
	}
	return bodies
}
