// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opd-ai/physthing/pkg/broadphase"
	"github.com/opd-ai/physthing/pkg/validation"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid configuration")

// SimulationConfig contains the full configuration of a simulation run
type SimulationConfig struct {
	Physics    PhysicsConfig    `json:"physics"`
	Broadphase BroadphaseConfig `json:"broadphase"`
	Render     RenderConfig     `json:"render"`
	Scene      SceneConfig      `json:"scene"`
}

// PhysicsConfig contains integration and force parameters
type PhysicsConfig struct {
	Gravity           float64 `json:"gravity"`
	TickRate          int     `json:"tickRate"`
	MaxDelta          float64 `json:"maxDelta"`
	Damping           float64 `json:"damping"`
	InteractionRadius float64 `json:"interactionRadius"`
}

// BroadphaseConfig selects the pair finder per force system
type BroadphaseConfig struct {
	Gravity   broadphase.Strategy `json:"gravity"`
	Collision broadphase.Strategy `json:"collision"`
}

// RenderConfig contains viewer settings
type RenderConfig struct {
	Mode   string  `json:"mode"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale"` // world units per terminal cell
	Sound  bool    `json:"sound"`
}

// SceneConfig names a built-in scene or lists bodies explicitly
type SceneConfig struct {
	Name    string       `json:"name"`
	Seed    uint64       `json:"seed"`
	Count   int          `json:"count"`
	Rows    int          `json:"rows"`
	Cols    int          `json:"cols"`
	Spacing float64      `json:"spacing"`
	Bodies  []BodyConfig `json:"bodies,omitempty"`
}

// BodyConfig describes one body of a custom scene
type BodyConfig struct {
	Name              string  `json:"name"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	VX                float64 `json:"vx"`
	VY                float64 `json:"vy"`
	Mass              float64 `json:"mass"`
	Radius            float64 `json:"radius"`
	InteractionRadius float64 `json:"interactionRadius"`
	Fixed             bool    `json:"fixed"`
}

// Render modes
const (
	RenderNull     = "null"
	RenderTerminal = "terminal"
	RenderScreen   = "screen"
	RenderEngo     = "engo"
)

// TickInterval returns the wall-clock time between ticks
func (c *PhysicsConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

// LoadConfig loads a configuration from a file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SimulationConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the configuration of the sun scene
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Physics: PhysicsConfig{
			Gravity:           100,
			TickRate:          60,
			MaxDelta:          0.1,
			Damping:           0.6,
			InteractionRadius: 100,
		},
		Broadphase: BroadphaseConfig{
			Gravity:   broadphase.StrategyTree,
			Collision: broadphase.StrategyTree,
		},
		Render: RenderConfig{
			Mode:   RenderTerminal,
			Width:  80,
			Height: 24,
			Scale:  20,
		},
		Scene: SceneConfig{
			Name:    "sun",
			Seed:    1,
			Count:   200,
			Rows:    5,
			Cols:    5,
			Spacing: 250,
		},
	}
}

// ApplyEnv overrides fields from PHYSTHING_* environment variables.
// Unset variables leave the field alone; malformed values are an error.
func (c *SimulationConfig) ApplyEnv() error {
	var errs []error
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	setStrategy := func(key string, dst *broadphase.Strategy) {
		if v, ok := os.LookupEnv(key); ok {
			s, err := broadphase.ParseStrategy(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = s
		}
	}

	setFloat("PHYSTHING_GRAVITY", &c.Physics.Gravity)
	setInt("PHYSTHING_TICK_RATE", &c.Physics.TickRate)
	setFloat("PHYSTHING_MAX_DELTA", &c.Physics.MaxDelta)
	setFloat("PHYSTHING_DAMPING", &c.Physics.Damping)
	setStrategy("PHYSTHING_GRAVITY_BROADPHASE", &c.Broadphase.Gravity)
	setStrategy("PHYSTHING_COLLISION_BROADPHASE", &c.Broadphase.Collision)
	setString("PHYSTHING_RENDER", &c.Render.Mode)
	setString("PHYSTHING_SCENE", &c.Scene.Name)
	if v, ok := os.LookupEnv("PHYSTHING_SOUND"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("PHYSTHING_SOUND: %w", err))
		} else {
			c.Render.Sound = b
		}
	}

	return errors.Join(errs...)
}

// Validate checks ranges and enumerations
func (c *SimulationConfig) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Physics.Gravity < 0 {
		fail("gravity %g is negative", c.Physics.Gravity)
	}
	if c.Physics.TickRate <= 0 {
		fail("tick rate %d must be positive", c.Physics.TickRate)
	}
	if c.Physics.MaxDelta <= 0 {
		fail("max delta %g must be positive", c.Physics.MaxDelta)
	}
	if c.Physics.Damping < 0 || c.Physics.Damping > 1 {
		fail("damping %g outside [0, 1]", c.Physics.Damping)
	}
	if c.Physics.InteractionRadius < 0 {
		fail("interaction radius %g is negative", c.Physics.InteractionRadius)
	}

	for name, s := range map[string]broadphase.Strategy{"gravity": c.Broadphase.Gravity, "collision": c.Broadphase.Collision} {
		if _, err := broadphase.ParseStrategy(string(s)); err != nil {
			fail("%s broadphase: %v", name, err)
		}
	}

	switch c.Render.Mode {
	case RenderNull, RenderTerminal, RenderScreen, RenderEngo:
	default:
		fail("unknown render mode %q", c.Render.Mode)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		fail("render size %dx%d must be positive", c.Render.Width, c.Render.Height)
	}
	if c.Render.Scale <= 0 {
		fail("render scale %g must be positive", c.Render.Scale)
	}

	for i, b := range c.Scene.Bodies {
		if _, err := validation.ValidateBodyName(b.Name); err != nil {
			fail("body %d: %v", i, err)
		}
		if b.Mass < 0 {
			fail("body %d (%s): negative mass", i, b.Name)
		}
		if b.Radius < 0 || b.InteractionRadius < 0 {
			fail("body %d (%s): negative radius", i, b.Name)
		}
	}

	return errors.Join(errs...)
}

// Load reads path when given, falls back to defaults otherwise, then
// applies environment overrides and validates the result
func Load(path string) (*SimulationConfig, error) {
	config := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
