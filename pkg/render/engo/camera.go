// pkg/render/engo/camera.go
package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/physthing/pkg/physics"
)

// Zoom moves in steps of a tenth of a decade
const zoomStep = 0.1

// CameraSystem centres the view on a followed body and zooms on a
// logarithmic scale
type CameraSystem struct {
	// Body to follow, nil for a free camera
	target *physics.Body

	// log10 of the zoom factor
	logZoom    float64
	minLogZoom float64
	maxLogZoom float64

	followSpeed float64
	smoothing   bool

	currentPos   physics.Vector2D
	viewW, viewH float64
}

// NewCameraSystem creates a camera at the origin with zoom 0.7
func NewCameraSystem() *CameraSystem {
	return &CameraSystem{
		logZoom:     math.Log10(0.7),
		minLogZoom:  -6,
		maxLogZoom:  1,
		followSpeed: 2.0,
		smoothing:   true,
		viewW:       800,
		viewH:       600,
	}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {
	if cs.target != nil && cs.target.ID() == basic.ID() {
		cs.target = nil
	}
}

// Update follows the target and applies scroll zoom
func (cs *CameraSystem) Update(dt float32) {
	if engo.Input != nil && engo.Input.Mouse.ScrollY != 0 {
		cs.Scroll(float64(engo.Input.Mouse.ScrollY))
	}
	if engo.Input != nil && engo.Input.Button("resetZoom").JustPressed() {
		cs.SetZoom(1)
	}
	cs.follow(float64(dt))
}

func (cs *CameraSystem) follow(dt float64) {
	if cs.target == nil {
		return
	}
	if !cs.smoothing {
		cs.currentPos = cs.target.Position
		return
	}
	delta := cs.target.Position.Sub(cs.currentPos)
	step := math.Min(1, cs.followSpeed*dt)
	cs.currentPos = cs.currentPos.Add(delta.Scale(step))
}

// Follow makes the camera track b. The first target is jumped to.
func (cs *CameraSystem) Follow(b *physics.Body) {
	first := cs.target == nil
	cs.target = b
	if b != nil && (first || !cs.smoothing) {
		cs.currentPos = b.Position
	}
}

// Target returns the followed body
func (cs *CameraSystem) Target() *physics.Body {
	return cs.target
}

// Scroll zooms in for positive amounts and out for negative ones, one step
// per call. Steps that would leave the limits are ignored.
func (cs *CameraSystem) Scroll(amount float64) {
	next := cs.logZoom
	switch {
	case amount > 0:
		next += zoomStep
	case amount < 0:
		next -= zoomStep
	}
	if next >= cs.minLogZoom && next <= cs.maxLogZoom {
		cs.logZoom = next
	}
}

// SetZoom sets the zoom factor, clamped to the limits
func (cs *CameraSystem) SetZoom(zoom float64) {
	if zoom <= 0 {
		cs.logZoom = cs.minLogZoom
		return
	}
	cs.logZoom = cs.clampLogZoom(math.Log10(zoom))
}

// Zoom returns the current zoom factor
func (cs *CameraSystem) Zoom() float64 {
	return math.Pow(10, cs.logZoom)
}

func (cs *CameraSystem) clampLogZoom(l float64) float64 {
	return math.Max(cs.minLogZoom, math.Min(cs.maxLogZoom, l))
}

// SetZoomLimits sets the minimum and maximum zoom factors
func (cs *CameraSystem) SetZoomLimits(min, max float64) {
	cs.minLogZoom = math.Log10(min)
	cs.maxLogZoom = math.Log10(max)
	cs.logZoom = cs.clampLogZoom(cs.logZoom)
}

// SetFollowSpeed sets the fraction of the distance to the target covered
// per second
func (cs *CameraSystem) SetFollowSpeed(speed float64) {
	cs.followSpeed = speed
}

// EnableSmoothing enables or disables camera smoothing
func (cs *CameraSystem) EnableSmoothing(enabled bool) {
	cs.smoothing = enabled
}

// SetViewport sets the screen size in pixels
func (cs *CameraSystem) SetViewport(width, height float64) {
	cs.viewW, cs.viewH = width, height
}

// Position returns the world point at the centre of the view
func (cs *CameraSystem) Position() physics.Vector2D {
	return cs.currentPos
}

// WorldToScreen converts world coordinates to screen coordinates. Screen
// y grows downwards.
func (cs *CameraSystem) WorldToScreen(world physics.Vector2D) physics.Vector2D {
	z := cs.Zoom()
	return physics.Vector2D{
		X: (world.X-cs.currentPos.X)*z + cs.viewW/2,
		Y: -(world.Y-cs.currentPos.Y)*z + cs.viewH/2,
	}
}

// ScreenToWorld inverts WorldToScreen
func (cs *CameraSystem) ScreenToWorld(screen physics.Vector2D) physics.Vector2D {
	z := cs.Zoom()
	return physics.Vector2D{
		X: (screen.X-cs.viewW/2)/z + cs.currentPos.X,
		Y: -(screen.Y-cs.viewH/2)/z + cs.currentPos.Y,
	}
}

// SetupCameraControls registers the camera key bindings
func SetupCameraControls() {
	engo.Input.RegisterButton("resetZoom", engo.KeyR)
	engo.Input.RegisterButton("nextTarget", engo.KeyTab)
}
