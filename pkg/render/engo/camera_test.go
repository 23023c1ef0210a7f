// pkg/render/engo/camera_test.go
package engo

import (
	"math"
	"testing"

	"github.com/opd-ai/physthing/pkg/physics"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewCameraSystem(t *testing.T) {
	camera := NewCameraSystem()

	if !near(camera.Zoom(), 0.7) {
		t.Errorf("Expected default zoom 0.7, got %f", camera.Zoom())
	}
	if camera.followSpeed != 2.0 {
		t.Errorf("Expected default followSpeed 2.0, got %f", camera.followSpeed)
	}
	if !camera.smoothing {
		t.Error("Expected smoothing to be enabled by default")
	}
	if camera.Target() != nil {
		t.Error("Expected no target by default")
	}
}

func TestCameraSystem_Scroll(t *testing.T) {
	camera := NewCameraSystem()
	camera.SetZoom(1)

	camera.Scroll(1)
	if !near(camera.Zoom(), math.Pow(10, 0.1)) {
		t.Errorf("zoom after scroll in = %f", camera.Zoom())
	}
	camera.Scroll(-3)
	camera.Scroll(-3)
	if !near(camera.Zoom(), math.Pow(10, -0.1)) {
		t.Errorf("zoom after two scrolls out = %f", camera.Zoom())
	}
	camera.Scroll(0)
	if !near(camera.Zoom(), math.Pow(10, -0.1)) {
		t.Errorf("zero scroll changed zoom to %f", camera.Zoom())
	}

	// steps past the limit are ignored
	camera.SetZoom(10)
	camera.Scroll(1)
	if !near(camera.Zoom(), 10) {
		t.Errorf("zoom beyond the maximum: %f", camera.Zoom())
	}
}

func TestCameraSystem_SetZoom(t *testing.T) {
	testCases := []struct {
		name     string
		zoom     float64
		expected float64
	}{
		{"ValidZoom", 1.5, 1.5},
		{"AboveMax", 50, 10},
		{"BelowMin", 1e-9, 1e-6},
		{"Zero", 0, 1e-6},
		{"Negative", -1, 1e-6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			camera := NewCameraSystem()
			camera.SetZoom(tc.zoom)
			if got := camera.Zoom(); math.Abs(got-tc.expected) > 1e-9*math.Max(1, tc.expected) {
				t.Errorf("Expected zoom %g, got %g", tc.expected, got)
			}
		})
	}
}

func TestCameraSystem_ZoomLimits(t *testing.T) {
	camera := NewCameraSystem()
	camera.SetZoom(2.5)
	camera.SetZoomLimits(0.2, 2.0)

	if !near(camera.Zoom(), 2.0) {
		t.Errorf("Expected zoom to be clamped to 2.0, got %f", camera.Zoom())
	}
}

func TestCameraSystem_Follow(t *testing.T) {
	target := physics.NewBody("target", 1)
	target.Position = physics.Vector2D{X: 100, Y: 200}

	t.Run("first target is jumped to", func(t *testing.T) {
		camera := NewCameraSystem()
		camera.Follow(target)
		if camera.Position() != target.Position {
			t.Errorf("Expected position %v, got %v", target.Position, camera.Position())
		}
	})

	t.Run("smoothing approaches target", func(t *testing.T) {
		camera := NewCameraSystem()
		camera.Follow(target)
		camera.SetFollowSpeed(1)
		target.Position = physics.Vector2D{X: 200, Y: 200}

		camera.follow(0.5)
		if got := camera.Position(); !near(got.X, 150) || !near(got.Y, 200) {
			t.Errorf("Expected halfway point (150, 200), got %v", got)
		}
	})

	t.Run("without smoothing snaps", func(t *testing.T) {
		camera := NewCameraSystem()
		camera.EnableSmoothing(false)
		camera.Follow(target)
		target.Position = physics.Vector2D{X: -5, Y: 7}

		camera.follow(0.01)
		if camera.Position() != target.Position {
			t.Errorf("Expected %v, got %v", target.Position, camera.Position())
		}
	})

	t.Run("removing the target frees the camera", func(t *testing.T) {
		camera := NewCameraSystem()
		camera.Follow(target)
		camera.Remove(target.BasicEntity)
		if camera.Target() != nil {
			t.Error("target still set after removal")
		}
		camera.follow(1)
	})
}

func TestCameraSystem_WorldToScreen(t *testing.T) {
	camera := NewCameraSystem()
	camera.SetViewport(800, 600)
	camera.SetZoom(2)

	centre := camera.WorldToScreen(physics.Vector2D{})
	if !near(centre.X, 400) || !near(centre.Y, 300) {
		t.Errorf("origin maps to %v, expected screen centre", centre)
	}

	up := camera.WorldToScreen(physics.Vector2D{X: 10, Y: 10})
	if !near(up.X, 420) || !near(up.Y, 280) {
		t.Errorf("(10, 10) maps to %v, expected (420, 280)", up)
	}

	points := []physics.Vector2D{{X: 0, Y: 0}, {X: 123.5, Y: -42}, {X: -1e4, Y: 3e3}}
	for _, p := range points {
		back := camera.ScreenToWorld(camera.WorldToScreen(p))
		if !near(back.X, p.X) || !near(back.Y, p.Y) {
			t.Errorf("round trip of %v gave %v", p, back)
		}
	}
}
