// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/physthing/pkg/logging"
	"github.com/opd-ai/physthing/pkg/physics"
)

// Renderer draws one frame of the simulation. Clear starts a frame,
// RenderBody is called once per body and Present shows the result.
type Renderer interface {
	Clear()
	RenderBody(body *physics.Body)
	Present()
}

// NullRenderer draws nothing and logs every call at debug level
type NullRenderer struct {
	logger *logging.Logger
	frames uint64
}

// NewNullRenderer creates a new NullRenderer with structured logging.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(context.Background(), "Clear called", "frame", d.frames)
}

// Present implements Renderer.
func (d *NullRenderer) Present() {
	d.logger.Debug(context.Background(), "Present called", "frame", d.frames)
	d.frames++
}

// Frames returns the number of presented frames
func (d *NullRenderer) Frames() uint64 {
	return d.frames
}

// RenderBody implements Renderer.
func (d *NullRenderer) RenderBody(body *physics.Body) {
	ctx := context.Background()
	if body == nil {
		d.logger.Debug(ctx, "RenderBody called with nil body")
		return
	}
	d.logger.Debug(ctx, "RenderBody called",
		"body_id", body.ID(),
		"body_name", body.Name,
		"pos", [2]float64{body.Position.X, body.Position.Y},
	)
}
