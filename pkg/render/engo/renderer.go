// pkg/render/engo/renderer.go
package engo

import (
	"image/color"
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/physthing/pkg/physics"
)

// spriteSystem is the part of common.RenderSystem the renderer needs
type spriteSystem interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

type bodySprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
	seen bool
}

// BodyRenderer draws every body as a circle through the engo render
// system. Sprites of bodies that were not drawn in a frame are removed
// when the frame is presented.
type BodyRenderer struct {
	sprites spriteSystem
	camera  *CameraSystem
	bodies  map[uint64]*bodySprite
}

// NewBodyRenderer creates a renderer feeding sprites to the given system
func NewBodyRenderer(sprites spriteSystem, camera *CameraSystem) *BodyRenderer {
	return &BodyRenderer{
		sprites: sprites,
		camera:  camera,
		bodies:  make(map[uint64]*bodySprite),
	}
}

// Clear implements render.Renderer
func (r *BodyRenderer) Clear() {
	for _, s := range r.bodies {
		s.seen = false
	}
}

// RenderBody implements render.Renderer
func (r *BodyRenderer) RenderBody(b *physics.Body) {
	s, ok := r.bodies[b.ID()]
	if !ok {
		s = &bodySprite{BasicEntity: ecs.NewBasic()}
		s.RenderComponent = common.RenderComponent{
			Drawable: common.Circle{},
			Color:    bodyColor(b),
		}
		r.sprites.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
		r.bodies[b.ID()] = s
	}
	s.seen = true

	radius := b.CollisionCircle().Radius
	diameter := float32(math.Max(2*radius*r.camera.Zoom(), 1))
	centre := r.camera.WorldToScreen(b.Position)
	s.SpaceComponent.Width = diameter
	s.SpaceComponent.Height = diameter
	s.SpaceComponent.Position = engo.Point{
		X: float32(centre.X) - diameter/2,
		Y: float32(centre.Y) - diameter/2,
	}
}

// Present implements render.Renderer
func (r *BodyRenderer) Present() {
	for id, s := range r.bodies {
		if !s.seen {
			r.sprites.Remove(s.BasicEntity)
			delete(r.bodies, id)
		}
	}
}

// Len returns the number of live sprites
func (r *BodyRenderer) Len() int {
	return len(r.bodies)
}

// bodyColor shades heavy bodies towards yellow and fixed bodies red
func bodyColor(b *physics.Body) color.Color {
	if b.Fixed {
		return color.RGBA{220, 60, 60, 255}
	}
	t := math.Min(1, math.Log10(math.Max(b.Mass, 1))/5)
	return color.RGBA{
		R: uint8(160 + 95*t),
		G: uint8(160 + 80*t),
		B: uint8(200 - 180*t),
		A: 255,
	}
}
