package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/physthing/pkg/physics"
)

var (
	bodyStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	heavyStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	fixedStyle = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// Bodies at least this heavy are highlighted
const heavyMass = 1e4

// ScreenRenderer draws on a full-screen tcell terminal. The view is sized
// from the screen on every frame.
type ScreenRenderer struct {
	screen    tcell.Screen
	scale     float64 // world units per cell
	centerPos physics.Vector2D
	width     int
	height    int
}

// NewScreenRenderer draws on an initialised screen
func NewScreenRenderer(screen tcell.Screen, scale float64) *ScreenRenderer {
	r := &ScreenRenderer{screen: screen, scale: scale}
	r.width, r.height = screen.Size()
	return r
}

// OpenScreen takes over the controlling terminal
func OpenScreen(scale float64) (*ScreenRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	return NewScreenRenderer(screen, scale), nil
}

// SetCenter sets the center position of the view
func (r *ScreenRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

func (r *ScreenRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	x := math.Floor((pos.X-r.centerPos.X)/r.scale + float64(r.width)/2)
	y := math.Floor(-(pos.Y-r.centerPos.Y)/r.scale + float64(r.height)/2)
	return int(x), int(y)
}

// Clear implements Renderer
func (r *ScreenRenderer) Clear() {
	r.width, r.height = r.screen.Size()
	r.screen.Clear()
}

// RenderBody implements Renderer
func (r *ScreenRenderer) RenderBody(body *physics.Body) {
	if body == nil {
		return
	}
	style := bodyStyle
	switch {
	case body.Fixed:
		style = fixedStyle
	case body.Mass >= heavyMass:
		style = heavyStyle
	}

	cx, cy := r.worldToScreen(body.Position)
	footprint(body.CollisionCircle().Radius/r.scale, func(dx, dy int, c rune) {
		x, y := cx+dx, cy+dy
		if x >= 0 && x < r.width && y >= 0 && y < r.height {
			r.screen.SetContent(x, y, c, nil, style)
		}
	})
}

// Present implements Renderer
func (r *ScreenRenderer) Present() {
	r.screen.Show()
}

// WatchQuit calls quit once Escape, Ctrl-C or q is pressed. It returns
// when the screen is closed.
func (r *ScreenRenderer) WatchQuit(quit func()) {
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return
		}
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		if key.Key() == tcell.KeyEscape || key.Key() == tcell.KeyCtrlC || key.Rune() == 'q' {
			quit()
		}
	}
}

// Close restores the terminal
func (r *ScreenRenderer) Close() {
	r.screen.Fini()
}
