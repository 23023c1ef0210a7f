package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/opd-ai/physthing/pkg/physics"
)

// Border and frame rows drawn around the buffer
const terminalChrome = 2

// TerminalRenderer provides a simple ASCII-based rendering for terminals
type TerminalRenderer struct {
	width     int
	height    int
	buffer    [][]rune
	scale     float64 // world units per cell
	centerPos physics.Vector2D
	out       io.Writer
}

// NewTerminalRenderer creates a new terminal renderer with the specified dimensions
func NewTerminalRenderer(width, height int, scale float64) *TerminalRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}
	r := &TerminalRenderer{
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
		out:    os.Stdout,
	}
	r.Clear()
	return r
}

// NewTerminalRendererForTTY sizes the renderer to fill stdout when it is
// a terminal, and falls back to the given size otherwise
func NewTerminalRendererForTTY(width, height int, scale float64) *TerminalRenderer {
	if w, h, ok := TerminalSize(); ok && w > terminalChrome && h > terminalChrome {
		width, height = w-terminalChrome, h-terminalChrome
	}
	return NewTerminalRenderer(width, height, scale)
}

// TerminalSize reports the size of the terminal on stdout
func TerminalSize() (width, height int, ok bool) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0, 0, false
	}
	width, height, err := term.GetSize(fd)
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}

// SetOutput redirects frames to w
func (r *TerminalRenderer) SetOutput(w io.Writer) {
	r.out = w
}

// SetCenter sets the center position of the view
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// worldToScreen converts world coordinates to screen coordinates. World y
// points up, screen rows grow downwards.
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	screenX := math.Floor((pos.X-r.centerPos.X)/r.scale + float64(r.width)/2)
	screenY := math.Floor(-(pos.Y-r.centerPos.Y)/r.scale + float64(r.height)/2)
	return int(screenX), int(screenY)
}

func (r *TerminalRenderer) plot(x, y int, c rune) {
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = c
	}
}

// Clear implements Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// RenderBody implements Renderer
func (r *TerminalRenderer) RenderBody(body *physics.Body) {
	if body == nil {
		return
	}
	cx, cy := r.worldToScreen(body.Position)
	footprint(body.CollisionCircle().Radius/r.scale, func(dx, dy int, c rune) {
		r.plot(cx+dx, cy+dy, c)
	})
}

// footprint calls plot for every cell a body of the given radius in
// cells covers. Bodies spanning at least a cell are filled discs of 'O',
// smaller ones a single 'o' or '.'.
func footprint(cells float64, plot func(dx, dy int, c rune)) {
	switch {
	case cells >= 1:
		n := int(cells)
		for dy := -n; dy <= n; dy++ {
			for dx := -n; dx <= n; dx++ {
				if float64(dx*dx+dy*dy) <= cells*cells {
					plot(dx, dy, 'O')
				}
			}
		}
	case cells >= 0.25:
		plot(0, 0, 'o')
	default:
		plot(0, 0, '.')
	}
}

// Present implements Renderer
func (r *TerminalRenderer) Present() {
	var sb strings.Builder
	sb.WriteString("\033[H\033[2J")

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	sb.WriteString(border)
	for y := range r.buffer {
		sb.WriteByte('|')
		sb.WriteString(string(r.buffer[y]))
		sb.WriteString("|\n")
	}
	sb.WriteString(border)

	fmt.Fprint(r.out, sb.String())
}
