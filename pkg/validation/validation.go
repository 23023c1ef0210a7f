// Package validation checks bodies and body names before they enter a
// simulation.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/physthing/pkg/physics"
)

// MaxBodyNameLen bounds body names in bytes
const MaxBodyNameLen = 32

// ErrInvalidBody is wrapped by every validation failure
var ErrInvalidBody = errors.New("invalid body")

// Letters, digits, spaces and a little punctuation
var validBodyNameChars = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.()#]+$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidBody}, args...)...)
}

// ValidateBodyName validates a body name and returns it trimmed
func ValidateBodyName(name string) (string, error) {
	if name == "" {
		return "", invalid("body name cannot be empty")
	}
	if len(name) > MaxBodyNameLen {
		return "", invalid("body name too long: %d characters (max %d)", len(name), MaxBodyNameLen)
	}
	if !utf8.ValidString(name) {
		return "", invalid("body name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", invalid("body name cannot be only whitespace")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", invalid("body name contains control characters")
		}
	}
	if !validBodyNameChars.MatchString(trimmed) {
		return "", invalid("body name %q contains invalid characters", trimmed)
	}
	return trimmed, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateBody rejects bodies whose state would poison the integrator or
// the broad-phase ordering: non-finite numbers, negative mass and
// negative radii. Names are not checked here.
func ValidateBody(b *physics.Body) error {
	if b == nil {
		return invalid("nil body")
	}
	if !finite(b.Mass) || b.Mass < 0 {
		return invalid("%s: mass %g", b.Name, b.Mass)
	}
	for _, v := range []struct {
		what string
		vec  physics.Vector2D
	}{
		{"position", b.Position},
		{"velocity", b.Velocity},
	} {
		if !finite(v.vec.X) || !finite(v.vec.Y) {
			return invalid("%s: %s (%g, %g) is not finite", b.Name, v.what, v.vec.X, v.vec.Y)
		}
	}
	if g := b.Gravity; g != nil && (!finite(g.InteractionRadius) || g.InteractionRadius < 0) {
		return invalid("%s: interaction radius %g", b.Name, g.InteractionRadius)
	}
	if c := b.Collision; c != nil {
		if !finite(c.Radius) || c.Radius < 0 {
			return invalid("%s: collision radius %g", b.Name, c.Radius)
		}
		if c.Damping < 0 || c.Damping > 1 {
			return invalid("%s: damping %g outside [0, 1]", b.Name, c.Damping)
		}
	}
	return nil
}
