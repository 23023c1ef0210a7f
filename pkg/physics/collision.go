// pkg/physics/collision.go
package physics

import "math"

// Circle is the interaction shape of a body: a gravity field of influence
// or a physical boundary, depending on which radius it was built from.
type Circle struct {
	Center Vector2D
	Radius float64
}

// PartiallyOverlaps reports whether two circles intersect at all.
// Touching circles count as overlapping.
func PartiallyOverlaps(a, b Circle) bool {
	return a.Center.Distance(b.Center) <= a.Radius+b.Radius
}

// FullyOverlaps reports whether the smaller circle lies entirely inside
// the larger one. The test is symmetric.
func FullyOverlaps(a, b Circle) bool {
	return a.Center.Distance(b.Center) <= math.Abs(a.Radius-b.Radius)
}

// Overlaps is the method form of PartiallyOverlaps
func (c Circle) Overlaps(other Circle) bool {
	return PartiallyOverlaps(c, other)
}

// Contains reports whether other lies entirely inside c
func (c Circle) Contains(other Circle) bool {
	return other.Radius <= c.Radius && FullyOverlaps(c, other)
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided     bool
	Normal       Vector2D // unit vector from a to b
	Penetration  float64
	ContactPoint Vector2D
}

// CheckCollision performs detailed collision detection between two circles
func CheckCollision(a, b Circle) CollisionResult {
	delta := b.Center.Sub(a.Center)
	distance := delta.Length()

	if distance > a.Radius+b.Radius {
		return CollisionResult{Collided: false}
	}

	normal := delta.Normalize()
	return CollisionResult{
		Collided:     true,
		Normal:       normal,
		Penetration:  a.Radius + b.Radius - distance,
		ContactPoint: a.Center.Add(normal.Scale(a.Radius)),
	}
}
