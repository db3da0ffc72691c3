// pkg/core/vec.go
package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a position, velocity or direction in field coordinates (x: side, y: length, z: up).
type Vec3 = r3.Vec

// Vec builds a Vec3.
func Vec(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// Up is the world up axis.
var Up = Vec3{Z: 1}

func Add(a, b Vec3) Vec3               { return r3.Add(a, b) }
func Sub(a, b Vec3) Vec3               { return r3.Sub(a, b) }
func Scale(v Vec3, f float64) Vec3     { return r3.Scale(f, v) }
func Dot(a, b Vec3) float64            { return r3.Dot(a, b) }
func Cross(a, b Vec3) Vec3             { return r3.Cross(a, b) }
func Norm(v Vec3) float64              { return r3.Norm(v) }
func Distance(a, b Vec3) float64       { return r3.Norm(r3.Sub(a, b)) }
func Ground(v Vec3) Vec3               { return Vec3{X: v.X, Y: v.Y} }
func GroundDistance(a, b Vec3) float64 { return Distance(Ground(a), Ground(b)) }

// Normalize returns the unit vector of v, or the zero vector when v has no length.
// r3.Unit divides by zero in that case.
func Normalize(v Vec3) Vec3 {
	n := r3.Norm(v)
	if n == 0 {
		return Vec3{}
	}
	return r3.Scale(1/n, v)
}

// Direction is the unit vector pointing from a to b.
func Direction(a, b Vec3) Vec3 { return Normalize(Sub(b, a)) }

// GroundDirection is Direction with z dropped.
func GroundDirection(a, b Vec3) Vec3 { return Normalize(Ground(Sub(b, a))) }

// AngleBetween returns the unsigned angle between two vectors in radians.
func AngleBetween(a, b Vec3) float64 {
	return math.Acos(Clamp(Dot(Normalize(a), Normalize(b)), -1, 1))
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Clamp11 restricts x to [-1, 1].
func Clamp11(x float64) float64 { return Clamp(x, -1, 1) }

// AbsClamp restricts x to [-limit, limit].
func AbsClamp(x, limit float64) float64 { return Clamp(x, -limit, limit) }

// Sign returns -1 for negative values and 1 otherwise.
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// RangeMap linearly maps x from [a0, a1] onto [b0, b1] without clamping.
func RangeMap(x, a0, a1, b0, b1 float64) float64 {
	return b0 + (x-a0)*(b1-b0)/(a1-a0)
}

// Lerp interpolates between a and b.
func Lerp(a, b Vec3, t float64) Vec3 {
	return Add(a, Scale(Sub(b, a), t))
}

// ClampSpeed scales v down so its length does not exceed max. Vectors already
// inside the limit (up to rounding) are returned unchanged, so clamping is idempotent.
func ClampSpeed(v Vec3, max float64) Vec3 {
	n := r3.Norm(v)
	if n <= max*(1+1e-12) || n == 0 {
		return v
	}
	return r3.Scale(max/n, v)
}

// ClampToField keeps a point inside the arena rectangle shrunk by margin on each side.
func ClampToField(p Vec3, marginX, marginY float64) Vec3 {
	return Vec3{
		X: AbsClamp(p.X, FieldHalfWidth-marginX),
		Y: AbsClamp(p.Y, FieldHalfLength-marginY),
		Z: p.Z,
	}
}

// NonZero avoids divisions by zero in time computations.
func NonZero(x float64) float64 {
	if math.Abs(x) < 1e-6 {
		return 1e-6 * Sign(x)
	}
	return x
}
