// Package sim provides the rigid-body stepping and field geometry oracles that the
// planning code queries when it needs to look ahead. Neither oracle ever touches the
// live game state: every call takes a value and returns a new one.
package sim

import (
	"math"

	"github.com/CaptainRL/captain/pkg/core"
)

// Contact describes the nearest surface touching a sphere.
type Contact struct {
	Hit    bool
	Point  core.Vec3
	Normal core.Vec3 // points out of the surface, into the field
	Depth  float64   // penetration depth, positive when overlapping
}

// Field answers surface-contact queries for a sphere.
type Field interface {
	Collide(center core.Vec3, radius float64) Contact
}

// Arena is the standard field: a box with open goal mouths on both back walls.
type Arena struct {
	HalfWidth  float64
	HalfLength float64
	Height     float64
	GoalWidth  float64 // half width of the goal mouth
	GoalHeight float64
	GoalDepth  float64
}

// StandardArena returns the default field dimensions.
func StandardArena() *Arena {
	return &Arena{
		HalfWidth:  core.FieldHalfWidth,
		HalfLength: core.FieldHalfLength,
		Height:     core.FieldHeight,
		GoalWidth:  core.GoalHalfWidth,
		GoalHeight: core.GoalHeight,
		GoalDepth:  880,
	}
}

type plane struct {
	normal core.Vec3
	offset float64 // signed distance from the origin along normal
}

func (a *Arena) planes(center core.Vec3) []plane {
	backWall := a.HalfLength
	if math.Abs(center.X) < a.GoalWidth && center.Z < a.GoalHeight {
		backWall = a.HalfLength + a.GoalDepth
	}
	return []plane{
		{normal: core.Vec3{Z: 1}, offset: 0},
		{normal: core.Vec3{Z: -1}, offset: -a.Height},
		{normal: core.Vec3{X: 1}, offset: -a.HalfWidth},
		{normal: core.Vec3{X: -1}, offset: -a.HalfWidth},
		{normal: core.Vec3{Y: 1}, offset: -backWall},
		{normal: core.Vec3{Y: -1}, offset: -backWall},
	}
}

// Collide returns the deepest surface contact for a sphere, or Hit=false when the
// sphere is clear of every surface.
func (a *Arena) Collide(center core.Vec3, radius float64) Contact {
	best := Contact{}
	for _, p := range a.planes(center) {
		dist := core.Dot(center, p.normal) - p.offset
		depth := radius - dist
		if depth <= 0 || (best.Hit && depth <= best.Depth) {
			continue
		}
		best = Contact{
			Hit:    true,
			Normal: p.normal,
			Point:  core.Sub(center, core.Scale(p.normal, dist)),
			Depth:  depth,
		}
	}
	return best
}

var _ Field = (*Arena)(nil)
