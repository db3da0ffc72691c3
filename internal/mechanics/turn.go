// Package mechanics holds the low-level airborne controllers shared by several plays.
package mechanics

import (
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/pkg/core"
)

// AerialTurn rotates an airborne car toward a target orientation. The orientation
// error is turned into a desired angular velocity, and the stick is set to close the
// gap between desired and current angular velocity.
type AerialTurn struct {
	Target core.Mat3
	tuning config.TurnTuning
}

// NewAerialTurn builds a controller aiming at target.
func NewAerialTurn(t config.TurnTuning, target core.Mat3) AerialTurn {
	return AerialTurn{Target: target, tuning: t}
}

// Step returns pitch, yaw and roll inputs; every other field is neutral.
func (a AerialTurn) Step(car core.Car) core.Controls {
	errLocal := core.RotationVector(car.Orientation.Transpose().Mul(a.Target))
	omega := car.Orientation.Local(car.AngularVelocity)
	want := core.Scale(errLocal, a.tuning.Proportional)
	delta := core.Scale(core.Sub(want, omega), a.tuning.Derivative)
	return core.Controls{
		Roll:  core.Clamp11(delta.X),
		Pitch: core.Clamp11(-delta.Y),
		Yaw:   core.Clamp11(delta.Z),
	}
}

// Aligned reports whether the car is within tolerance of the target orientation.
func (a AerialTurn) Aligned(car core.Car) bool {
	return core.Angle(car.Orientation, a.Target) < a.tuning.Tolerance
}
