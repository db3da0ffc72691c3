// Package predict forecasts the ball (and, coarsely, cars) a few seconds ahead.
package predict

import (
	"iter"
	"math"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/sim"
	"github.com/CaptainRL/captain/pkg/core"
)

// Trajectory is a chronological sequence of ball states spaced by a fixed step.
// It is never aliased with live game state and may be iterated any number of times.
type Trajectory []core.Ball

// All yields every sample with its index.
func (t Trajectory) All() iter.Seq2[int, core.Ball] {
	return func(yield func(int, core.Ball) bool) {
		for i, b := range t {
			if !yield(i, b) {
				return
			}
		}
	}
}

// Last returns the final sample. ok is false for an empty trajectory.
func (t Trajectory) Last() (core.Ball, bool) {
	if len(t) == 0 {
		return core.Ball{}, false
	}
	return t[len(t)-1], true
}

// At returns the first sample whose time is at or after time.
func (t Trajectory) At(time float64) (core.Ball, bool) {
	for _, b := range t {
		if b.Time >= time {
			return b, true
		}
	}
	return core.Ball{}, false
}

// Predictor produces ball trajectories over the arena surfaces.
type Predictor struct {
	physics config.PhysicsTuning
	step    float64
	field   sim.Field
}

// New builds a Predictor using the step size from t.Predict.
func New(t config.Tuning, field sim.Field) *Predictor {
	return &Predictor{physics: t.Physics, step: t.Predict.Step, field: field}
}

// Step returns the fixed integration step.
func (p *Predictor) Step() float64 { return p.step }

// Ball integrates the ball forward for horizon seconds. The initial state is not
// part of the result; a non-positive horizon yields an empty trajectory.
func (p *Predictor) Ball(initial core.Ball, horizon float64) Trajectory {
	if horizon <= 0 || p.step <= 0 {
		return Trajectory{}
	}
	n := int(math.Ceil(horizon/p.step - 1e-9))
	out := make(Trajectory, 0, n)

	state := initial
	state.Velocity = core.ClampSpeed(state.Velocity, p.physics.BallMaxSpeed)
	for i := 1; i <= n; i++ {
		state = p.advance(state)
		state.Time = initial.Time + float64(i)*p.step
		out = append(out, state)
	}
	return out
}

func (p *Predictor) advance(b core.Ball) core.Ball {
	dt := p.step
	b.Position = core.Add(b.Position, core.Scale(b.Velocity, dt))
	b.Velocity.Z += p.physics.Gravity * dt
	b.Velocity = core.ClampSpeed(b.Velocity, p.physics.BallMaxSpeed)

	if c := p.field.Collide(b.Position, p.physics.BallRadius); c.Hit {
		b.Position = core.Add(b.Position, core.Scale(c.Normal, c.Depth))
		b.Velocity = sim.Bounce(b.Velocity, c.Normal, p.physics.BallRestitution, p.physics.BallFriction, p.physics.RestingSpeed)
	}
	if n := core.Norm(b.AngularVelocity); n > 0 {
		b.Orientation = core.AxisAngle(core.Scale(b.AngularVelocity, dt)).Mul(b.Orientation)
	}
	return b
}

// Car extrapolates a car with constant velocity on the ground, or under gravity in
// the air, sampling every step seconds for horizon seconds.
func Car(car core.Car, horizon, step float64) []core.Car {
	if horizon <= 0 || step <= 0 {
		return nil
	}
	n := int(math.Ceil(horizon/step - 1e-9))
	out := make([]core.Car, 0, n)
	state := car
	for i := 1; i <= n; i++ {
		if !state.OnGround {
			state.Velocity.Z += core.Gravity * step
		}
		state.Position = core.Add(state.Position, core.Scale(state.Velocity, step))
		if state.Position.Z < core.CarRestHeight {
			state.Position.Z = core.CarRestHeight
			state.Velocity.Z = 0
		}
		state.Time = car.Time + float64(i)*step
		out = append(out, state)
	}
	return out
}
