package plays

import (
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/internal/mechanics"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	takeoffAngle    = 0.1
	takeoffMaxSpeed = 1000
	finalFacingTime = 0.25
	secondTouchSpan = 4.0
)

// AerialStrike drives toward a high intercept and takes off once a simulated flight
// from the current state ends within tolerance of the contact point.
type AerialStrike struct {
	strike
	aerial mechanics.Aerial
	flying bool
	path   []core.Vec3
}

func NewAerialStrike(env *Env, s *game.Snapshot, car core.Car, target core.Vec3) *AerialStrike {
	a := &AerialStrike{}
	a.init(env, s, car, target, nil)
	return a
}

func (a *AerialStrike) init(env *Env, s *game.Snapshot, car core.Car, target core.Vec3,
	aim func(core.Car, intercept.Solution) core.Vec3) {
	a.strike = newStrike(env, car, target)
	a.arrive.AllowFancy = false
	a.aerial = mechanics.NewAerial(env.Tuning, core.Vec3{}, 0)
	a.aerial.DoubleJump = true
	a.predicate = a.canHit
	a.configure = a.setup
	a.aim = aim
	a.start(s, car)
}

func (a *AerialStrike) Kind() Kind   { return KindAerialStrike }
func (a *AerialStrike) Name() string { return "AerialStrike" }

// Flying reports whether the car has taken off.
func (a *AerialStrike) Flying() bool { return a.flying }

// FlightPath is the last simulated flight.
func (a *AerialStrike) FlightPath() []core.Vec3 { return a.path }

func (a *AerialStrike) Interruptible() bool { return a.flying || a.arrive.Interruptible() }

func (a *AerialStrike) requiredLead(h float64) float64 {
	t := a.env.Tuning.Aerial
	return core.RangeMap(h, t.MinHeight, t.MaxHeight, t.MinLead, t.MaxLead)
}

func (a *AerialStrike) canHit(car core.Car, ball core.Ball) bool {
	t := a.env.Tuning.Aerial
	h := ball.Position.Z
	return t.MinHeight < h && h < t.MaxHeight && ball.Time-car.Time > a.requiredLead(h)
}

func (a *AerialStrike) setup(car core.Car, sol intercept.Solution) {
	a.aerial.Target = core.Sub(sol.Position, core.Scale(core.Direction(sol.Position, a.target), a.env.Tuning.Aerial.Offset))
	a.aerial.Up = core.Normalize(core.Add(core.GroundDirection(sol.Position, car.Position), core.Vec(0, 0, 0.5)))
	a.aerial.ArrivalTime = sol.Time
}

func (a *AerialStrike) Step(s *game.Snapshot, dt float64) {
	car, ok := a.car(s)
	if !ok {
		return
	}
	t := a.env.Tuning.Aerial
	timeLeft := a.aerial.ArrivalTime - car.Time

	if a.flying {
		toBall := core.Direction(car.Position, s.Ball.Position)
		if car.Position.Z > 200 {
			a.aerial.Up = core.Normalize(core.Add(core.Vec(0, 0, -1), core.Ground(toBall)))
		}
		if timeLeft < finalFacingTime {
			facing := core.LookAt(toBall, core.Add(core.Vec(0, 0, -3), toBall))
			a.aerial.Facing = &facing
		}
		a.controls = a.aerial.Step(car, dt)
		if a.aerial.Finished() && timeLeft < -t.FinishSlack {
			a.finish()
		}
		return
	}

	a.approach(s, car, dt)
	a.path = a.path[:0]
	simulated := a.aerial.Simulate(car, a.env.Stepper, t.SimStep, func(p core.Vec3) { a.path = append(a.path, p) })

	toTarget := core.GroundDirection(car.Position, a.aerial.Target)
	towards := core.Dot(car.Velocity, toTarget)
	needed := core.GroundDistance(car.Position, a.aerial.Target) / core.NonZero(timeLeft)
	angle := core.AngleBetween(core.Ground(car.Forward()), toTarget)

	switch {
	case towards > needed && angle < takeoffAngle:
		a.controls.Throttle = -1
	case core.Distance(simulated.Position, a.aerial.Target) < t.MaxDistanceError ||
		timeLeft <= a.requiredLead(a.aerial.Target.Z):
		// last moment to commit even if the simulated flight misses slightly
		if angle < takeoffAngle || car.Speed() < takeoffMaxSpeed {
			a.flying = true
		}
	default:
		a.controls.Throttle = 1
	}
}

// DoubleAerialStrike runs an AerialStrike and, if the car is still airborne once it
// ends, looks for a second touch further along the forecast.
type DoubleAerialStrike struct {
	base
	first  *AerialStrike
	aerial mechanics.Aerial
	second bool
}

func NewDoubleAerialStrike(first *AerialStrike) *DoubleAerialStrike {
	d := &DoubleAerialStrike{
		base:   newBase(first.env, first.carID),
		first:  first,
		aerial: mechanics.NewAerial(first.env.Tuning, core.Vec3{}, 0),
	}
	d.aerial.Up = core.Vec(0, 0, -1)
	return d
}

func (d *DoubleAerialStrike) Kind() Kind { return KindDoubleAerialStrike }

func (d *DoubleAerialStrike) Name() string {
	if d.second {
		return "DoubleAerialStrike (2nd)"
	}
	return "DoubleAerialStrike"
}

func (d *DoubleAerialStrike) Interruptible() bool { return d.first.Interruptible() }

// Intercept is the first touch's plan.
func (d *DoubleAerialStrike) Intercept() intercept.Solution { return d.first.Intercept() }

// Feasible reports whether the first touch still has a plan.
func (d *DoubleAerialStrike) Feasible() bool { return d.first.Feasible() }

// Target is where the ball is being sent.
func (d *DoubleAerialStrike) Target() core.Vec3 { return d.first.Target() }

// FlightPath is the first touch's simulated flight.
func (d *DoubleAerialStrike) FlightPath() []core.Vec3 { return d.first.FlightPath() }

func (d *DoubleAerialStrike) Step(s *game.Snapshot, dt float64) {
	car, ok := d.car(s)
	if !ok {
		return
	}
	if d.second {
		d.controls = d.aerial.Step(car, dt)
		if d.aerial.Finished() || car.OnGround {
			d.finish()
		}
		return
	}

	d.first.Step(s, dt)
	d.controls = d.first.Controls()
	if d.first.Finished() {
		if car.OnGround {
			d.finish()
			return
		}
		d.findSecondTouch(s, car)
	}
}

func (d *DoubleAerialStrike) findSecondTouch(s *game.Snapshot, car core.Car) {
	t := d.env.Tuning.Aerial
	traj := d.env.Predictor.Ball(s.Ball, secondTouchSpan)
	stride := max(t.DoubleStride, 1)
	for i := 0; i < len(traj); i += stride {
		ball := traj[i]
		if ball.Position.Z < t.DoubleMinHeight {
			break
		}
		d.aerial.Target = core.Sub(ball.Position, core.Scale(core.Direction(ball.Position, d.first.target), t.DoubleOffset))
		d.aerial.ArrivalTime = ball.Time
		final := d.aerial.Simulate(car, d.env.Stepper, t.SimStep, nil)
		if core.Distance(final.Position, d.aerial.Target) < t.DoubleHitRadius {
			d.second = true
			return
		}
	}
	d.finish()
}

var (
	_ Play = (*AerialStrike)(nil)
	_ Play = (*DoubleAerialStrike)(nil)
)
