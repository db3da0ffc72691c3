package mechanics

import (
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/sim"
	"github.com/CaptainRL/captain/pkg/core"
)

// Aerial flies a car so that it reaches Target at ArrivalTime. It handles the
// take-off jump (and optional second jump) and then steers the nose along the
// acceleration still required, boosting when roughly aligned.
type Aerial struct {
	Target      core.Vec3
	ArrivalTime float64
	Up          core.Vec3
	DoubleJump  bool
	// Facing overrides the flight orientation when set.
	Facing *core.Mat3

	tuning  config.AerialTuning
	physics config.PhysicsTuning
	turn    AerialTurn

	jumpTimer float64
	jumping   bool
	jumped    bool
	second    int
	finished  bool
}

// NewAerial creates an aerial controller.
func NewAerial(t config.Tuning, target core.Vec3, arrival float64) Aerial {
	return Aerial{
		Target:      target,
		ArrivalTime: arrival,
		Up:          core.Up,
		tuning:      t.Aerial,
		physics:     t.Physics,
		turn:        NewAerialTurn(t.Turn, core.Identity),
	}
}

// Finished reports whether the arrival time has passed.
func (a *Aerial) Finished() bool { return a.finished }

// Step returns the inputs for this tick.
func (a *Aerial) Step(car core.Car, dt float64) core.Controls {
	var c core.Controls
	T := a.ArrivalTime - car.Time

	// take-off
	if !a.jumped {
		if car.OnGround || a.jumping {
			a.jumping = true
			a.jumpTimer += dt
			c.Jump = a.jumpTimer <= a.tuning.JumpTime
			if !c.Jump {
				a.jumped = true
			}
		} else {
			a.jumped = true
		}
	} else if a.DoubleJump && a.second < 2 {
		// release one tick, then press once more without stick input
		a.second++
		c.Jump = a.second == 2
	}

	if T <= 0 {
		a.finished = true
	}
	gravity := core.Vec(0, 0, a.physics.Gravity)
	tt := core.NonZero(T)
	if T < 0 {
		tt = 1e-3
	}
	delta := core.Sub(core.Sub(a.Target, car.Position), core.Add(
		core.Scale(car.Velocity, tt),
		core.Scale(gravity, 0.5*tt*tt),
	))
	dir := core.Normalize(delta)
	if core.Norm(dir) == 0 {
		dir = car.Forward()
	}

	if a.Facing != nil {
		a.turn.Target = *a.Facing
	} else {
		a.turn.Target = core.LookAt(dir, a.Up)
	}
	// the second jump needs a neutral stick or it becomes a dodge
	if !(c.Jump && a.jumped) {
		turn := a.turn.Step(car)
		c.Pitch, c.Yaw, c.Roll = turn.Pitch, turn.Yaw, turn.Roll
	}

	if !c.Jump || a.jumpTimer > 0.05 {
		aligned := core.AngleBetween(car.Forward(), dir) < a.tuning.BoostAngle
		c.Boost = aligned && core.Norm(delta) > a.tuning.MaxDistanceError*0.5
	}
	return c
}

// Simulate flies a copy of the controller from car with the stepping oracle until
// the arrival time and returns the simulated car. Boost is held full, matching the
// assumption that an aerial is only attempted with enough of it.
func (a Aerial) Simulate(car core.Car, stepper sim.Stepper, dt float64, path func(core.Vec3)) core.Car {
	test := a
	test.finished = false
	limit := int((a.ArrivalTime-car.Time)/dt) + 2
	for i := 0; i < limit && !test.finished; i++ {
		controls := test.Step(car, dt)
		car.Boost = 100
		car = stepper.StepCar(car, controls, dt)
		if path != nil {
			path(car.Position)
		}
	}
	return car
}
