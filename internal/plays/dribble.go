package plays

import (
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	carryStep    = 1.0 / 60
	carryLanding = 120
	carryFlick   = 200
	carryGiveUp  = 2000
)

// DribbleStrike carries the ball on the roof toward the target and flicks it when
// lined up or when an opponent closes in.
type DribbleStrike struct {
	base
	target      core.Vec3
	drive       *Drive
	flick       *AirDodge
	flickTarget core.Vec3
	flicking    bool
}

func NewDribbleStrike(env *Env, car core.Car, target core.Vec3) *DribbleStrike {
	d := &DribbleStrike{
		base:   newBase(env, car.ID),
		target: core.Ground(target),
		drive:  NewDrive(env, car.ID, target, 0),
	}
	d.flick = NewAirDodge(env, car.ID, env.Tuning.Dribble.FlickJump, &d.flickTarget)
	return d
}

func (d *DribbleStrike) Kind() Kind          { return KindDribbleStrike }
func (d *DribbleStrike) Name() string        { return "DribbleStrike" }
func (d *DribbleStrike) Interruptible() bool { return !d.flicking }

// Target is where the ball is being carried.
func (d *DribbleStrike) Target() core.Vec3 { return d.target }

func (d *DribbleStrike) Step(s *game.Snapshot, dt float64) {
	car, ok := d.car(s)
	if !ok {
		return
	}
	t := d.env.Tuning.Dribble
	ball := s.Ball

	if d.flicking {
		d.flickTarget = core.Add(ball.Position, core.Scale(ball.Velocity, 0.2))
		d.flick.Step(s, dt)
		d.controls = d.flick.Controls()
		if d.flick.Finished() {
			d.finish()
		}
		return
	}

	d.carry(car, ball)

	groundDist := core.GroundDistance(car.Position, ball.Position)
	onRoof := groundDist < t.MaxOffset && ball.Position.Z > t.MinHeight && ball.Position.Z < t.MaxHeight
	toTarget := core.GroundDirection(car.Position, d.target)
	if onRoof && core.Dot(car.Forward(), toTarget) > 0.7 &&
		core.GroundDistance(car.Position, d.target) < t.FlickDistance {
		d.flicking = true
	}

	for _, opp := range s.Opponents(car.Team) {
		ahead := core.Add(opp.Position, core.Scale(opp.Velocity, 0.5))
		if core.GroundDistance(ahead, ball.Position) < t.OpponentDistance &&
			core.Dot(opp.Velocity, core.Direction(opp.Position, ball.Position)) > 500 {
			if core.Distance(car.Position, ball.Position) < carryFlick {
				d.flicking = true
			} else {
				d.finish()
			}
		}
	}

	if (ball.Position.Z < 100 && groundDist > t.LostDistance) || groundDist > carryGiveUp {
		d.finish()
	}
}

// carry steers so the ball's landing point sits slightly behind the roof center,
// offset sideways toward the target.
func (d *DribbleStrike) carry(car core.Car, ball core.Ball) {
	landing := ball
	for (landing.Position.Z > carryLanding || landing.Velocity.Z > 0) && landing.Time < car.Time+10 {
		landing = d.env.Stepper.StepBall(landing, carryStep)
	}

	speed := car.Speed()
	ballLocal := car.Local(core.Ground(landing.Position))
	targetLocal := car.Local(d.target)

	shift := core.Ground(core.Direction(ballLocal, targetLocal))
	shift.Y *= 1.8
	shift = core.Normalize(shift)
	maxTurn := core.Clamp(speed/800, 0, 1)
	maxShift := core.Normalize(core.Vec(1-maxTurn, maxTurn*core.Sign(shift.Y), 0))
	if math.Abs(shift.Y) > math.Abs(maxShift.Y) || shift.X < 0 {
		shift = maxShift
	}
	shift = core.Scale(shift, core.Clamp(car.Boost, 40, 60))
	shift.Y *= core.Clamp(speed/1000, 1, 2)

	aim := core.Add(car.Position, car.Orientation.Apply(core.Sub(ballLocal, shift)))
	d.drive.Target = aim
	d.drive.TargetSpeed = core.Distance(car.Position, aim) / math.Max(0.001, landing.Time-car.Time)
	d.drive.stepCar(car)
	d.controls = d.drive.Controls()
}

var _ Play = (*DribbleStrike)(nil)
