package plays

import (
	"fmt"
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
)

// kickoff is the phase machine shared by both kickoff variants: the current action
// is stepped each tick and phases advance on speed and distance thresholds.
type kickoff struct {
	base
	drive  *Drive
	action Play
	phase  int
	timer  float64
}

func newKickoff(env *Env, car core.Car, target core.Vec3) kickoff {
	d := NewDrive(env, car.ID, target, core.CarMaxSpeed)
	return kickoff{base: newBase(env, car.ID), drive: d, action: d}
}

// Phase is the index of the current phase.
func (k *kickoff) Phase() int { return k.phase }

// Interruptible is true while driving between dodges.
func (k *kickoff) Interruptible() bool { return k.phase == 0 || k.phase == 2 }

func (k *kickoff) run(s *game.Snapshot, dt float64) {
	k.action.Step(s, dt)
	k.controls = k.action.Controls()
	k.timer += dt
	if k.timer > k.env.Tuning.Kickoff.Timeout {
		k.finish()
	}
}

// SimpleKickoff drives at the ball, dodges once up to speed, then dodges into the
// ball when close enough.
type SimpleKickoff struct {
	kickoff
}

func NewSimpleKickoff(env *Env, car core.Car) *SimpleKickoff {
	net := core.OwnGoal(car.Team).Center
	return &SimpleKickoff{kickoff: newKickoff(env, car, core.Vec(0, core.Sign(net.Y)*100, 0))}
}

func (k *SimpleKickoff) Kind() Kind   { return KindSimpleKickoff }
func (k *SimpleKickoff) Name() string { return fmt.Sprintf("Simple Kickoff (%d)", k.phase) }

func (k *SimpleKickoff) Step(s *game.Snapshot, dt float64) {
	car, ok := k.car(s)
	if !ok {
		return
	}
	kt := k.env.Tuning.Kickoff

	switch k.phase {
	case 0:
		threshold := kt.DodgeSpeed
		if math.Abs(car.Position.X) < kt.CenterX {
			threshold = kt.CenterDodgeSpeed
		}
		if car.Speed() > threshold {
			target := core.Add(car.Position, car.Velocity)
			k.action = NewAirDodge(k.env, k.carID, 0.1, &target)
			k.phase = 1
		}
	case 1:
		if car.OnGround && k.action.Finished() {
			k.action = k.drive
			k.phase = 2
		}
	case 2:
		if core.Distance(car.Position, core.Vec(0, 0, 93)) < car.Speed()*kt.FinalDodgeFactor {
			ball := s.Ball.Position
			k.action = NewAirDodge(k.env, k.carID, 0.1, &ball)
			k.phase = 3
		}
	}

	k.run(s, dt)
	if dodge, ok := k.action.(*AirDodge); ok && k.phase == 1 {
		k.controls.Boost = dodge.StateTimer() < 0.1
	}
	if k.phase == 3 && k.action.Finished() {
		k.finish()
	}
}

// SpeedFlipDodgeKickoff is used from the diagonal spots: speed-flip once moving,
// then drive and dodge into the ball.
type SpeedFlipDodgeKickoff struct {
	kickoff
}

func NewSpeedFlipDodgeKickoff(env *Env, car core.Car) *SpeedFlipDodgeKickoff {
	net := core.OwnGoal(car.Team).Center
	return &SpeedFlipDodgeKickoff{kickoff: newKickoff(env, car, core.Scale(core.Ground(net), 0.05))}
}

func (k *SpeedFlipDodgeKickoff) Kind() Kind { return KindSpeedFlipKickoff }
func (k *SpeedFlipDodgeKickoff) Name() string {
	return fmt.Sprintf("SpeedFlipDodge Kickoff (%d)", k.phase)
}

func (k *SpeedFlipDodgeKickoff) Step(s *game.Snapshot, dt float64) {
	car, ok := k.car(s)
	if !ok {
		return
	}
	kt := k.env.Tuning.Kickoff

	switch k.phase {
	case 0:
		if car.Speed() > kt.SpeedFlipSpeed {
			right := car.Local(s.Ball.Position).Y < 0
			k.action = NewSpeedFlip(k.env, k.carID, right, true)
			k.phase = 1
		}
	case 1:
		if k.action.Finished() && car.OnGround {
			k.drive.Target = core.Vec3{}
			k.action = k.drive
			k.phase = 2
		}
	case 2:
		if core.GroundDistance(car.Position, core.Vec3{}) < kt.FinalDodgeDistance {
			center := core.Vec3{}
			k.action = NewAirDodge(k.env, k.carID, 0.1, &center)
			k.phase = 3
		}
	}

	k.run(s, dt)
	if k.phase == 3 && k.action.Finished() {
		k.finish()
	}
}

var (
	_ Play = (*SimpleKickoff)(nil)
	_ Play = (*SpeedFlipDodgeKickoff)(nil)
)
