package plays

import (
	"github.com/CaptainRL/captain/internal/game"
)

const evadeJump = 0.2

// Evade double jumps over a car about to hit us at speed.
type Evade struct {
	base
	jump *AirDodge
}

func NewEvade(env *Env, carID int) *Evade {
	return &Evade{base: newBase(env, carID), jump: NewAirDodge(env, carID, evadeJump, nil)}
}

func (e *Evade) Kind() Kind          { return KindEvade }
func (e *Evade) Name() string        { return "Evade" }
func (e *Evade) Interruptible() bool { return false }

func (e *Evade) Step(s *game.Snapshot, dt float64) {
	if _, ok := e.car(s); !ok {
		return
	}
	e.jump.Step(s, dt)
	e.controls = e.jump.Controls()
	if e.jump.Finished() {
		e.finish()
	}
}

// Yield brakes for a short while to let a teammate pass.
type Yield struct {
	base
	stop    *Stop
	elapsed float64
}

func NewYield(env *Env, carID int) *Yield {
	return &Yield{base: newBase(env, carID), stop: NewStop(env, carID)}
}

func (y *Yield) Kind() Kind          { return KindYield }
func (y *Yield) Name() string        { return "Yield" }
func (y *Yield) Interruptible() bool { return false }

func (y *Yield) Step(s *game.Snapshot, dt float64) {
	car, ok := y.car(s)
	if !ok {
		return
	}
	y.stop.stepCar(car)
	y.controls = y.stop.Controls()
	y.elapsed += dt
	if y.elapsed >= y.env.Tuning.Collision.YieldTime {
		y.finish()
	}
}

var (
	_ Play = (*Evade)(nil)
	_ Play = (*Yield)(nil)
)
