// Package plays implements every maneuver a car can run. Each variant is a flat
// struct behind the Play interface and is identified by its Kind.
package plays

import (
	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/internal/predict"
	"github.com/CaptainRL/captain/internal/sim"
	"github.com/CaptainRL/captain/pkg/core"
)

// Kind identifies a play variant.
type Kind int

const (
	KindDrive Kind = iota
	KindStop
	KindTravel
	KindArrive
	KindJump
	KindAirDodge
	KindSpeedFlip
	KindHalfFlip
	KindAimDodge
	KindWavedash
	KindSimpleKickoff
	KindSpeedFlipKickoff
	KindStrike
	KindDodgeStrike
	KindBumpStrike
	KindCloseStrike
	KindSetupStrike
	KindDribbleStrike
	KindAerialStrike
	KindDoubleAerialStrike
	KindDodgeClear
	KindBumpClear
	KindAerialClear
	KindRecovery
	KindDefense
	KindGoToNet
	KindRefuel
	KindEvade
	KindYield
)

var kindNames = [...]string{
	KindDrive:              "Drive",
	KindStop:               "Stop",
	KindTravel:             "Travel",
	KindArrive:             "Arrive",
	KindJump:               "Jump",
	KindAirDodge:           "AirDodge",
	KindSpeedFlip:          "SpeedFlip",
	KindHalfFlip:           "HalfFlip",
	KindAimDodge:           "AimDodge",
	KindWavedash:           "Wavedash",
	KindSimpleKickoff:      "SimpleKickoff",
	KindSpeedFlipKickoff:   "SpeedFlipDodgeKickoff",
	KindStrike:             "Strike",
	KindDodgeStrike:        "DodgeStrike",
	KindBumpStrike:         "BumpStrike",
	KindCloseStrike:        "CloseStrike",
	KindSetupStrike:        "SetupStrike",
	KindDribbleStrike:      "DribbleStrike",
	KindAerialStrike:       "AerialStrike",
	KindDoubleAerialStrike: "DoubleAerialStrike",
	KindDodgeClear:         "DodgeClear",
	KindBumpClear:          "BumpClear",
	KindAerialClear:        "AerialClear",
	KindRecovery:           "Recovery",
	KindDefense:            "Defense",
	KindGoToNet:            "GoToNet",
	KindRefuel:             "Refuel",
	KindEvade:              "Evade",
	KindYield:              "Yield",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// IsKickoff reports whether k is a kickoff variant.
func (k Kind) IsKickoff() bool {
	return k == KindSimpleKickoff || k == KindSpeedFlipKickoff
}

// IsStrike reports whether k hits the ball, clears included.
func (k Kind) IsStrike() bool {
	return k >= KindStrike && k <= KindAerialClear
}

// IsClear reports whether k is one of the clearing variants.
func (k Kind) IsClear() bool {
	return k >= KindDodgeClear && k <= KindAerialClear
}

// Play is one maneuver. Step advances it against a read-only snapshot and leaves the
// tick's inputs in Controls. Finished becomes true at most once and stays true.
// Interruptible reports whether the selector may replace the play right now.
type Play interface {
	Kind() Kind
	Name() string
	Step(s *game.Snapshot, dt float64)
	Controls() core.Controls
	Finished() bool
	Interruptible() bool
}

// Env carries the shared collaborators every play may query. It is owned by a
// single decision loop and is not safe for concurrent use.
type Env struct {
	Tuning    config.Tuning
	Stepper   sim.Stepper
	Field     sim.Field
	Predictor *predict.Predictor
	Solver    *intercept.Solver

	forecastTime float64
	forecastBall core.Vec3
	forecast     predict.Trajectory
}

// NewEnv wires the default physics, arena and solver for t.
func NewEnv(t config.Tuning) *Env {
	field := sim.StandardArena()
	return &Env{
		Tuning:    t,
		Stepper:   sim.NewPhysics(t, field),
		Field:     field,
		Predictor: predict.New(t, field),
		Solver:    intercept.NewSolver(intercept.NewEstimator(t), t.Intercept.BackwardsAdvance),
	}
}

// Forecast returns the ball trajectory for s over the configured horizon. The result
// is reused for every caller within the same tick.
func (e *Env) Forecast(s *game.Snapshot) predict.Trajectory {
	if e.forecast != nil && e.forecastTime == s.Time && e.forecastBall == s.Ball.Position {
		return e.forecast
	}
	e.forecast = e.Predictor.Ball(s.Ball, e.Tuning.Predict.Horizon)
	e.forecastTime = s.Time
	e.forecastBall = s.Ball.Position
	return e.forecast
}

// TravelTime is the solver's estimate for car to reach target.
func (e *Env) TravelTime(car core.Car, target core.Vec3) float64 {
	return e.Solver.Estimator().TravelTime(car, target, false)
}

// base holds the state every play shares.
type base struct {
	env      *Env
	carID    int
	controls core.Controls
	finished bool
}

func newBase(env *Env, carID int) base {
	return base{env: env, carID: carID}
}

func (b *base) Controls() core.Controls { return b.controls }
func (b *base) Finished() bool          { return b.finished }

func (b *base) finish() { b.finished = true }

// car looks up the controlled car. A car missing from the snapshot (demolished or
// disconnected) ends the play with neutral inputs.
func (b *base) car(s *game.Snapshot) (core.Car, bool) {
	car, err := s.Car(b.carID)
	if err != nil || car.Demolished {
		b.controls = core.Controls{}
		b.finish()
		return core.Car{}, false
	}
	return car, true
}
