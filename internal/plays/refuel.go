package plays

import (
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
)

// Refuel picks up a large boost pad: the one closest to a point between the ball,
// the car and the own goal, among pads that are active or will be by arrival.
type Refuel struct {
	base
	pad       core.BoostPad
	hasPad    bool
	wasActive bool
	travel    *Travel
}

// NewRefuel chooses a pad, skipping any id in claimed.
func NewRefuel(env *Env, s *game.Snapshot, car core.Car, claimed map[int]bool) *Refuel {
	r := &Refuel{base: newBase(env, car.ID)}
	if pad, ok := BestPad(env, s, car, claimed); ok {
		r.pad, r.hasPad, r.wasActive = pad, true, pad.Active
		r.travel = NewTravel(env, car.ID, pad.Position)
	} else {
		r.travel = NewTravel(env, car.ID, core.OwnGoal(car.Team).Center)
	}
	return r
}

// BestPad returns the pad Refuel would choose.
func BestPad(env *Env, s *game.Snapshot, car core.Car, claimed map[int]bool) (core.BoostPad, bool) {
	net := core.OwnGoal(car.Team).Center
	pos := core.Scale(core.Add(core.Add(s.Ball.Position, core.Scale(car.Position, 2)), net), 0.25)

	var best core.BoostPad
	found := false
	for _, pad := range s.LargePads() {
		if claimed[pad.ID] {
			continue
		}
		if !pad.Active && env.TravelTime(car, pad.Position)*env.Tuning.Refuel.AvailableFactor <= pad.Timer {
			continue
		}
		if !found || core.Distance(pad.Position, pos) < core.Distance(best.Position, pos) {
			best, found = pad, true
		}
	}
	return best, found
}

func (r *Refuel) Kind() Kind          { return KindRefuel }
func (r *Refuel) Name() string        { return "Refueling" }
func (r *Refuel) Interruptible() bool { return r.travel.Interruptible() }

// Pad returns the chosen pad, if any.
func (r *Refuel) Pad() (core.BoostPad, bool) { return r.pad, r.hasPad }

func (r *Refuel) Step(s *game.Snapshot, dt float64) {
	car, ok := r.car(s)
	if !ok {
		return
	}
	if !r.hasPad {
		r.finish()
		return
	}
	t := r.env.Tuning.Refuel
	pad, ok := s.Pad(r.pad.ID)
	if !ok {
		pad = r.pad
	}

	if core.Distance(car.Position, pad.Position) < car.Speed()*t.SlowdownFactor {
		r.travel.SetSpeed(t.NearSpeed)
	}
	r.travel.Step(s, dt)
	r.controls = r.travel.Controls()

	// someone, maybe us, took it
	if !pad.Active && r.wasActive {
		r.finish()
	}
	r.wasActive = pad.Active

	if car.Boost > t.FullBoost || core.Distance(car.Position, pad.Position) < t.FinishDistance {
		r.finish()
	}
}

var _ Play = (*Refuel)(nil)
