package strategy

import (
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/internal/predict"
	"github.com/CaptainRL/captain/pkg/core"
)

// Collision is a predicted contact with another car.
type Collision struct {
	Other core.Car
	Time  float64
}

// Teammate reports whether the other car is on team.
func (c Collision) Teammate(team int) bool { return c.Other.Team == team }

// PredictCollision extrapolates car and every other live car over the collision
// horizon and returns the earliest pair of samples closer than the contact radius.
func (sel *Selector) PredictCollision(s *game.Snapshot, car core.Car) (Collision, bool) {
	t := sel.env.Tuning.Collision
	mine := predict.Car(car, t.Horizon, t.Step)
	var hit Collision
	found := false
	for _, other := range s.Cars {
		if other.ID == car.ID || other.Demolished {
			continue
		}
		theirs := predict.Car(other, t.Horizon, t.Step)
		for i := range min(len(mine), len(theirs)) {
			if core.Distance(mine[i].Position, theirs[i].Position) >= t.Radius {
				continue
			}
			if !found || mine[i].Time < hit.Time {
				hit, found = Collision{Other: other, Time: mine[i].Time}, true
			}
			break
		}
	}
	return hit, found
}

// Avoid returns an avoidance play when a collision is coming: the higher id yields
// to a teammate, and a fast opponent is jumped over.
func (sel *Selector) Avoid(s *game.Snapshot, car core.Car) (Decision, bool) {
	t := sel.env.Tuning.Collision
	if !t.Enabled || !car.OnGround {
		return Decision{}, false
	}
	c, ok := sel.PredictCollision(s, car)
	if !ok {
		return Decision{}, false
	}
	if c.Teammate(car.Team) {
		if car.ID > c.Other.ID {
			return Decision{plays.NewYield(sel.env, car.ID), "yield to teammate"}, true
		}
		return Decision{}, false
	}
	if c.Other.Speed() > t.EnemyMinSpeed {
		return Decision{plays.NewEvade(sel.env, car.ID), "evade opponent"}, true
	}
	return Decision{}, false
}
