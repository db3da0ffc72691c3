// Package game turns host packets into immutable per-tick snapshots and answers the
// team, goal and pad questions every planner asks.
package game

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/CaptainRL/captain/pkg/core"
)

// ErrNoCar is returned when a car id is not present in the snapshot.
var ErrNoCar = errors.New("car not in snapshot")

// Snapshot is the read-only game state for one tick. Planners receive it by pointer
// and must never modify it; slices returned by its methods are fresh copies.
type Snapshot struct {
	Time         float64
	Ball         core.Ball
	Cars         []core.Car
	Pads         []core.BoostPad
	KickoffPause bool
	RoundActive  bool
	MatchEnded   bool
	LatestTouch  core.Touch
}

// Car returns the car with the given id.
func (s *Snapshot) Car(id int) (core.Car, error) {
	for _, c := range s.Cars {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Car{}, fmt.Errorf("car %d: %w", id, ErrNoCar)
}

// Team returns every non-demolished car on team, ordered by id.
func (s *Snapshot) Team(team int) []core.Car {
	var out []core.Car
	for _, c := range s.Cars {
		if c.Team == team && !c.Demolished {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Teammates returns the other cars on car's team.
func (s *Snapshot) Teammates(car core.Car) []core.Car {
	var out []core.Car
	for _, c := range s.Team(car.Team) {
		if c.ID != car.ID {
			out = append(out, c)
		}
	}
	return out
}

// Opponents returns the cars on the other team.
func (s *Snapshot) Opponents(team int) []core.Car {
	return s.Team(1 - team)
}

// IsKickoff reports whether the ball sits motionless at the center spot.
func (s *Snapshot) IsKickoff(tolerance float64) bool {
	b := s.Ball
	return math.Abs(b.Position.X) < tolerance && math.Abs(b.Position.Y) < tolerance &&
		core.Norm(core.Ground(b.Velocity)) < tolerance
}

// LargePads returns the full-boost pads.
func (s *Snapshot) LargePads() []core.BoostPad {
	var out []core.BoostPad
	for _, p := range s.Pads {
		if p.Large {
			out = append(out, p)
		}
	}
	return out
}

// Pad returns the pad with the given id.
func (s *Snapshot) Pad(id int) (core.BoostPad, bool) {
	for _, p := range s.Pads {
		if p.ID == id {
			return p, true
		}
	}
	return core.BoostPad{}, false
}

// NearestCar returns the car in cars closest to p, with ties going to the lowest id.
func NearestCar(cars []core.Car, p core.Vec3) (core.Car, bool) {
	if len(cars) == 0 {
		return core.Car{}, false
	}
	best := cars[0]
	bestDist := core.Distance(best.Position, p)
	for _, c := range cars[1:] {
		d := core.Distance(c.Position, p)
		if d < bestDist || (d == bestDist && c.ID < best.ID) {
			best, bestDist = c, d
		}
	}
	return best, true
}
