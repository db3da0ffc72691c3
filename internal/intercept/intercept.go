// Package intercept finds the earliest point on a ball forecast that a car can reach
// in time and in a usable configuration.
package intercept

import (
	"math"

	"github.com/CaptainRL/captain/internal/predict"
	"github.com/CaptainRL/captain/pkg/core"
)

// Predicate decides whether a forecast sample is usable for a given car.
type Predicate func(car core.Car, ball core.Ball) bool

// Solution is the outcome of one intercept search.
type Solution struct {
	Ball      core.Ball // matched sample, or the last sample when infeasible
	Position  core.Vec3
	GroundPos core.Vec3
	Time      float64
	Index     int // index of the matched sample, -1 when infeasible
	Feasible  bool
	Backwards bool
}

// Solver scans trajectories with a travel-time estimate.
type Solver struct {
	estimator        TravelEstimator
	backwardsAdvance float64
}

// NewSolver builds a Solver. A backwards solution replaces a forward one only when it
// arrives more than backwardsAdvance seconds earlier.
func NewSolver(est TravelEstimator, backwardsAdvance float64) *Solver {
	return &Solver{estimator: est, backwardsAdvance: backwardsAdvance}
}

// Estimator exposes the travel-time estimate the solver uses.
func (s *Solver) Estimator() TravelEstimator { return s.estimator }

// Solve returns the first sample, in time order, that satisfies pred and that the car
// can reach no later than the sample's time. A nil pred accepts every sample.
func (s *Solver) Solve(car core.Car, traj predict.Trajectory, pred Predicate, backwards bool) Solution {
	for i, b := range traj {
		lead := b.Time - car.Time
		if lead < 0 {
			continue
		}
		if pred != nil && !pred(car, b) {
			continue
		}
		if s.estimator.TravelTime(car, b.Position, backwards) <= lead {
			return newSolution(car, b, i, true, backwards)
		}
	}
	last, ok := traj.Last()
	if !ok {
		last = core.Ball{KinematicState: core.KinematicState{Time: car.Time}}
	}
	return newSolution(car, last, -1, false, backwards)
}

// SolveBest runs a forward search and, when allowed, a reversing search, keeping the
// reversing result only if it is feasible and materially earlier.
func (s *Solver) SolveBest(car core.Car, traj predict.Trajectory, pred Predicate, allowBackwards bool) Solution {
	forward := s.Solve(car, traj, pred, false)
	if !allowBackwards {
		return forward
	}
	backward := s.Solve(car, traj, pred, true)
	if backward.Feasible && (!forward.Feasible || backward.Time+s.backwardsAdvance < forward.Time) {
		return backward
	}
	return forward
}

func newSolution(car core.Car, b core.Ball, index int, feasible, backwards bool) Solution {
	return Solution{
		Ball:      b,
		Position:  b.Position,
		GroundPos: core.Ground(b.Position),
		Time:      math.Max(b.Time, car.Time),
		Index:     index,
		Feasible:  feasible,
		Backwards: backwards,
	}
}
