// Package strategy decides which play each car runs: the per-car selector, the
// strike picker, the captain's stance policy and the preemption checks.
package strategy

import (
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	ownGoalStrikeDistance = 1000
	defenseDistance       = 7000
	fallbackDistance      = 4000
	theirHalfDistance     = 3000
	outOfPositionDistance = 6000
)

// Decision is a chosen play with the reason it was chosen.
type Decision struct {
	Play   plays.Play
	Reason string
}

// Intercept is one car's plain intercept and how well it lines up with the
// opponent goal.
type Intercept struct {
	Car      core.Car
	Solution intercept.Solution
	Align    float64
}

// Selector picks plays. It shares the Env of the car's decision loop and so is not
// safe for concurrent use.
type Selector struct {
	env *plays.Env
}

func NewSelector(env *plays.Env) *Selector {
	return &Selector{env: env}
}

// Env returns the shared play environment.
func (sel *Selector) Env() *plays.Env { return sel.env }

// Intercept solves car's earliest reachable ball sample without any strike predicate.
func (sel *Selector) Intercept(s *game.Snapshot, car core.Car) Intercept {
	sol := sel.env.Solver.Solve(car, sel.env.Forecast(s), nil, false)
	goal := core.Ground(core.OpponentGoal(car.Team).Center)
	return Intercept{
		Car:      car,
		Solution: sol,
		Align:    intercept.Alignment(car.Position, sol.Ball.Position, goal),
	}
}

// BestIntercept returns the team's winning intercept: the earliest one whose
// alignment exceeds attackAlign, else the one of the car nearest its own goal. When
// me sits within nearGoal of its own goal, me keeps the ball.
func BestIntercept(all []Intercept, me Intercept, attackAlign, nearGoal float64) Intercept {
	var best Intercept
	found := false
	for _, i := range all {
		if i.Align > attackAlign && (!found || i.Solution.Time < best.Solution.Time) {
			best, found = i, true
		}
	}
	if found {
		return best
	}
	goal := core.Ground(core.OwnGoal(me.Car.Team).Center)
	for _, i := range all {
		if !found || core.Distance(i.Car.Position, goal) < core.Distance(best.Car.Position, goal) {
			best, found = i, true
		}
	}
	if core.GroundDistance(me.Car.Position, goal) < nearGoal {
		return me
	}
	return best
}

// Choose returns the play for car. A valid stance other than StanceUndefined comes
// from the captain and is followed; otherwise the car decides on its own. Pads in
// claimed are left to teammates.
func (sel *Selector) Choose(s *game.Snapshot, car core.Car, stance Stance, claimed map[int]bool) Decision {
	if !car.OnGround {
		return Decision{plays.NewRecovery(sel.env, car.ID), "airborne"}
	}
	if stance != StanceUndefined && stance.Valid() {
		return sel.ForStance(s, car, stance, claimed)
	}

	t := sel.env.Tuning
	if s.IsKickoff(t.Kickoff.CenterTolerance) {
		role := KickoffRoles(s, car.Team, t.Kickoff.TieTolerance)[car.ID]
		switch role {
		case StanceKickoff:
			return Decision{sel.PickKickoff(car), "kickoff"}
		case StanceBoost:
			if r := plays.NewRefuel(sel.env, s, car, claimed); hasPad(r) {
				return Decision{r, "kickoff refuel"}
			}
		}
		return Decision{plays.NewGoToNet(sel.env, car, s.Ball.Position), "kickoff wait"}
	}

	if car.Boost < t.Refuel.CriticalBoost {
		if r := plays.NewRefuel(sel.env, s, car, claimed); hasPad(r) {
			return Decision{r, "critical boost"}
		}
	}

	team := s.Team(car.Team)
	all := make([]Intercept, 0, len(team))
	var mine Intercept
	found := false
	for _, c := range team {
		i := sel.Intercept(s, c)
		if c.ID == car.ID {
			mine, found = i, true
		}
		all = append(all, i)
	}
	if !found {
		mine = sel.Intercept(s, car)
		all = append(all, mine)
	}

	best := BestIntercept(all, mine, t.Stance.AttackAlign, t.Stance.NearOwnGoal)
	if best.Car.ID == car.ID {
		if d, ok := sel.attack(s, car, mine); ok {
			return d
		}
	}
	return sel.position(s, car, mine, claimed)
}

// attack shoots when the car is lined up or far from its own goal and clears otherwise.
func (sel *Selector) attack(s *game.Snapshot, car core.Car, mine Intercept) (Decision, bool) {
	ownGoal := core.Ground(core.OwnGoal(car.Team).Center)
	if mine.Align > sel.env.Tuning.Stance.AttackAlign || core.GroundDistance(mine.Solution.Position, ownGoal) > outOfPositionDistance {
		p := sel.PickStrike(s, car, core.OpponentGoal(car.Team).Center, mine.Solution)
		if feasible(p) {
			return Decision{p, "best intercept"}, true
		}
		return Decision{}, false
	}
	p := sel.PickClear(s, car)
	if feasible(p) {
		return Decision{p, "out of position"}, true
	}
	return Decision{}, false
}

// position is the fallback when another car owns the ball: shadow the intercept, or
// fall back to the net when the opponents outnumber the cars behind the ball.
func (sel *Selector) position(s *game.Snapshot, car core.Car, mine Intercept, claimed map[int]bool) Decision {
	t := sel.env.Tuning
	ownGoal := core.OwnGoal(car.Team).Center
	theirGoal := core.OpponentGoal(car.Team).Center
	ballPos := mine.Solution.Position

	inTheirHalf := math.Abs(ballPos.Y-theirGoal.Y) < theirHalfDistance
	shadow := t.Defense.RelaxedDistance
	if inTheirHalf {
		shadow = t.Defense.ShadowDistance
	}

	behind := 0
	for _, c := range s.Team(car.Team) {
		if math.Abs(c.Position.Y-ownGoal.Y) < math.Abs(ballPos.Y-ownGoal.Y) {
			behind++
		}
	}
	attackers := 0
	for _, o := range s.Opponents(car.Team) {
		if core.Sign(o.Position.Y) == core.Sign(ownGoal.Y) {
			attackers++
		}
	}

	if attackers > behind && !inTheirHalf {
		return Decision{plays.NewGoToNet(sel.env, car, ballPos), "outnumbered"}
	}
	if car.Boost < t.Stance.LowBoost && behind > 1 {
		if r := plays.NewRefuel(sel.env, s, car, claimed); hasPad(r) {
			return Decision{r, "low boost"}
		}
	}
	return Decision{plays.NewDefense(sel.env, car, ballPos, shadow, inTheirHalf), "shadow"}
}

// ForStance maps a captain-assigned stance to a play.
func (sel *Selector) ForStance(s *game.Snapshot, car core.Car, stance Stance, claimed map[int]bool) Decision {
	if !car.OnGround {
		return Decision{plays.NewRecovery(sel.env, car.ID), "airborne"}
	}
	t := sel.env.Tuning
	mine := sel.Intercept(s, car)
	ownGoal := core.Ground(core.OwnGoal(car.Team).Center)
	theirGoal := core.OpponentGoal(car.Team).Center
	inTheirHalf := math.Abs(mine.Solution.Position.Y-theirGoal.Y) < theirHalfDistance
	shadow := t.Defense.RelaxedDistance
	if inTheirHalf {
		shadow = t.Defense.ShadowDistance
	}
	defend := func(reason string, distance float64, nearest bool) Decision {
		return Decision{plays.NewDefense(sel.env, car, mine.Solution.Position, distance, nearest), reason}
	}

	switch stance {
	case StanceKickoff:
		return Decision{sel.PickKickoff(car), "stance kickoff"}
	case StanceBoost:
		if r := plays.NewRefuel(sel.env, s, car, claimed); hasPad(r) {
			return Decision{r, "stance boost"}
		}
		return defend("stance boost (no pad)", shadow, inTheirHalf)
	case StanceAttack:
		if p := sel.PickStrike(s, car, theirGoal, mine.Solution); feasible(p) {
			return Decision{p, "stance attack"}
		}
		return defend("stance attack (no intercept)", shadow, inTheirHalf)
	case StanceClear:
		if p := sel.PickClear(s, car); feasible(p) {
			return Decision{p, "stance clear"}
		}
		return defend("stance clear (no intercept)", shadow, inTheirHalf)
	case StancePreemptiveDefense:
		return defend("stance preemptive defense", shadow, inTheirHalf)
	case StanceDefense:
		if core.GroundDistance(s.Ball.Position, ownGoal) < ownGoalStrikeDistance {
			if p := sel.PickStrike(s, car, theirGoal, mine.Solution); feasible(p) {
				return Decision{p, "stance defense (ball at goal)"}
			}
		}
		return defend("stance defense", defenseDistance, false)
	}
	return defend("stance "+stance.String(), fallbackDistance, false)
}

func feasible(p plays.Play) bool {
	if st, ok := p.(striker); ok {
		return st.Feasible()
	}
	return true
}

func hasPad(r *plays.Refuel) bool {
	_, ok := r.Pad()
	return ok
}
