package strategy

import (
	"cmp"
	"math"
	"slices"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	dangerMaxX     = 2000
	dangerMaxY     = 4500
	dangerMaxZ     = 300
	dangerAttackAl = 0.5
)

// KickoffRoles assigns the kickoff to the team's car nearest the ball, ties going to
// the lowest id. The next-nearest car collects boost when it is within tolerance of
// the taker; the rest defend.
func KickoffRoles(s *game.Snapshot, team int, tolerance float64) map[int]Stance {
	cars := slices.Clone(s.Team(team))
	roles := make(map[int]Stance, len(cars))
	if len(cars) == 0 {
		return roles
	}
	dist := func(c core.Car) float64 { return core.Distance(c.Position, s.Ball.Position) }
	slices.SortFunc(cars, func(a, b core.Car) int {
		if c := cmp.Compare(dist(a), dist(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	for i, c := range cars {
		switch {
		case i == 0:
			roles[c.ID] = StanceKickoff
		case i == 1 && dist(c)-dist(cars[0]) <= tolerance:
			roles[c.ID] = StanceBoost
		default:
			roles[c.ID] = StanceDefense
		}
	}
	return roles
}

// ChooseStances is the captain's policy: one stance for every car on team.
func (sel *Selector) ChooseStances(s *game.Snapshot, team int) map[int]Stance {
	t := sel.env.Tuning
	if s.IsKickoff(t.Kickoff.CenterTolerance) {
		return KickoffRoles(s, team, t.Kickoff.TieTolerance)
	}

	cars := s.Team(team)
	stances := make(map[int]Stance, len(cars))
	var grounded []Intercept
	for _, c := range cars {
		if !c.OnGround {
			stances[c.ID] = StanceRecovery
			continue
		}
		grounded = append(grounded, sel.Intercept(s, c))
	}
	if len(grounded) == 0 {
		return stances
	}

	captain := grounded[0]
	best := BestIntercept(grounded, captain, t.Stance.AttackAlign, t.Stance.NearOwnGoal)
	ownGoal := core.Ground(core.OwnGoal(team).Center)
	if best.Align > t.Stance.AttackAlign || core.GroundDistance(best.Solution.Position, ownGoal) > outOfPositionDistance {
		stances[best.Car.ID] = StanceAttack
	} else {
		stances[best.Car.ID] = StanceClear
	}

	// they get there much sooner: everyone else drops back early
	preemptive := false
	if theirs, ok := sel.earliestOpponent(s, team); ok {
		preemptive = theirs.Solution.Time+t.Stance.PreemptiveLead < best.Solution.Time
	}

	for _, i := range grounded {
		if _, done := stances[i.Car.ID]; done {
			continue
		}
		switch {
		case i.Car.Boost < t.Stance.LowBoost:
			stances[i.Car.ID] = StanceBoost
		case preemptive:
			stances[i.Car.ID] = StancePreemptiveDefense
		default:
			stances[i.Car.ID] = StanceDefense
		}
	}
	return stances
}

func (sel *Selector) earliestOpponent(s *game.Snapshot, team int) (Intercept, bool) {
	var best Intercept
	found := false
	for _, o := range s.Opponents(team) {
		i := sel.Intercept(s, o)
		if !i.Solution.Feasible {
			continue
		}
		if !found || i.Solution.Time < best.Solution.Time {
			best, found = i, true
		}
	}
	return best, found
}

// Danger reports whether the ball is about to be in front of car's own goal. The
// returned stance is the response: a shot when the car is lined up, a clear otherwise.
func (sel *Selector) Danger(s *game.Snapshot, car core.Car) (Stance, bool) {
	if car.Position.Z >= dangerMaxZ {
		return StanceUndefined, false
	}
	mine := sel.Intercept(s, car)
	pos := mine.Solution.Position
	ownGoal := core.Ground(core.OwnGoal(car.Team).Center)
	if core.GroundDistance(pos, ownGoal) >= sel.env.Tuning.Stance.DangerDistance {
		return StanceUndefined, false
	}
	if math.Abs(pos.X) >= dangerMaxX && math.Abs(pos.Y) >= dangerMaxY {
		return StanceUndefined, false
	}
	if mine.Align > dangerAttackAl {
		return StanceAttack, true
	}
	return StanceClear, true
}
