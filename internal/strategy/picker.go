package strategy

import (
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/internal/plays"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	dribbleMinHeight    = 100
	dribbleVerticalMin  = 250
	dribbleVerticalMax  = 700
	dribbleTouching     = 300
	dribbleReach        = 1500
	dribbleGoalClear    = 1000
	aerialGoalClearance = 500
	doubleAerialRange   = 8000
	dodgeAdvantage      = 0.1
	dodgeNearTarget     = 2000
	matchedVelocity     = 500
	opponentContact     = 300
)

// striker is any play that plans a ground or aerial intercept.
type striker interface {
	plays.Play
	Intercept() intercept.Solution
	Feasible() bool
}

// PickKickoff speed-flips from the diagonal spots and dodges straight in otherwise.
func (sel *Selector) PickKickoff(car core.Car) plays.Play {
	if math.Abs(car.Position.X) > sel.env.Tuning.Kickoff.SpeedFlipMinX {
		return plays.NewSpeedFlipDodgeKickoff(sel.env, car)
	}
	return plays.NewSimpleKickoff(sel.env, car)
}

// PickStrike chooses the strike variant for sending the ball at target, given the
// car's plain intercept sol.
func (sel *Selector) PickStrike(s *game.Snapshot, car core.Car, target core.Vec3, sol intercept.Solution) plays.Play {
	ball := sol.Ball
	st := sel.env.Tuning.Stance

	if (ball.Position.Z > dribbleMinHeight || math.Abs(ball.Velocity.Z) > dribbleVerticalMin ||
		core.Distance(car.Position, s.Ball.Position) < dribbleTouching) &&
		math.Abs(ball.Velocity.Z) < dribbleVerticalMax &&
		core.GroundDistance(car.Position, ball.Position) < dribbleReach &&
		core.GroundDistance(ball.Position, core.OwnGoal(car.Team).Center) > dribbleGoalClear &&
		core.GroundDistance(ball.Position, core.OpponentGoal(car.Team).Center) > dribbleGoalClear &&
		!OpponentClose(s, car.Team, s.Ball.Position.Z*2+st.OpponentReach, st.OpponentLead) {
		return plays.NewDribbleStrike(sel.env, car, target)
	}

	dodge := plays.NewDodgeStrike(sel.env, s, car, target)
	bump := plays.NewBumpStrike(sel.env, s, car, target)
	theirGoal := core.OpponentGoal(car.Team).Center

	var direct striker
	if car.Boost > sel.env.Tuning.Aerial.MinBoost {
		aerial := plays.NewAerialStrike(sel.env, s, car, target)
		if aerial.Feasible() && earlier(aerial, dodge) &&
			math.Abs(aerial.Intercept().Position.Y-theirGoal.Y) > aerialGoalClearance {
			if core.GroundDistance(aerial.Intercept().Position, theirGoal) < doubleAerialRange {
				direct = plays.NewDoubleAerialStrike(aerial)
			} else {
				direct = aerial
			}
		}
	}

	if direct == nil {
		ds, bs := dodge.Intercept(), bump.Intercept()
		if !bump.Feasible() ||
			ds.Time < bs.Time-dodgeAdvantage ||
			core.GroundDistance(ds.Position, target) < dodgeNearTarget ||
			core.Distance(bs.Ball.Velocity, car.Velocity) < matchedVelocity ||
			OpponentClose(s, car.Team, opponentContact, st.OpponentLead) {
			if core.Distance(ds.GroundPos, target) < st.CloseStrikeDist && math.Abs(ds.GroundPos.X) < st.CloseStrikeX {
				direct = plays.NewCloseStrike(sel.env, s, car, target)
			} else {
				direct = dodge
			}
		} else {
			direct = bump
		}
	}

	if direct.Kind() != plays.KindBumpStrike && sol.Time < car.Time+st.SetupMaxTime {
		if intercept.Alignment(car.Position, ball.Position, target) < st.SetupAlign &&
			math.Abs(ball.Position.Y-target.Y) > st.SetupMinDY {
			return plays.NewSetupStrike(sel.env, s, car, target)
		}
	}
	return direct
}

// PickClear dodges the ball to safety, or clears it in the air when that is sooner.
func (sel *Selector) PickClear(s *game.Snapshot, car core.Car) plays.Play {
	var clear striker = plays.NewDodgeClear(sel.env, s, car)
	if !clear.Feasible() {
		clear = plays.NewBumpClear(sel.env, s, car)
	}
	if car.Boost > sel.env.Tuning.Aerial.MinBoost {
		if aerial := plays.NewAerialClear(sel.env, s, car); aerial.Feasible() && earlier(aerial, clear) {
			clear = aerial
		}
	}
	return clear
}

func earlier(a, b striker) bool {
	if !b.Feasible() {
		return a.Feasible()
	}
	return a.Feasible() && a.Intercept().Time < b.Intercept().Time
}

// OpponentClose reports whether an opponent of team, extrapolated lead seconds ahead,
// is within dist of the ball on the ground.
func OpponentClose(s *game.Snapshot, team int, dist, lead float64) bool {
	for _, o := range s.Opponents(team) {
		ahead := core.Add(o.Position, core.Scale(o.Velocity, lead))
		if core.GroundDistance(ahead, s.Ball.Position) < dist {
			return true
		}
	}
	return false
}
