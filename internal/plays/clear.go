package plays

import (
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/pkg/core"
)

// clearTargets are spots along the midfield line and both side walls. A clear sends
// the ball to whichever is easiest to reach from the approach direction.
var clearTargets = func() []core.Vec3 {
	var out []core.Vec3
	for x := -4000.0; x < 4000; x += 500 {
		out = append(out, core.Vec(x, 0, 0))
	}
	for _, side := range []float64{1, -1} {
		for y := -5000.0; y < 5000; y += 500 {
			out = append(out, core.Vec(side*core.FieldHalfWidth, y, 0))
		}
	}
	return out
}()

// EasiestTarget picks the target in targets best lined up with the car's approach
// through ball, nudged toward the opponent goal.
func EasiestTarget(car core.Car, ball core.Vec3, targets []core.Vec3) core.Vec3 {
	toGoal := core.GroundDirection(ball, core.OpponentGoal(car.Team).Center)
	approach := core.Add(core.GroundDirection(car.Position, ball), core.Scale(toGoal, 0.5))
	best, bestScore := targets[0], -1e9
	for _, t := range targets {
		if score := core.Dot(approach, core.GroundDirection(ball, t)); score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

func clearAim(car core.Car, sol intercept.Solution) core.Vec3 {
	return EasiestTarget(car, sol.Position, clearTargets)
}

// DodgeClear dodges the ball away from danger.
type DodgeClear struct {
	DodgeStrike
}

func NewDodgeClear(env *Env, s *game.Snapshot, car core.Car) *DodgeClear {
	c := &DodgeClear{}
	c.init(env, s, car, core.Vec3{}, 1, clearAim)
	return c
}

func (c *DodgeClear) Kind() Kind   { return KindDodgeClear }
func (c *DodgeClear) Name() string { return "DodgeClear" }

// BumpClear drives the ball away without jumping.
type BumpClear struct {
	BumpStrike
}

func NewBumpClear(env *Env, s *game.Snapshot, car core.Car) *BumpClear {
	c := &BumpClear{}
	c.init(env, s, car, core.Vec3{}, clearAim)
	return c
}

func (c *BumpClear) Kind() Kind   { return KindBumpClear }
func (c *BumpClear) Name() string { return "BumpClear" }

// AerialClear clears a high ball.
type AerialClear struct {
	AerialStrike
}

func NewAerialClear(env *Env, s *game.Snapshot, car core.Car) *AerialClear {
	c := &AerialClear{}
	c.init(env, s, car, core.Vec3{}, clearAim)
	return c
}

func (c *AerialClear) Kind() Kind   { return KindAerialClear }
func (c *AerialClear) Name() string { return "AerialClear" }

var (
	_ Play = (*DodgeClear)(nil)
	_ Play = (*BumpClear)(nil)
	_ Play = (*AerialClear)(nil)
)
