package plays

import (
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/intercept"
	"github.com/CaptainRL/captain/pkg/core"
)

// strike is the approach shared by every ball-hitting variant: an intercept from the
// solver feeds an Arrive, and the intercept is refreshed on a fixed cadence while
// the car is grounded and far enough from the planned contact.
type strike struct {
	base
	target  core.Vec3
	arrive  *Arrive
	sol     intercept.Solution
	initial float64
	updated float64
	invalid bool

	predicate      intercept.Predicate
	configure      func(car core.Car, sol intercept.Solution)
	aim            func(car core.Car, sol intercept.Solution) core.Vec3
	allowBackwards bool
}

func newStrike(env *Env, car core.Car, target core.Vec3) strike {
	return strike{
		base:    newBase(env, car.ID),
		target:  target,
		arrive:  NewArrive(env, car.ID),
		initial: math.Inf(1),
	}
}

// start computes the first intercept; every later plan is judged against it.
func (st *strike) start(s *game.Snapshot, car core.Car) {
	st.plan(s, car)
	st.initial = st.sol.Time
}

func (st *strike) plan(s *game.Snapshot, car core.Car) {
	sol := st.env.Solver.SolveBest(car, st.env.Forecast(s), st.predicate, st.allowBackwards)
	st.sol = sol
	if st.aim != nil {
		st.target = st.aim(car, sol)
	}
	st.arrive.Target = sol.GroundPos
	st.arrive.ArrivalTime = sol.Time
	st.arrive.Backwards = sol.Backwards
	st.arrive.Direction = nil
	if st.configure != nil {
		st.configure(car, sol)
	}
	st.updated = car.Time
	if !sol.Feasible || sol.Time > st.initial+st.env.Tuning.Strike.MaxAdditionalTime {
		st.invalid = true
		st.finish()
	}
}

// Intercept is the current plan.
func (st *strike) Intercept() intercept.Solution { return st.sol }

// Target is where the ball is being sent.
func (st *strike) Target() core.Vec3 { return st.target }

// Feasible reports whether the solver found a usable intercept at creation or on the
// last refresh.
func (st *strike) Feasible() bool { return !st.invalid }

func (st *strike) Interruptible() bool { return st.arrive.Interruptible() }

func (st *strike) approach(s *game.Snapshot, car core.Car, dt float64) {
	t := st.env.Tuning.Strike
	if st.updated+t.UpdateInterval < car.Time && car.Time < st.sol.Time-t.StopUpdating &&
		car.OnGround && !st.controls.Jump {
		st.plan(s, car)
	}
	if st.sol.Time-car.Time > t.AirborneAbortTime && st.arrive.Interruptible() && !car.OnGround {
		st.finish()
	}

	st.arrive.Step(s, dt)
	st.controls = st.arrive.Controls()
	if st.arrive.TargetSpeed() < t.MinThrottleSpeed {
		st.controls.Throttle = 0
	}
	if st.arrive.Finished() {
		st.finish()
	}
}

// Strike drives through the intercept without jumping.
type Strike struct {
	strike
}

func NewStrike(env *Env, s *game.Snapshot, car core.Car, target core.Vec3) *Strike {
	p := &Strike{strike: newStrike(env, car, target)}
	p.start(s, car)
	return p
}

func (p *Strike) Kind() Kind   { return KindStrike }
func (p *Strike) Name() string { return "Strike" }

func (p *Strike) Step(s *game.Snapshot, dt float64) {
	car, ok := p.car(s)
	if !ok {
		return
	}
	p.approach(s, car, dt)
}

// DodgeStrike arrives under the ball and dodges into it. The jump is held longer for
// higher balls.
type DodgeStrike struct {
	strike
	multiplier float64
	dodge      *AimDodge
	dodging    bool
	ballHeight float64
}

func NewDodgeStrike(env *Env, s *game.Snapshot, car core.Car, target core.Vec3) *DodgeStrike {
	d := &DodgeStrike{}
	d.init(env, s, car, target, 1, nil)
	return d
}

func (d *DodgeStrike) init(env *Env, s *game.Snapshot, car core.Car, target core.Vec3, multiplier float64,
	aim func(core.Car, intercept.Solution) core.Vec3) {
	d.strike = newStrike(env, car, target)
	d.multiplier = multiplier
	d.dodge = NewAimDodge(env, car.ID, 0.1, s.Ball.Position)
	d.predicate = d.canHit
	d.configure = d.setup
	d.aim = aim
	d.start(s, car)
}

func (d *DodgeStrike) Kind() Kind   { return KindDodgeStrike }
func (d *DodgeStrike) Name() string { return "DodgeStrike" }

// JumpDuration is how long the jump before the dodge is held for a ball at height h.
func (d *DodgeStrike) JumpDuration(h float64) float64 {
	t := d.env.Tuning.Dodge
	return t.JumpBase + core.Clamp((h-t.JumpHeightOffset)/t.JumpHeightRange, 0, t.MaxJumpExtra)*d.multiplier
}

// Executing reports whether the approach is over and the dodge has started.
func (d *DodgeStrike) Executing() bool { return d.dodging }

func (d *DodgeStrike) canHit(car core.Car, ball core.Ball) bool {
	if ball.Time-car.Time < d.JumpDuration(ball.Position.Z) {
		return false
	}
	return ball.Position.Z < d.env.Tuning.Dodge.MaxHeight
}

func (d *DodgeStrike) setup(car core.Car, sol intercept.Solution) {
	t := d.env.Tuning.Dodge
	ball := sol.Ball
	targetDir := core.GroundDirection(ball.Position, d.target)
	hitDir := core.GroundDirection(ball.Velocity, core.Scale(targetDir, core.Norm(ball.Velocity)*3+500))
	if core.Norm(hitDir) == 0 {
		hitDir = targetDir
	}
	d.arrive.Target = core.Sub(sol.GroundPos, core.Scale(hitDir, t.Distance))
	d.arrive.Direction = &hitDir

	jump := d.JumpDuration(ball.Position.Z)
	d.dodge.SetJumpDuration(jump)
	d.dodge.Target = ball.Position
	d.arrive.AdditionalShift = jump * t.ShiftPerJumpSecond
}

func (d *DodgeStrike) Interruptible() bool {
	if d.dodging {
		return d.ballHeight > 150
	}
	return d.arrive.Interruptible()
}

func (d *DodgeStrike) Step(s *game.Snapshot, dt float64) {
	car, ok := d.car(s)
	if !ok {
		return
	}
	d.ballHeight = s.Ball.Position.Z
	if d.dodging {
		d.dodge.Step(s, dt)
		d.controls = d.dodge.Controls()
	} else {
		d.approach(s, car, dt)
		if d.shouldDodge(car) {
			d.dodging = true
		}
	}
	if d.dodge.Finished() {
		d.finish()
	}
}

func (d *DodgeStrike) shouldDodge(car core.Car) bool {
	t := d.env.Tuning.Dodge
	speed := car.Speed()
	if d.arrive.ArrivalTime-car.Time >= d.dodge.JumpDuration()+t.TriggerWindow {
		return false
	}
	if math.Abs(d.arrive.TargetSpeed()-speed) >= t.MaxSpeedDiff {
		return false
	}
	aligned := core.Dot(core.Normalize(car.Velocity), core.GroundDirection(car.Position, d.arrive.Target))
	return aligned > t.MinAlignment || speed < t.SlowSpeed
}

// CloseStrike is a DodgeStrike with a slightly longer jump for shots near the goal.
type CloseStrike struct {
	DodgeStrike
}

func NewCloseStrike(env *Env, s *game.Snapshot, car core.Car, target core.Vec3) *CloseStrike {
	c := &CloseStrike{}
	c.init(env, s, car, target, env.Tuning.Dodge.CloseJumpMultiplier, nil)
	return c
}

func (c *CloseStrike) Kind() Kind   { return KindCloseStrike }
func (c *CloseStrike) Name() string { return "CloseStrike" }

// SetupStrike banks the ball off the side wall nearer to the intercept, aiming at the
// mirror image of the real target.
type SetupStrike struct {
	DodgeStrike
	original core.Vec3
}

func NewSetupStrike(env *Env, s *game.Snapshot, car core.Car, target core.Vec3) *SetupStrike {
	m := &SetupStrike{original: target}
	m.init(env, s, car, target, 1, m.mirror)
	return m
}

func (m *SetupStrike) Kind() Kind   { return KindSetupStrike }
func (m *SetupStrike) Name() string { return "SetupStrike" }

func (m *SetupStrike) mirror(_ core.Car, sol intercept.Solution) core.Vec3 {
	return MirrorTarget(m.original, sol.Position.X)
}

// MirrorTarget reflects target across the side wall on the side of x.
func MirrorTarget(target core.Vec3, x float64) core.Vec3 {
	side := core.Sign(x)
	return core.Vec(2*side*core.FieldHalfWidth-target.X, target.Y, target.Z)
}

// BumpStrike hits the ball with the car's nose, without jumping. Balls close to a
// wall are skipped since the car cannot get behind them.
type BumpStrike struct {
	strike
}

func NewBumpStrike(env *Env, s *game.Snapshot, car core.Car, target core.Vec3) *BumpStrike {
	b := &BumpStrike{}
	b.init(env, s, car, target, nil)
	return b
}

func (b *BumpStrike) init(env *Env, s *game.Snapshot, car core.Car, target core.Vec3,
	aim func(core.Car, intercept.Solution) core.Vec3) {
	b.strike = newStrike(env, car, target)
	b.predicate = b.canHit
	b.configure = b.setup
	b.aim = aim
	b.start(s, car)
}

func (b *BumpStrike) Kind() Kind   { return KindBumpStrike }
func (b *BumpStrike) Name() string { return "BumpStrike" }

func (b *BumpStrike) canHit(_ core.Car, ball core.Ball) bool {
	t := b.env.Tuning.Dodge
	if ball.Position.Z >= t.BumpMaxHeight {
		return false
	}
	c := b.env.Field.Collide(ball.Position, core.BallRadius+t.BumpWallClearance)
	return !c.Hit || math.Abs(c.Normal.Z) > 0.5
}

func (b *BumpStrike) setup(_ core.Car, sol intercept.Solution) {
	dir := core.GroundDirection(sol.Position, b.target)
	b.arrive.Target = core.Sub(sol.GroundPos, core.Scale(dir, b.env.Tuning.Dodge.BumpDistance))
	b.arrive.Direction = &dir
}

func (b *BumpStrike) Step(s *game.Snapshot, dt float64) {
	car, ok := b.car(s)
	if !ok {
		return
	}
	b.approach(s, car, dt)
}

var (
	_ Play = (*Strike)(nil)
	_ Play = (*DodgeStrike)(nil)
	_ Play = (*CloseStrike)(nil)
	_ Play = (*SetupStrike)(nil)
	_ Play = (*BumpStrike)(nil)
)
