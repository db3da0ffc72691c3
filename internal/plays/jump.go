package plays

import (
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/mechanics"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	dodgeRecovery      = 0.4
	speedFlipFirst     = 0.1
	speedFlipGap       = 0.1
	speedFlipSecond    = 0.05
	speedFlipMaxSpeed  = 2290
	flipTimeout        = 2.0
	flipLandAfter      = 0.5
	halfFlipBoostDelay = 0.4
	halfFlipStallStart = 0.5
	halfFlipStallEnd   = 0.7
	wavedashJump       = 0.05
	wavedashTilt       = 0.3
	wavedashHeight     = 45
	wavedashTimeout    = 1.5
)

// Jump holds jump for Duration and finishes two released ticks later.
type Jump struct {
	base
	Duration float64
	timer    float64
	counter  int
}

func NewJump(env *Env, carID int, duration float64) *Jump {
	return &Jump{base: newBase(env, carID), Duration: duration}
}

func (j *Jump) Kind() Kind          { return KindJump }
func (j *Jump) Name() string        { return "Jumping" }
func (j *Jump) Interruptible() bool { return false }

func (j *Jump) Step(s *game.Snapshot, dt float64) {
	if _, ok := j.car(s); !ok {
		return
	}
	j.controls = core.Controls{Jump: j.timer < j.Duration}
	if !j.controls.Jump {
		j.counter++
	}
	j.timer += dt
	if j.counter >= 2 {
		j.finish()
	}
}

// AirDodge jumps and then dodges toward Target, or double jumps when Target is nil.
// The dodge runs on a tick counter: stick set on the first two ticks, jump pressed
// on the next two, neutral afterwards.
type AirDodge struct {
	base
	Target *core.Vec3

	jump       *Jump
	skipJump   bool
	phase      int
	stateTimer float64
	stick      core.Controls
}

func NewAirDodge(env *Env, carID int, duration float64, target *core.Vec3) *AirDodge {
	return &AirDodge{
		base:     newBase(env, carID),
		Target:   target,
		jump:     NewJump(env, carID, duration),
		skipJump: duration <= 0,
	}
}

func (a *AirDodge) Kind() Kind          { return KindAirDodge }
func (a *AirDodge) Name() string        { return "AirDodge" }
func (a *AirDodge) Interruptible() bool { return false }

// SetJumpDuration changes how long the first jump is held. Only meaningful before
// the play starts.
func (a *AirDodge) SetJumpDuration(d float64) {
	a.jump.Duration = d
	a.skipJump = d <= 0
}

// Jumping reports whether the first jump is still running.
func (a *AirDodge) Jumping() bool { return !a.skipJump && !a.jump.Finished() }

// StateTimer is the time spent since the first jump ended.
func (a *AirDodge) StateTimer() float64 { return a.stateTimer }

func (a *AirDodge) Step(s *game.Snapshot, dt float64) {
	car, ok := a.car(s)
	if !ok {
		return
	}
	recovery := 0.0
	if a.Target != nil {
		recovery = dodgeRecovery
	}

	if a.Jumping() {
		a.jump.Step(s, dt)
		a.controls = a.jump.Controls()
		return
	}

	switch {
	case a.phase == 0:
		a.stick = dodgeStick(car, a.Target)
		a.controls = a.stick
	case a.phase < 2:
		a.controls = a.stick
	case a.phase < 4:
		a.controls = a.stick
		a.controls.Jump = true
	default:
		a.controls = core.Controls{}
	}
	a.phase++
	a.stateTimer += dt

	if a.stateTimer > recovery && a.phase >= 6 {
		a.finish()
	}
}

// dodgeStick returns the stick that dodges toward target, or a neutral stick.
func dodgeStick(car core.Car, target *core.Vec3) core.Controls {
	var c core.Controls
	if target == nil {
		return c
	}
	local := car.Orientation.Local(core.Sub(*target, car.Position))
	local.Z = 0
	dir := core.Normalize(local)
	c.Pitch = -dir.X
	c.Yaw = core.Clamp11(core.Sign(car.Up().Z) * dir.Y)
	if local.X > 0 && car.ForwardSpeed() > 500 {
		c.Pitch *= 0.8
		c.Yaw = core.Clamp11(c.Yaw * 5)
	}
	return c
}

// SpeedFlip is the diagonal cancelled flip used on kickoffs.
type SpeedFlip struct {
	base
	direction float64
	useBoost  bool
	timer     float64
}

func NewSpeedFlip(env *Env, carID int, right, boost bool) *SpeedFlip {
	dir := -1.0
	if right {
		dir = 1
	}
	return &SpeedFlip{base: newBase(env, carID), direction: dir, useBoost: boost}
}

func (f *SpeedFlip) Kind() Kind          { return KindSpeedFlip }
func (f *SpeedFlip) Name() string        { return "SpeedFlip" }
func (f *SpeedFlip) Interruptible() bool { return false }

func (f *SpeedFlip) Step(s *game.Snapshot, dt float64) {
	car, ok := f.car(s)
	if !ok {
		return
	}
	c := core.Controls{Throttle: 1, Boost: f.useBoost && car.Speed() < speedFlipMaxSpeed}
	switch {
	case f.timer < speedFlipFirst:
		c.Jump, c.Pitch = true, 1
	case f.timer < speedFlipFirst+speedFlipGap:
		c.Pitch = 1
	case f.timer < speedFlipFirst+speedFlipGap+speedFlipSecond:
		c.Jump, c.Pitch, c.Roll = true, -1, -0.3*f.direction
	default:
		c.Pitch, c.Roll, c.Yaw = 1, -f.direction, -f.direction
	}
	f.controls = c
	f.timer += dt
	if f.timer > flipTimeout || (car.OnGround && f.timer > flipLandAfter) {
		f.finish()
	}
}

// HalfFlip turns a reversing car around: a backflip cancelled at its peak, then a roll.
type HalfFlip struct {
	base
	dodge    *AirDodge
	side     float64
	useBoost bool
	timer    float64
}

func NewHalfFlip(env *Env, carID int, car core.Car, boost bool) *HalfFlip {
	behind := core.Sub(car.Position, core.Scale(car.Forward(), 1000))
	return &HalfFlip{
		base:     newBase(env, carID),
		dodge:    NewAirDodge(env, carID, 0.1, &behind),
		side:     0.95 * core.Sign(core.Dot(car.AngularVelocity, car.Up())+0.01),
		useBoost: boost,
	}
}

func (h *HalfFlip) Kind() Kind          { return KindHalfFlip }
func (h *HalfFlip) Name() string        { return "HalfFlip" }
func (h *HalfFlip) Interruptible() bool { return false }

func (h *HalfFlip) Step(s *game.Snapshot, dt float64) {
	car, ok := h.car(s)
	if !ok {
		return
	}
	h.dodge.Step(s, dt)
	c := h.dodge.Controls()
	switch {
	case h.timer > halfFlipStallEnd:
		c.Roll, c.Pitch, c.Yaw = h.side, -1, h.side
	case h.timer > halfFlipStallStart:
		c.Roll, c.Pitch, c.Yaw = 0, -1, 0
	}
	c.Boost = h.useBoost && h.timer > halfFlipBoostDelay
	h.controls = c
	h.timer += dt
	if h.timer > flipTimeout || (car.OnGround && h.timer > flipLandAfter) {
		h.finish()
	}
}

// AimDodge jumps, turns the nose toward Target while rising, then dodges into it.
type AimDodge struct {
	base
	Target core.Vec3
	dodge  *AirDodge
	turn   mechanics.AerialTurn
}

func NewAimDodge(env *Env, carID int, duration float64, target core.Vec3) *AimDodge {
	a := &AimDodge{
		base:   newBase(env, carID),
		Target: target,
		turn:   mechanics.NewAerialTurn(env.Tuning.Turn, core.Identity),
	}
	a.dodge = NewAirDodge(env, carID, duration, &a.Target)
	return a
}

func (a *AimDodge) Kind() Kind          { return KindAimDodge }
func (a *AimDodge) Name() string        { return "AimDodge" }
func (a *AimDodge) Interruptible() bool { return false }

// SetJumpDuration changes the first jump duration before the play starts.
func (a *AimDodge) SetJumpDuration(d float64) { a.dodge.SetJumpDuration(d) }

// JumpDuration is the configured first jump duration.
func (a *AimDodge) JumpDuration() float64 { return a.dodge.jump.Duration }

func (a *AimDodge) Step(s *game.Snapshot, dt float64) {
	car, ok := a.car(s)
	if !ok {
		return
	}
	a.dodge.Step(s, dt)
	a.controls = a.dodge.Controls()
	if a.dodge.Jumping() && !car.OnGround {
		dir := core.Direction(car.Position, core.Add(a.Target, core.Vec(0, 0, 200)))
		up := core.Scale(dir, -1)
		up.Z = 1
		a.turn.Target = core.LookAt(dir, core.Normalize(up))
		turn := a.turn.Step(car)
		a.controls.Pitch, a.controls.Yaw, a.controls.Roll = turn.Pitch, turn.Yaw, turn.Roll
	}
	if a.dodge.Finished() {
		a.finish()
	}
}

// Wavedash hops, lands tilted back and dodges toward the target as the wheels touch.
type Wavedash struct {
	base
	Target  core.Vec3
	jump    *Jump
	turn    mechanics.AerialTurn
	timer   float64
	dodging bool
}

func NewWavedash(env *Env, carID int, target core.Vec3) *Wavedash {
	return &Wavedash{
		base:   newBase(env, carID),
		Target: target,
		jump:   NewJump(env, carID, wavedashJump),
		turn:   mechanics.NewAerialTurn(env.Tuning.Turn, core.Identity),
	}
}

func (w *Wavedash) Kind() Kind          { return KindWavedash }
func (w *Wavedash) Name() string        { return "Wavedash" }
func (w *Wavedash) Interruptible() bool { return false }

func (w *Wavedash) Step(s *game.Snapshot, dt float64) {
	car, ok := w.car(s)
	if !ok {
		return
	}
	w.timer += dt
	switch {
	case !w.jump.Finished():
		w.jump.Step(s, dt)
		w.controls = w.jump.Controls()
	case w.dodging:
		w.controls = core.Controls{}
		if car.OnGround {
			w.finish()
		}
	case !car.OnGround && car.Position.Z < wavedashHeight && car.Velocity.Z < 0:
		// wheels about to touch: dodge forward along the ground
		w.controls = dodgeStick(car, &w.Target)
		w.controls.Jump = true
		w.dodging = true
	default:
		dir := core.GroundDirection(car.Position, w.Target)
		if core.Norm(dir) == 0 {
			dir = core.Normalize(core.Ground(car.Forward()))
		}
		tilted := core.Normalize(core.Add(dir, core.Vec(0, 0, math.Tan(wavedashTilt))))
		w.turn.Target = core.LookAt(tilted, core.Up)
		w.controls = w.turn.Step(car)
		if car.OnGround && w.timer > 0.3 {
			w.finish()
		}
	}
	if w.timer > wavedashTimeout {
		w.finish()
	}
}

var (
	_ Play = (*Jump)(nil)
	_ Play = (*AirDodge)(nil)
	_ Play = (*SpeedFlip)(nil)
	_ Play = (*HalfFlip)(nil)
	_ Play = (*AimDodge)(nil)
	_ Play = (*Wavedash)(nil)
)
