package plays

import (
	"math"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
)

// fieldMargin keeps drive targets off the walls.
const fieldMargin = 100

// steer computes the plain drive inputs toward target at targetSpeed. prevThrottle is
// held while the car is slightly above the target speed.
func steer(t config.DriveTuning, car core.Car, target core.Vec3, targetSpeed float64, backwards bool, prevThrottle float64) core.Controls {
	var c core.Controls
	target = core.ClampToField(target, fieldMargin, fieldMargin)

	seam := t.WallSeamHeight
	if math.Abs(car.Position.Y) > core.FieldHalfLength-fieldMargin {
		seam = fieldMargin
	}
	if car.Position.Z > seam {
		// on a wall: come down first
		target = core.Ground(car.Position)
	}

	local := car.Local(target)
	if backwards {
		local.X, local.Y = -local.X, -local.Y
	}
	angle := math.Atan2(local.Y, local.X)
	c.Steer = core.Clamp11(t.SteerGain * angle)

	if math.Abs(angle) > t.HandbrakeAngle &&
		car.Position.Z < 300 &&
		(core.GroundDistance(car.Position, target) < 3500 || math.Abs(car.Position.X) > 3500) &&
		core.Dot(core.Normalize(car.Velocity), car.Forward()) > t.HandbrakeAlignment {
		c.Handbrake = true
	}

	speed := car.ForwardSpeed()
	if backwards {
		speed = -speed
	}
	if speed < targetSpeed {
		c.Throttle = 1
		c.Boost = targetSpeed > t.BoostMinTargetSpeed && speed < t.BoostMaxSpeed && targetSpeed-speed > t.BoostMinDiff
	} else {
		switch over := speed - targetSpeed; {
		case over > t.BrakeMargin:
			c.Throttle = -1
		case over > t.CoastMargin:
			if car.Up().Z > 0.85 {
				c.Throttle = 0
			} else {
				c.Throttle = 0.01
			}
		default:
			c.Throttle = prevThrottle
			if backwards {
				c.Throttle = -prevThrottle
			}
		}
	}

	if backwards {
		c.Throttle, c.Steer = -c.Throttle, -c.Steer
		c.Boost, c.Handbrake = false, false
	}
	if math.Abs(angle) > t.BoostMaxAngle {
		c.Boost = false
	}
	return c
}

// Drive heads for Target at TargetSpeed and finishes close to it.
type Drive struct {
	base
	Target      core.Vec3
	TargetSpeed float64
	Backwards   bool
}

func NewDrive(env *Env, carID int, target core.Vec3, speed float64) *Drive {
	return &Drive{base: newBase(env, carID), Target: target, TargetSpeed: speed}
}

func (d *Drive) Kind() Kind          { return KindDrive }
func (d *Drive) Name() string        { return "Driving" }
func (d *Drive) Interruptible() bool { return true }

func (d *Drive) Step(s *game.Snapshot, dt float64) {
	car, ok := d.car(s)
	if !ok {
		return
	}
	d.stepCar(car)
}

func (d *Drive) stepCar(car core.Car) {
	d.controls = steer(d.env.Tuning.Drive, car, d.Target, d.TargetSpeed, d.Backwards, d.controls.Throttle)
	if core.Distance(car.Position, d.Target) < d.env.Tuning.Drive.FinishDistance {
		d.finish()
	}
}

// Stop brakes until the car is nearly still.
type Stop struct {
	base
}

func NewStop(env *Env, carID int) *Stop {
	return &Stop{base: newBase(env, carID)}
}

func (p *Stop) Kind() Kind          { return KindStop }
func (p *Stop) Name() string        { return "Stopping" }
func (p *Stop) Interruptible() bool { return true }

func (p *Stop) Step(s *game.Snapshot, dt float64) {
	car, ok := p.car(s)
	if !ok {
		return
	}
	p.stepCar(car)
}

func (p *Stop) stepCar(car core.Car) {
	limit := p.env.Tuning.Drive.StopSpeed
	p.controls = core.Controls{}
	switch speed := car.ForwardSpeed(); {
	case speed > limit:
		p.controls.Throttle = -1
	case speed < -limit:
		p.controls.Throttle = 1
	default:
		p.finish()
	}
}

// Travel is Drive augmented with dodges, wavedashes and half-flips on long straight
// stretches. It is interruptible only while plainly driving.
type Travel struct {
	base
	Target         core.Vec3
	FinishDistance float64
	AllowFancy     bool

	drive        *Drive
	action       Play
	driving      bool
	timeOnGround float64
}

func NewTravel(env *Env, carID int, target core.Vec3) *Travel {
	t := &Travel{
		base:           newBase(env, carID),
		Target:         target,
		FinishDistance: env.Tuning.Travel.FinishDistance,
		AllowFancy:     true,
		drive:          NewDrive(env, carID, target, core.CarMaxSpeed),
		driving:        true,
	}
	t.action = t.drive
	return t
}

func (t *Travel) Kind() Kind { return KindTravel }

func (t *Travel) Name() string {
	if t.driving {
		return "Travel"
	}
	return "Travel (" + t.action.Name() + ")"
}

func (t *Travel) Interruptible() bool { return t.driving }

// Driving reports whether no dodge, wavedash or half-flip is in progress.
func (t *Travel) Driving() bool { return t.driving }

// SetSpeed changes the cruise speed of the underlying drive.
func (t *Travel) SetSpeed(speed float64) { t.drive.TargetSpeed = speed }

func (t *Travel) Step(s *game.Snapshot, dt float64) {
	car, ok := t.car(s)
	if !ok {
		return
	}
	target := core.Ground(core.ClampToField(t.Target, fieldMargin, fieldMargin))
	speed := car.Speed()
	forwardSpeed := car.ForwardSpeed()

	if t.driving && car.OnGround {
		t.drive.Target = target
		t.timeOnGround += dt
		if t.AllowFancy {
			if fancy := t.pickFancy(car, target, speed, forwardSpeed); fancy != nil {
				t.action = fancy
				t.driving = false
			}
		}
	}

	t.action.Step(s, dt)
	t.controls = t.action.Controls()

	if !t.driving && t.action.Finished() {
		t.action = t.drive
		t.driving = true
		t.timeOnGround = 0
	}
	if t.driving && core.GroundDistance(car.Position, target) < t.FinishDistance {
		t.finish()
	}
}

// pickFancy chooses a speed-gaining move, or nil to keep driving. The estimate of
// time left assumes the car keeps roughly its current speed.
func (t *Travel) pickFancy(car core.Car, target core.Vec3, speed, forwardSpeed float64) Play {
	tt := t.env.Tuning.Travel
	if t.timeOnGround < 0.2 || car.Position.Z > 200 {
		return nil
	}
	heading := car.Forward()
	if forwardSpeed < 0 {
		heading = core.Scale(heading, -1)
	}
	if core.AngleBetween(core.Ground(heading), core.GroundDirection(car.Position, target)) > tt.MaxFancyAngle {
		return nil
	}
	timeLeft := (core.GroundDistance(car.Position, target) - t.FinishDistance) / math.Max(speed+500, 1400)

	if forwardSpeed > 0 {
		if speed < tt.MinFancySpeed || speed > tt.MaxFancySpeed {
			return nil
		}
		switch {
		case timeLeft > tt.WavedashTime:
			return NewWavedash(t.env, t.carID, target)
		case timeLeft > tt.DodgeTime:
			return NewAirDodge(t.env, t.carID, 0.07, &target)
		}
		return nil
	}
	if timeLeft > tt.HalfFlipTime && speed > tt.HalfFlipMinSpeed {
		return NewHalfFlip(t.env, t.carID, car, false)
	}
	return nil
}

// Arrive reaches Target at ArrivalTime, optionally heading along Direction on arrival.
// The aim point is shifted back along Direction so the car curves into the final
// heading instead of turning at the last moment.
type Arrive struct {
	base
	Target          core.Vec3
	ArrivalTime     float64
	Direction       *core.Vec3
	Backwards       bool
	AdditionalShift float64
	AllowFancy      bool

	drive       *Drive
	travel      *Travel
	targetSpeed float64
	shifted     core.Vec3
}

func NewArrive(env *Env, carID int) *Arrive {
	return &Arrive{
		base:       newBase(env, carID),
		AllowFancy: true,
		drive:      NewDrive(env, carID, core.Vec3{}, 0),
		travel:     NewTravel(env, carID, core.Vec3{}),
	}
}

func (a *Arrive) Kind() Kind   { return KindArrive }
func (a *Arrive) Name() string { return "Arrive" }

func (a *Arrive) Interruptible() bool { return a.travel.Driving() }

// TargetSpeed is the average speed requested on the last step.
func (a *Arrive) TargetSpeed() float64 { return a.targetSpeed }

// ShiftedTarget is the aim point used on the last step.
func (a *Arrive) ShiftedTarget() core.Vec3 { return a.shifted }

func (a *Arrive) Step(s *game.Snapshot, dt float64) {
	car, ok := a.car(s)
	if !ok {
		return
	}
	at := a.env.Tuning.Arrive
	target := a.Target
	shifted, arrival := target, a.ArrivalTime

	if a.Direction != nil {
		speed := car.Speed()
		dir := core.Normalize(*a.Direction)
		shift := core.Clamp(core.GroundDistance(car.Position, target)*at.LerpT, 0, speed*at.ShiftSpeedGain)
		if shift-a.AdditionalShift < a.env.Tuning.Drive.TurnRadius(core.Clamp(speed, 1400, 2000)*1.1) {
			shift = 0
		} else {
			shift += a.AdditionalShift
		}
		shifted = core.Sub(target, core.Scale(dir, shift))
		arrival -= core.GroundDistance(shifted, target) * at.TimeShiftGain / core.Clamp(speed, 500, core.CarMaxSpeed)
	}
	shifted = core.ClampToField(shifted, fieldMargin, fieldMargin)
	a.shifted = shifted

	timeLeft := core.NonZero(arrival - car.Time)
	a.targetSpeed = core.Clamp(core.GroundDistance(car.Position, shifted)/timeLeft, 0, core.CarMaxSpeed)

	a.drive.Target = shifted
	a.drive.TargetSpeed = a.targetSpeed
	a.drive.Backwards = a.Backwards
	a.travel.Target = shifted

	fancy := a.AllowFancy && !a.Backwards &&
		car.Speed() < a.targetSpeed-at.FancySpeedGap &&
		car.Boost < at.FancyMaxBoost
	if fancy || !a.travel.Driving() {
		a.travel.Step(s, dt)
		a.controls = a.travel.Controls()
	} else {
		a.drive.stepCar(car)
		a.controls = a.drive.Controls()
	}

	if car.Time >= a.ArrivalTime {
		a.finish()
	}
}

var (
	_ Play = (*Drive)(nil)
	_ Play = (*Stop)(nil)
	_ Play = (*Travel)(nil)
	_ Play = (*Arrive)(nil)
)
