package plays

import (
	"math"

	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/pkg/core"
)

const (
	faceSpeed     = 1000
	padChaseSpeed = 2200
	padMaxBoost   = 90
)

func nearestPoint(p core.Vec3, points ...core.Vec3) core.Vec3 {
	best := points[0]
	for _, q := range points[1:] {
		if core.Distance(p, q) < core.Distance(p, best) {
			best = q
		}
	}
	return best
}

func farthestPoint(p core.Vec3, points ...core.Vec3) core.Vec3 {
	best := points[0]
	for _, q := range points[1:] {
		if core.Distance(p, q) > core.Distance(p, best) {
			best = q
		}
	}
	return best
}

func angleTo(car core.Car, target core.Vec3) float64 {
	return core.AngleBetween(core.Ground(car.Forward()), core.GroundDirection(car.Position, target))
}

// standoff is the positioning shared by Defense and GoToNet: travel to a spot, then
// turn to face the face target and stop.
type standoff struct {
	base
	face    core.Vec3
	travel  *Travel
	drive   *Drive
	stop    *Stop
	start   float64
	stopped bool
}

func newStandoff(env *Env, car core.Car, face, spot core.Vec3) standoff {
	return standoff{
		base:   newBase(env, car.ID),
		face:   face,
		travel: NewTravel(env, car.ID, spot),
		drive:  NewDrive(env, car.ID, face, faceSpeed),
		stop:   NewStop(env, car.ID),
		start:  car.Time,
	}
}

// Spot is where the car is heading.
func (p *standoff) Spot() core.Vec3 { return p.travel.Target }

func (p *standoff) Interruptible() bool { return p.travel.Interruptible() || p.stopped }

// settle turns toward the face target once in place, then brakes.
func (p *standoff) settle(car core.Car, angle float64) {
	if angleTo(car, p.face) > angle {
		p.drive.Target = p.face
		p.drive.TargetSpeed = faceSpeed
		p.drive.stepCar(car)
		p.controls = p.drive.Controls()
		p.controls.Handbrake = false
		p.stopped = false
		return
	}
	p.stop.stepCar(car)
	p.controls = p.stop.Controls()
	p.stopped = true
}

// saveBoost drops boost near the destination.
func (p *standoff) saveBoost(car core.Car) {
	if car.Boost < 100 && core.GroundDistance(car.Position, p.travel.Target) < p.env.Tuning.Defense.SaveBoostDistance {
		p.controls.Boost = false
	}
}

// Defense takes a shadowing position between faceTarget and the own goal, picking up
// boost on the way, and faces faceTarget once there.
type Defense struct {
	standoff
	refueling bool
}

// NewDefense positions distance units from faceTarget toward the own goal. The spot
// is shifted sideways so the car does not block its own view of the ball.
func NewDefense(env *Env, car core.Car, faceTarget core.Vec3, distance float64, forceNearest bool) *Defense {
	t := env.Tuning.Defense
	net := core.Ground(core.OwnGoal(car.Team).Center)

	dist := math.Min(distance, core.GroundDistance(faceTarget, net)-50)
	spot := core.Add(core.Ground(faceTarget), core.Scale(core.GroundDirection(faceTarget, net), dist))

	nearNet := math.Abs(car.Position.Y-net.Y) < t.NearNet
	shift := t.SideShiftFar
	if nearNet {
		shift = t.SideShiftNear
	}
	a, b := core.Add(spot, core.Vec(shift, 0, 0)), core.Sub(spot, core.Vec(shift, 0, 0))
	if nearNet || forceNearest {
		spot = nearestPoint(faceTarget, a, b)
	} else {
		spot = farthestPoint(faceTarget, a, b)
	}
	if math.Abs(faceTarget.X) < 1000 || core.GroundDistance(car.Position, faceTarget) < 1000 {
		spot = nearestPoint(car.Position, a, b)
	}
	spot = core.ClampToField(spot, t.MarginX, t.MarginY)

	d := &Defense{standoff: newStandoff(env, car, faceTarget, spot)}
	d.travel.FinishDistance = t.FinishFar
	if nearNet {
		d.travel.FinishDistance = t.FinishNear
	}
	return d
}

func (d *Defense) Kind() Kind { return KindDefense }

func (d *Defense) Name() string {
	if d.refueling {
		return "SettingUp (Refueling)"
	}
	return "SettingUp"
}

func (d *Defense) Step(s *game.Snapshot, dt float64) {
	car, ok := d.car(s)
	if !ok {
		return
	}
	t := d.env.Tuning.Defense
	d.travel.Step(s, dt)

	if d.travel.Finished() {
		d.settle(car, t.FaceAngle)
	} else {
		d.stopped = false
		d.refueling = false
		if car.Boost < padMaxBoost && d.travel.Interruptible() {
			toSpot := core.GroundDirection(car.Position, d.travel.Target)
			for _, pad := range s.Pads {
				if !pad.Active || core.Distance(car.Position, pad.Position) >= t.BoostRadius {
					continue
				}
				if core.AngleBetween(toSpot, core.GroundDirection(car.Position, pad.Position)) < t.BoostAngle {
					d.drive.Target = pad.Position
					d.drive.TargetSpeed = padChaseSpeed
					d.drive.stepCar(car)
					d.controls = d.drive.Controls()
					d.refueling = true
					break
				}
			}
		}
		if !d.refueling {
			d.controls = d.travel.Controls()
		}
	}
	d.saveBoost(car)

	if d.travel.Driving() && car.Time > d.start+t.Dwell {
		d.finish()
	}
}

// GoToNet retreats to the own goal mouth and faces faceTarget.
type GoToNet struct {
	standoff
}

func NewGoToNet(env *Env, car core.Car, faceTarget core.Vec3) *GoToNet {
	t := env.Tuning.Defense
	net := core.Ground(core.OwnGoal(car.Team).Center)

	nearNet := math.Abs(car.Position.Y-net.Y) < t.NearNet
	shift := t.SideShiftFar
	if nearNet {
		shift = t.SideShiftNear
	}
	a, b := core.Add(net, core.Vec(shift, 0, 0)), core.Sub(net, core.Vec(shift, 0, 0))
	spot := nearestPoint(net, a, b)
	if core.GroundDistance(car.Position, net) < 1000 || math.Abs(net.X) < 1000 {
		spot = nearestPoint(car.Position, a, b)
	}
	spot = core.ClampToField(spot, t.MarginX, t.MarginY)

	g := &GoToNet{standoff: newStandoff(env, car, faceTarget, spot)}
	g.travel.FinishDistance = t.NetFinish
	if nearNet {
		g.travel.SetSpeed(t.NetSpeed)
	}
	return g
}

func (g *GoToNet) Kind() Kind   { return KindGoToNet }
func (g *GoToNet) Name() string { return "GoToNet" }

func (g *GoToNet) Step(s *game.Snapshot, dt float64) {
	car, ok := g.car(s)
	if !ok {
		return
	}
	t := g.env.Tuning.Defense
	if g.travel.Finished() {
		g.settle(car, t.NetFaceAngle)
	} else {
		g.travel.Step(s, dt)
		g.stopped = false
		g.controls = g.travel.Controls()
	}
	g.saveBoost(car)

	if (g.travel.Driving() || g.travel.Finished()) && car.Time > g.start+t.NetDwell {
		g.finish()
	}
}

var (
	_ Play = (*Defense)(nil)
	_ Play = (*GoToNet)(nil)
)
