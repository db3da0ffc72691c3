package plays

import (
	"github.com/CaptainRL/captain/internal/game"
	"github.com/CaptainRL/captain/internal/mechanics"
	"github.com/CaptainRL/captain/pkg/core"
)

// Recovery lands an airborne car wheels-down. Each tick the car's free fall is
// simulated to find the surface it will hit, and the car is turned so its roof
// points along that surface's normal.
type Recovery struct {
	base
	turn    mechanics.AerialTurn
	landing bool
	path    []core.Vec3
}

func NewRecovery(env *Env, carID int) *Recovery {
	return &Recovery{
		base: newBase(env, carID),
		turn: mechanics.NewAerialTurn(env.Tuning.Turn, core.Identity),
	}
}

func (r *Recovery) Kind() Kind          { return KindRecovery }
func (r *Recovery) Name() string        { return "Recovering" }
func (r *Recovery) Interruptible() bool { return false }

// Target is the orientation the car is turning toward.
func (r *Recovery) Target() core.Mat3 { return r.turn.Target }

// Landing reports whether the last simulation found a surface contact.
func (r *Recovery) Landing() bool { return r.landing }

func (r *Recovery) Step(s *game.Snapshot, dt float64) {
	car, ok := r.car(s)
	if !ok {
		return
	}
	r.simulate(car)
	r.controls = r.turn.Step(car)
	r.controls.Throttle = 1
	r.controls.Boost = !r.landing && core.AngleBetween(car.Forward(), core.Vec(0, 0, -1)) < 1.5

	if car.OnGround && core.Dot(car.Up(), core.Up) < -0.95 {
		// on the roof: hop off it
		r.controls.Jump = true
		r.landing = false
		return
	}
	if car.OnGround {
		r.finish()
	}
}

func (r *Recovery) simulate(car core.Car) {
	t := r.env.Tuning.Recovery
	pos, vel := car.Position, car.Velocity
	gravity := core.Vec(0, 0, r.env.Tuning.Physics.Gravity)
	r.path = append(r.path[:0], pos)
	r.landing = false

	var normal core.Vec3
	steps := int(t.Budget / t.Step)
	for i := 0; i < steps; i++ {
		pos = core.Add(pos, core.Scale(vel, t.Step))
		vel = core.ClampSpeed(core.Add(vel, core.Scale(gravity, t.Step)), r.env.Tuning.Physics.CarMaxSpeed)
		r.path = append(r.path, pos)

		contact := r.env.Field.Collide(pos, t.Radius)
		if (contact.Hit || pos.Z < 0) && i > t.IgnoreSteps {
			r.landing = true
			normal = contact.Normal
			if !contact.Hit {
				normal = core.Up
			}
			break
		}
	}

	if !r.landing {
		r.turn.Target = LevelOrientation(car)
		return
	}
	f := core.Normalize(core.Sub(vel, core.Scale(normal, core.Dot(vel, normal))))
	if core.Norm(f) == 0 {
		f = core.Normalize(core.Sub(car.Forward(), core.Scale(normal, core.Dot(car.Forward(), normal))))
	}
	l := core.Normalize(core.Cross(normal, f))
	r.turn.Target = core.FromColumns(f, l, normal)
}

// LevelOrientation is the nose-level orientation facing along the car's ground
// velocity, or along its heading when it has no ground velocity.
func LevelOrientation(car core.Car) core.Mat3 {
	dir := core.Normalize(core.Ground(car.Velocity))
	if core.Norm(dir) == 0 {
		dir = core.Normalize(core.Ground(car.Forward()))
	}
	if core.Norm(dir) == 0 {
		dir = core.Normalize(core.Ground(core.Scale(car.Up(), -1)))
	}
	if core.Norm(dir) == 0 {
		dir = core.Vec(1, 0, 0)
	}
	return core.LookAt(dir, core.Up)
}

var _ Play = (*Recovery)(nil)
