package sim

import (
	"math"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/pkg/core"
)

// Stepper advances a car or ball by one time step.
type Stepper interface {
	StepCar(car core.Car, controls core.Controls, dt float64) core.Car
	StepBall(ball core.Ball, dt float64) core.Ball
}

// Physics is an approximate rigid-body model of cars and ball on the standard arena.
type Physics struct {
	tuning config.PhysicsTuning
	drive  config.DriveTuning
	field  Field
}

// NewPhysics builds the default stepping oracle.
func NewPhysics(t config.Tuning, field Field) *Physics {
	return &Physics{tuning: t.Physics, drive: t.Drive, field: field}
}

// ThrottleAccel is the forward acceleration from full throttle at the given speed.
func ThrottleAccel(t config.PhysicsTuning, speed float64) float64 {
	speed = math.Abs(speed)
	switch {
	case speed < 1400:
		return t.ThrottleAccel - speed*(t.ThrottleAccel-160)/1400
	case speed < t.ThrottleTopSpeed:
		return 160 * (t.ThrottleTopSpeed - speed) / (t.ThrottleTopSpeed - 1400)
	default:
		return 0
	}
}

// Bounce applies the surface model to a velocity hitting a surface with the given
// normal: the normal part is reflected with restitution (and zeroed below the resting
// speed), the tangential part loses a share proportional to the impact.
func Bounce(v, normal core.Vec3, restitution, friction, resting float64) core.Vec3 {
	vn := core.Dot(v, normal)
	if vn >= 0 {
		return v
	}
	normalPart := core.Scale(normal, vn)
	tangent := core.Sub(v, normalPart)
	reflected := -vn * restitution
	if reflected < resting {
		// rolling contact: no impact, no tangential loss
		return tangent
	}
	if tn := core.Norm(tangent); tn > 0 {
		loss := math.Min(1, friction*(1+restitution)*math.Abs(vn)/tn)
		tangent = core.Scale(tangent, 1-loss)
	}
	return core.Add(tangent, core.Scale(normal, reflected))
}

// StepBall advances the ball under gravity with surface bounces.
func (p *Physics) StepBall(ball core.Ball, dt float64) core.Ball {
	next := ball
	next.Velocity.Z += p.tuning.Gravity * dt
	next.Velocity = core.ClampSpeed(next.Velocity, p.tuning.BallMaxSpeed)
	next.Position = core.Add(next.Position, core.Scale(next.Velocity, dt))
	if c := p.field.Collide(next.Position, p.tuning.BallRadius); c.Hit {
		next.Position = core.Add(next.Position, core.Scale(c.Normal, c.Depth))
		next.Velocity = Bounce(next.Velocity, c.Normal, p.tuning.BallRestitution, p.tuning.BallFriction, p.tuning.RestingSpeed)
	}
	next.Time += dt
	return next
}

// StepCar advances a car by dt under the given controls.
func (p *Physics) StepCar(car core.Car, c core.Controls, dt float64) core.Car {
	c = c.Clamped()
	next := car
	if car.OnGround {
		next = p.stepGround(next, c, dt)
	} else {
		next = p.stepAir(next, c, dt)
	}
	if c.Boost && next.Boost > 0 {
		next.Boost = math.Max(0, next.Boost-p.tuning.BoostPerSecond*dt)
	}
	next.Velocity = core.ClampSpeed(next.Velocity, p.tuning.CarMaxSpeed)
	next.Position = core.Add(next.Position, core.Scale(next.Velocity, dt))
	next.Time += dt
	return p.land(next)
}

func (p *Physics) stepGround(car core.Car, c core.Controls, dt float64) core.Car {
	if c.Jump && !car.Jumped {
		car.OnGround = false
		car.Jumped = true
		car.JumpHeld = true
		car.Velocity = core.Add(car.Velocity, core.Scale(car.Up(), p.tuning.JumpImpulse))
		return car
	}

	speed := car.ForwardSpeed()
	var accel float64
	switch {
	case c.Throttle != 0 && c.Throttle*speed >= 0:
		accel = c.Throttle * ThrottleAccel(p.tuning, speed)
	case c.Throttle != 0:
		accel = -core.Sign(speed) * p.tuning.BrakeAccel
	case math.Abs(speed) > 0:
		accel = -core.Sign(speed) * math.Min(p.tuning.CoastAccel, math.Abs(speed)/dt)
	}
	if c.Boost && car.Boost > 0 {
		accel += p.tuning.BoostAccel
	}
	speed += accel * dt

	yawRate := c.Steer * p.drive.CurvatureAt(speed) * speed
	if c.Handbrake {
		yawRate *= 1.5
	}
	car.Orientation = core.AxisAngle(core.Scale(car.Up(), yawRate*dt)).Mul(car.Orientation)
	car.AngularVelocity = core.Scale(car.Up(), yawRate)
	car.Velocity = core.Scale(car.Forward(), speed)
	return car
}

func (p *Physics) stepAir(car core.Car, c core.Controls, dt float64) core.Car {
	switch {
	case c.Jump && car.JumpHeld:
		car.Velocity = core.Add(car.Velocity, core.Scale(car.Up(), p.tuning.JumpHoldAccel*dt))
	case c.Jump && car.Jumped && !car.DoubleJumped:
		car.DoubleJumped = true
		stick := core.Vec3{X: -c.Pitch, Y: c.Yaw}
		if core.Norm(stick) < 0.1 {
			car.Velocity = core.Add(car.Velocity, core.Scale(car.Up(), p.tuning.JumpImpulse))
		} else {
			dir := core.Normalize(core.Add(
				core.Scale(core.Normalize(core.Ground(car.Forward())), stick.X),
				core.Scale(core.Normalize(core.Ground(car.Left())), stick.Y),
			))
			car.Velocity = core.Add(car.Velocity, core.Scale(dir, p.tuning.DodgeImpulse))
			car.AngularVelocity = core.Add(car.AngularVelocity, car.Orientation.Apply(core.Vec3{X: stick.Y * 5, Y: stick.X * 5}))
		}
	}
	if !c.Jump {
		car.JumpHeld = false
	}

	local := core.Vec3{X: c.Roll, Y: -c.Pitch, Z: c.Yaw}
	torque := car.Orientation.Apply(core.Scale(local, p.tuning.AirTorque))
	omega := core.Add(car.AngularVelocity, core.Scale(torque, dt))
	omega = core.ClampSpeed(omega, p.tuning.MaxAngularSpeed)
	car.AngularVelocity = omega
	car.Orientation = core.AxisAngle(core.Scale(omega, dt)).Mul(car.Orientation)

	car.Velocity.Z += p.tuning.Gravity * dt
	if c.Boost && car.Boost > 0 {
		car.Velocity = core.Add(car.Velocity, core.Scale(car.Forward(), p.tuning.BoostAccel*dt))
	}
	return car
}

// land snaps an airborne car onto the floor once its wheels reach it.
func (p *Physics) land(car core.Car) core.Car {
	if car.OnGround || car.Position.Z > core.CarRestHeight || car.Velocity.Z > 0 {
		if car.OnGround {
			car.Position.Z = core.CarRestHeight
		}
		return car
	}
	heading := core.Normalize(core.Ground(car.Forward()))
	if core.Norm(heading) == 0 {
		heading = core.Normalize(core.Ground(core.Scale(car.Up(), -1)))
	}
	car.Orientation = core.LookAt(heading, core.Up)
	car.Position.Z = core.CarRestHeight
	car.Velocity = core.Scale(heading, core.Dot(car.Velocity, heading))
	car.AngularVelocity = core.Vec3{}
	car.OnGround = true
	car.Jumped = false
	car.DoubleJumped = false
	car.JumpHeld = false
	return car
}

var _ Stepper = (*Physics)(nil)
