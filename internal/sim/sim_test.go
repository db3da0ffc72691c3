package sim

import (
	"testing"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_CollideFloor(t *testing.T) {
	a := StandardArena()

	c := a.Collide(core.Vec(0, 0, 40), 50)
	require.True(t, c.Hit)
	assert.Equal(t, core.Vec(0, 0, 1), c.Normal)
	assert.InDelta(t, 10, c.Depth, 1e-9)
	assert.InDelta(t, 0, c.Point.Z, 1e-9)
}

func TestArena_NoContactInOpenAir(t *testing.T) {
	a := StandardArena()
	assert.False(t, a.Collide(core.Vec(0, 0, 1000), 100).Hit)
}

func TestArena_SideWall(t *testing.T) {
	a := StandardArena()

	c := a.Collide(core.Vec(4050, 0, 500), 92.75)
	require.True(t, c.Hit)
	assert.Equal(t, core.Vec(-1, 0, 0), c.Normal)
}

func TestArena_GoalMouthIsOpen(t *testing.T) {
	a := StandardArena()

	// inside the goal mouth the back wall does not exist
	assert.False(t, a.Collide(core.Vec(0, 5100, 300), 92.75).Hit)
	// beside the goal it does
	assert.True(t, a.Collide(core.Vec(2000, 5100, 300), 92.75).Hit)
}

func TestBounce(t *testing.T) {
	up := core.Vec(0, 0, 1)

	v := Bounce(core.Vec(0, 0, -1000), up, 0.6, 0.285, 25)
	assert.InDelta(t, 600, v.Z, 1e-9)

	// slow impacts come to rest
	v = Bounce(core.Vec(0, 0, -20), up, 0.6, 0.285, 25)
	assert.Equal(t, 0.0, v.Z)

	// separating velocities are untouched
	v = Bounce(core.Vec(100, 0, 50), up, 0.6, 0.285, 25)
	assert.Equal(t, core.Vec(100, 0, 50), v)

	// tangential speed never reverses
	v = Bounce(core.Vec(50, 0, -2000), up, 0.6, 0.285, 25)
	assert.GreaterOrEqual(t, v.X, 0.0)
}

func TestPhysics_StepBallFallsAndBounces(t *testing.T) {
	tun := config.DefaultTuning()
	p := NewPhysics(tun, StandardArena())

	ball := core.Ball{KinematicState: core.KinematicState{Position: core.Vec(0, 0, 500)}}
	minZ := ball.Position.Z
	bounced := false
	for i := 0; i < 240; i++ {
		ball = p.StepBall(ball, 1.0/120)
		if ball.Position.Z < minZ {
			minZ = ball.Position.Z
		}
		if ball.Velocity.Z > 0 {
			bounced = true
		}
	}

	assert.True(t, bounced)
	assert.GreaterOrEqual(t, minZ, tun.Physics.BallRadius-1e-6)
	assert.InDelta(t, 2.0, ball.Time, 1e-9)
}

func TestPhysics_StepCarAcceleratesOnGround(t *testing.T) {
	p := NewPhysics(config.DefaultTuning(), StandardArena())

	car := core.Car{
		KinematicState: core.KinematicState{Position: core.Vec(0, 0, core.CarRestHeight), Orientation: core.Identity},
		OnGround:       true,
		Boost:          50,
	}
	for i := 0; i < 60; i++ {
		car = p.StepCar(car, core.Controls{Throttle: 1, Boost: true}, 1.0/60)
	}

	assert.True(t, car.OnGround)
	assert.Greater(t, car.Velocity.X, 1000.0)
	assert.Less(t, car.Boost, 50.0)
	assert.InDelta(t, core.CarRestHeight, car.Position.Z, 1e-9)
}

func TestPhysics_JumpAndLand(t *testing.T) {
	p := NewPhysics(config.DefaultTuning(), StandardArena())

	car := core.Car{
		KinematicState: core.KinematicState{Position: core.Vec(0, 0, core.CarRestHeight), Orientation: core.Identity},
		OnGround:       true,
	}
	car = p.StepCar(car, core.Controls{Jump: true}, 1.0/60)
	require.False(t, car.OnGround)
	require.True(t, car.Jumped)

	landed := false
	for i := 0; i < 300 && !landed; i++ {
		car = p.StepCar(car, core.Controls{}, 1.0/60)
		landed = car.OnGround
	}
	assert.True(t, landed)
	assert.False(t, car.Jumped)
}

func TestPhysics_SecondJumpNeedsRelease(t *testing.T) {
	p := NewPhysics(config.DefaultTuning(), StandardArena())

	car := core.Car{
		KinematicState: core.KinematicState{Position: core.Vec(0, 0, core.CarRestHeight), Orientation: core.Identity},
		OnGround:       true,
	}
	car = p.StepCar(car, core.Controls{Jump: true}, 1.0/60)
	car = p.StepCar(car, core.Controls{Jump: true}, 1.0/60)
	assert.False(t, car.DoubleJumped, "holding the first jump")

	car = p.StepCar(car, core.Controls{}, 1.0/60)
	car = p.StepCar(car, core.Controls{Jump: true, Pitch: -1}, 1.0/60)
	assert.True(t, car.DoubleJumped)
	assert.Greater(t, car.Velocity.X, 400.0, "forward dodge")
}
