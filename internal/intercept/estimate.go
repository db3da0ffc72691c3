package intercept

import (
	"math"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/sim"
	"github.com/CaptainRL/captain/pkg/core"
)

// TravelEstimator predicts how long a car needs to drive to a point.
type TravelEstimator interface {
	TravelTime(car core.Car, target core.Vec3, backwards bool) float64
}

// Estimator integrates the throttle and boost acceleration curves along the ground
// distance and adds a penalty for the turn needed to face the target.
type Estimator struct {
	physics config.PhysicsTuning
	drive   config.DriveTuning
	tuning  config.InterceptTuning
}

// NewEstimator builds an Estimator from the shared tuning.
func NewEstimator(t config.Tuning) *Estimator {
	return &Estimator{physics: t.Physics, drive: t.Drive, tuning: t.Intercept}
}

// maxSimTime bounds each integration so a stalled car cannot loop forever.
const maxSimTime = 10.0

// TravelTime returns the estimated seconds to reach target. Reversing never uses boost.
func (e *Estimator) TravelTime(car core.Car, target core.Vec3, backwards bool) float64 {
	dd := 1.0
	if backwards {
		dd = -1
	}
	forward := core.Scale(car.Forward(), dd)

	turning := core.AngleBetween(core.Ground(forward), core.GroundDirection(car.Position, target)) *
		e.drive.TurnRadius(car.Speed()) / e.tuning.TurnSpeed
	if turning < e.tuning.MinTurnTime {
		turning = 0
	}

	dist := core.GroundDistance(car.Position, target) - e.tuning.DistanceOffset
	if dist < 0 {
		return turning
	}

	speed := core.Dot(car.Velocity, forward)
	elapsed := 0.0
	reached := false

	if car.Boost > 0 && !backwards {
		boostTime := car.Boost / e.physics.BoostPerSecond
		var traveled float64
		traveled, elapsed, speed, reached = e.simulate(speed, dist, boostTime, true)
		dist -= traveled
	}
	if !reached && dist > 0 && speed < e.physics.ThrottleTopSpeed {
		traveled, t, s, r := e.simulate(speed, dist, maxSimTime, false)
		dist -= traveled
		elapsed += t
		speed = s
		reached = r
	}
	if !reached && dist > 0 {
		if speed <= 0 {
			return math.Inf(1)
		}
		elapsed += dist / speed
	}
	return elapsed*e.tuning.TimeMargin + turning
}

// simulate accelerates from speed until dist is covered or limit seconds pass.
func (e *Estimator) simulate(speed, dist, limit float64, boost bool) (traveled, elapsed, final float64, reached bool) {
	dt := e.tuning.SimStep
	for elapsed < limit && elapsed < maxSimTime {
		accel := sim.ThrottleAccel(e.physics, math.Max(speed, 0))
		if speed < 0 {
			accel = e.physics.BrakeAccel
		}
		if boost {
			accel += e.physics.BoostAccel
		}
		if accel == 0 {
			break
		}
		speed = math.Min(speed+accel*dt, e.physics.CarMaxSpeed)
		traveled += math.Max(speed, 0) * dt
		elapsed += dt
		if traveled >= dist {
			return traveled, elapsed, speed, true
		}
	}
	return traveled, elapsed, speed, false
}

// Alignment measures how well hitting ball from pos sends it toward target:
// 1 when the car, ball and target are collinear in that order, -1 when reversed.
func Alignment(pos, ball, target core.Vec3) float64 {
	return core.Dot(core.GroundDirection(pos, ball), core.GroundDirection(ball, target))
}

var _ TravelEstimator = (*Estimator)(nil)
