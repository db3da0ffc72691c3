// pkg/core/state.go
package core

// KinematicState is the physical state of a car or ball at one instant.
type KinematicState struct {
	Position        Vec3    `json:"position"`
	Velocity        Vec3    `json:"velocity"`
	AngularVelocity Vec3    `json:"angularVelocity"`
	Orientation     Mat3    `json:"orientation"`
	Time            float64 `json:"time"`
}

// Speed is the magnitude of the velocity.
func (k KinematicState) Speed() float64 { return Norm(k.Velocity) }

// Ball is the ball's kinematic state.
type Ball struct {
	KinematicState
}

// Car is one car as seen in a single tick.
type Car struct {
	KinematicState
	ID           int     `json:"id"`
	Team         int     `json:"team"`
	Name         string  `json:"name"`
	Boost        float64 `json:"boost"`
	OnGround     bool    `json:"onGround"`
	Jumped       bool    `json:"jumped"`
	DoubleJumped bool    `json:"doubleJumped"`
	Demolished   bool    `json:"demolished"`

	// JumpHeld is only tracked by forward simulations: the first jump's button is
	// still down, so pressing jump again is not yet a second jump.
	JumpHeld bool `json:"-"`
}

func (c Car) Forward() Vec3 { return c.Orientation.Forward() }
func (c Car) Left() Vec3    { return c.Orientation.Left() }
func (c Car) Up() Vec3      { return c.Orientation.Up() }

// ForwardSpeed is the velocity component along the car's nose.
func (c Car) ForwardSpeed() float64 { return Dot(c.Velocity, c.Forward()) }

// Local expresses a world point relative to the car in body coordinates.
func (c Car) Local(p Vec3) Vec3 { return c.Orientation.Local(Sub(p, c.Position)) }

// BoostPad is a pickup on the field floor.
type BoostPad struct {
	ID       int     `json:"id"`
	Position Vec3    `json:"position"`
	Large    bool    `json:"large"`
	Active   bool    `json:"active"`
	Timer    float64 `json:"timer"` // seconds until respawn when inactive
}

// Goal is the net owned by a team.
type Goal struct {
	Team   int  `json:"team"`
	Center Vec3 `json:"center"`
}

// Touch records the latest ball contact.
type Touch struct {
	CarID int     `json:"carId"`
	Team  int     `json:"team"`
	Time  float64 `json:"time"`
}
