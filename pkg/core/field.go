// pkg/core/field.go
package core

// Standard arena dimensions and physical limits in unreal units.
const (
	FieldHalfWidth  = 4096.0
	FieldHalfLength = 5120.0
	FieldHeight     = 2044.0
	GoalHalfWidth   = 893.0
	GoalHeight      = 642.0

	BallRadius   = 92.75
	CarMaxSpeed  = 2300.0
	BallMaxSpeed = 6000.0
	Gravity      = -650.0

	// Height of a resting car's center above the floor.
	CarRestHeight = 17.0
	// Height of a resting ball's center above the floor.
	BallRestHeight = BallRadius
)

// Goals returns the blue (team 0) and orange (team 1) nets.
func Goals() [2]Goal {
	return [2]Goal{
		{Team: 0, Center: Vec3{Y: -FieldHalfLength}},
		{Team: 1, Center: Vec3{Y: FieldHalfLength}},
	}
}

// OwnGoal is the net a team defends.
func OwnGoal(team int) Goal { return Goals()[team&1] }

// OpponentGoal is the net a team attacks.
func OpponentGoal(team int) Goal { return Goals()[(team+1)&1] }
