package config

import (
	"fmt"
	"math"

	"github.com/spf13/viper"
)

// CurveSegment is one linear piece of the speed-dependent turning curvature:
// curvature(v) = Base + Slope*v for From <= v < To.
type CurveSegment struct {
	From  float64 `json:"from" mapstructure:"from"`
	To    float64 `json:"to" mapstructure:"to"`
	Base  float64 `json:"base" mapstructure:"base"`
	Slope float64 `json:"slope" mapstructure:"slope"`
}

// PhysicsTuning mirrors the game's physical constants used by the simulations.
type PhysicsTuning struct {
	Gravity          float64 `mapstructure:"gravity"`
	BallMaxSpeed     float64 `mapstructure:"ballMaxSpeed"`
	CarMaxSpeed      float64 `mapstructure:"carMaxSpeed"`
	BallRadius       float64 `mapstructure:"ballRadius"`
	BallRestitution  float64 `mapstructure:"ballRestitution"`
	BallFriction     float64 `mapstructure:"ballFriction"`
	RestingSpeed     float64 `mapstructure:"restingSpeed"`
	ThrottleAccel    float64 `mapstructure:"throttleAccel"`
	ThrottleTopSpeed float64 `mapstructure:"throttleTopSpeed"`
	CoastAccel       float64 `mapstructure:"coastAccel"`
	BrakeAccel       float64 `mapstructure:"brakeAccel"`
	BoostAccel       float64 `mapstructure:"boostAccel"`
	BoostPerSecond   float64 `mapstructure:"boostPerSecond"`
	JumpImpulse      float64 `mapstructure:"jumpImpulse"`
	JumpHoldAccel    float64 `mapstructure:"jumpHoldAccel"`
	DodgeImpulse     float64 `mapstructure:"dodgeImpulse"`
	AirTorque        float64 `mapstructure:"airTorque"`
	MaxAngularSpeed  float64 `mapstructure:"maxAngularSpeed"`
}

// PredictTuning controls the ball forecast.
type PredictTuning struct {
	Step    float64 `mapstructure:"step"`
	Horizon float64 `mapstructure:"horizon"`
}

// DriveTuning controls the plain drive/steer controller.
type DriveTuning struct {
	SteerGain           float64        `mapstructure:"steerGain"`
	HandbrakeAngle      float64        `mapstructure:"handbrakeAngle"`
	HandbrakeAlignment  float64        `mapstructure:"handbrakeAlignment"`
	BoostMinTargetSpeed float64        `mapstructure:"boostMinTargetSpeed"`
	BoostMaxSpeed       float64        `mapstructure:"boostMaxSpeed"`
	BoostMinDiff        float64        `mapstructure:"boostMinDiff"`
	BoostMaxAngle       float64        `mapstructure:"boostMaxAngle"`
	BrakeMargin         float64        `mapstructure:"brakeMargin"`
	CoastMargin         float64        `mapstructure:"coastMargin"`
	FinishDistance      float64        `mapstructure:"finishDistance"`
	StopSpeed           float64        `mapstructure:"stopSpeed"`
	WallSeamHeight      float64        `mapstructure:"wallSeamHeight"`
	Curvature           []CurveSegment `mapstructure:"curvature"`
}

// TravelTuning controls fancy driving (dodges, wavedashes and half-flips).
type TravelTuning struct {
	FinishDistance   float64 `mapstructure:"finishDistance"`
	MinFancySpeed    float64 `mapstructure:"minFancySpeed"`
	MaxFancySpeed    float64 `mapstructure:"maxFancySpeed"`
	MaxFancyAngle    float64 `mapstructure:"maxFancyAngle"`
	DodgeTime        float64 `mapstructure:"dodgeTime"`
	WavedashTime     float64 `mapstructure:"wavedashTime"`
	HalfFlipTime     float64 `mapstructure:"halfFlipTime"`
	HalfFlipMinSpeed float64 `mapstructure:"halfFlipMinSpeed"`
}

// ArriveTuning controls the arrival controller's target shift.
type ArriveTuning struct {
	LerpT          float64 `mapstructure:"lerpT"`
	ShiftSpeedGain float64 `mapstructure:"shiftSpeedGain"`
	TimeShiftGain  float64 `mapstructure:"timeShiftGain"`
	FancySpeedGap  float64 `mapstructure:"fancySpeedGap"`
	FancyMaxBoost  float64 `mapstructure:"fancyMaxBoost"`
}

// InterceptTuning controls the travel-time estimate.
type InterceptTuning struct {
	SimStep          float64 `mapstructure:"simStep"`
	DistanceOffset   float64 `mapstructure:"distanceOffset"`
	TurnSpeed        float64 `mapstructure:"turnSpeed"`
	MinTurnTime      float64 `mapstructure:"minTurnTime"`
	TimeMargin       float64 `mapstructure:"timeMargin"`
	BackwardsAdvance float64 `mapstructure:"backwardsAdvance"`
}

// StrikeTuning controls re-planning of every strike variant.
type StrikeTuning struct {
	UpdateInterval    float64 `mapstructure:"updateInterval"`
	StopUpdating      float64 `mapstructure:"stopUpdating"`
	MaxAdditionalTime float64 `mapstructure:"maxAdditionalTime"`
	AirborneAbortTime float64 `mapstructure:"airborneAbortTime"`
	MinThrottleSpeed  float64 `mapstructure:"minThrottleSpeed"`
	MaxDistance       float64 `mapstructure:"maxDistance"`
}

// DodgeTuning controls DodgeStrike, CloseStrike, SetupStrike and BumpStrike.
type DodgeTuning struct {
	MaxHeight           float64 `mapstructure:"maxHeight"`
	JumpBase            float64 `mapstructure:"jumpBase"`
	JumpHeightOffset    float64 `mapstructure:"jumpHeightOffset"`
	JumpHeightRange     float64 `mapstructure:"jumpHeightRange"`
	MaxJumpExtra        float64 `mapstructure:"maxJumpExtra"`
	Distance            float64 `mapstructure:"distance"`
	ShiftPerJumpSecond  float64 `mapstructure:"shiftPerJumpSecond"`
	TriggerWindow       float64 `mapstructure:"triggerWindow"`
	MaxSpeedDiff        float64 `mapstructure:"maxSpeedDiff"`
	MinAlignment        float64 `mapstructure:"minAlignment"`
	SlowSpeed           float64 `mapstructure:"slowSpeed"`
	CloseJumpMultiplier float64 `mapstructure:"closeJumpMultiplier"`
	BumpMaxHeight       float64 `mapstructure:"bumpMaxHeight"`
	BumpDistance        float64 `mapstructure:"bumpDistance"`
	BumpWallClearance   float64 `mapstructure:"bumpWallClearance"`
}

// AerialTuning controls AerialStrike and DoubleAerialStrike.
type AerialTuning struct {
	MinHeight        float64 `mapstructure:"minHeight"`
	MaxHeight        float64 `mapstructure:"maxHeight"`
	MinLead          float64 `mapstructure:"minLead"`
	MaxLead          float64 `mapstructure:"maxLead"`
	MinBoost         float64 `mapstructure:"minBoost"`
	MaxDistanceError float64 `mapstructure:"maxDistanceError"`
	SimStep          float64 `mapstructure:"simStep"`
	FinishSlack      float64 `mapstructure:"finishSlack"`
	JumpTime         float64 `mapstructure:"jumpTime"`
	BoostAngle       float64 `mapstructure:"boostAngle"`
	Offset           float64 `mapstructure:"offset"`
	DoubleMinHeight  float64 `mapstructure:"doubleMinHeight"`
	DoubleStride     int     `mapstructure:"doubleStride"`
	DoubleOffset     float64 `mapstructure:"doubleOffset"`
	DoubleHitRadius  float64 `mapstructure:"doubleHitRadius"`
}

// DribbleTuning controls DribbleStrike.
type DribbleTuning struct {
	MinHeight        float64 `mapstructure:"minHeight"`
	MaxHeight        float64 `mapstructure:"maxHeight"`
	MaxOffset        float64 `mapstructure:"maxOffset"`
	FlickDistance    float64 `mapstructure:"flickDistance"`
	OpponentDistance float64 `mapstructure:"opponentDistance"`
	LostDistance     float64 `mapstructure:"lostDistance"`
	FlickJump        float64 `mapstructure:"flickJump"`
}

// DefenseTuning controls Defense and GoToNet.
type DefenseTuning struct {
	Dwell             float64 `mapstructure:"dwell"`
	NetDwell          float64 `mapstructure:"netDwell"`
	BoostRadius       float64 `mapstructure:"boostRadius"`
	BoostAngle        float64 `mapstructure:"boostAngle"`
	NearNet           float64 `mapstructure:"nearNet"`
	SideShiftNear     float64 `mapstructure:"sideShiftNear"`
	SideShiftFar      float64 `mapstructure:"sideShiftFar"`
	FinishNear        float64 `mapstructure:"finishNear"`
	FinishFar         float64 `mapstructure:"finishFar"`
	FaceAngle         float64 `mapstructure:"faceAngle"`
	SaveBoostDistance float64 `mapstructure:"saveBoostDistance"`
	MarginX           float64 `mapstructure:"marginX"`
	MarginY           float64 `mapstructure:"marginY"`
	ShadowDistance    float64 `mapstructure:"shadowDistance"`
	RelaxedDistance   float64 `mapstructure:"relaxedDistance"`
	NetFinish         float64 `mapstructure:"netFinish"`
	NetSpeed          float64 `mapstructure:"netSpeed"`
	NetFaceAngle      float64 `mapstructure:"netFaceAngle"`
}

// RefuelTuning controls pad selection.
type RefuelTuning struct {
	AvailableFactor float64 `mapstructure:"availableFactor"`
	SlowdownFactor  float64 `mapstructure:"slowdownFactor"`
	NearSpeed       float64 `mapstructure:"nearSpeed"`
	FullBoost       float64 `mapstructure:"fullBoost"`
	FinishDistance  float64 `mapstructure:"finishDistance"`
	CriticalBoost   float64 `mapstructure:"criticalBoost"`
}

// KickoffTuning controls the kickoff phase machines.
type KickoffTuning struct {
	SpeedFlipMinX      float64 `mapstructure:"speedFlipMinX"`
	CenterX            float64 `mapstructure:"centerX"`
	CenterDodgeSpeed   float64 `mapstructure:"centerDodgeSpeed"`
	DodgeSpeed         float64 `mapstructure:"dodgeSpeed"`
	FinalDodgeFactor   float64 `mapstructure:"finalDodgeFactor"`
	SpeedFlipSpeed     float64 `mapstructure:"speedFlipSpeed"`
	FinalDodgeDistance float64 `mapstructure:"finalDodgeDistance"`
	Timeout            float64 `mapstructure:"timeout"`
	CenterTolerance    float64 `mapstructure:"centerTolerance"`
	TieTolerance       float64 `mapstructure:"tieTolerance"`
}

// RecoveryTuning controls the landing simulation.
type RecoveryTuning struct {
	Step        float64 `mapstructure:"step"`
	Budget      float64 `mapstructure:"budget"`
	Radius      float64 `mapstructure:"radius"`
	IgnoreSteps int     `mapstructure:"ignoreSteps"`
}

// TurnTuning is the gain set of the aerial orientation controller.
type TurnTuning struct {
	Proportional float64 `mapstructure:"proportional"`
	Derivative   float64 `mapstructure:"derivative"`
	Tolerance    float64 `mapstructure:"tolerance"`
}

// StanceTuning controls the captain's policy and the selector's classifications.
type StanceTuning struct {
	AttackAlign     float64 `mapstructure:"attackAlign"`
	LowBoost        float64 `mapstructure:"lowBoost"`
	ClearDistance   float64 `mapstructure:"clearDistance"`
	NearOwnGoal     float64 `mapstructure:"nearOwnGoal"`
	PreemptiveLead  float64 `mapstructure:"preemptiveLead"`
	DangerDistance  float64 `mapstructure:"dangerDistance"`
	OpponentReach   float64 `mapstructure:"opponentReach"`
	OpponentLead    float64 `mapstructure:"opponentLead"`
	CloseStrikeDist float64 `mapstructure:"closeStrikeDist"`
	CloseStrikeX    float64 `mapstructure:"closeStrikeX"`
	SetupAlign      float64 `mapstructure:"setupAlign"`
	SetupMinDY      float64 `mapstructure:"setupMinDY"`
	SetupMaxTime    float64 `mapstructure:"setupMaxTime"`
}

// CollisionTuning controls incoming-collision avoidance.
type CollisionTuning struct {
	Enabled       bool    `mapstructure:"enabled"`
	Horizon       float64 `mapstructure:"horizon"`
	Step          float64 `mapstructure:"step"`
	Radius        float64 `mapstructure:"radius"`
	EnemyMinSpeed float64 `mapstructure:"enemyMinSpeed"`
	YieldTime     float64 `mapstructure:"yieldTime"`
}

// Tuning groups every tunable threshold of the decision and control layers.
type Tuning struct {
	Physics   PhysicsTuning   `mapstructure:"physics"`
	Predict   PredictTuning   `mapstructure:"predict"`
	Drive     DriveTuning     `mapstructure:"drive"`
	Travel    TravelTuning    `mapstructure:"travel"`
	Arrive    ArriveTuning    `mapstructure:"arrive"`
	Intercept InterceptTuning `mapstructure:"intercept"`
	Strike    StrikeTuning    `mapstructure:"strike"`
	Dodge     DodgeTuning     `mapstructure:"dodge"`
	Aerial    AerialTuning    `mapstructure:"aerial"`
	Dribble   DribbleTuning   `mapstructure:"dribble"`
	Defense   DefenseTuning   `mapstructure:"defense"`
	Refuel    RefuelTuning    `mapstructure:"refuel"`
	Kickoff   KickoffTuning   `mapstructure:"kickoff"`
	Recovery  RecoveryTuning  `mapstructure:"recovery"`
	Turn      TurnTuning      `mapstructure:"turn"`
	Stance    StanceTuning    `mapstructure:"stance"`
	Collision CollisionTuning `mapstructure:"collision"`
}

// DefaultTuning returns the thresholds matching standard game physics.
func DefaultTuning() Tuning {
	return Tuning{
		Physics: PhysicsTuning{
			Gravity:          -650,
			BallMaxSpeed:     6000,
			CarMaxSpeed:      2300,
			BallRadius:       92.75,
			BallRestitution:  0.6,
			BallFriction:     0.285,
			RestingSpeed:     25,
			ThrottleAccel:    1600,
			ThrottleTopSpeed: 1410,
			CoastAccel:       525,
			BrakeAccel:       3500,
			BoostAccel:       991.667,
			BoostPerSecond:   33.333,
			JumpImpulse:      291.667,
			JumpHoldAccel:    1458.333,
			DodgeImpulse:     500,
			AirTorque:        12.46,
			MaxAngularSpeed:  5.5,
		},
		Predict: PredictTuning{Step: 1.0 / 120, Horizon: 6},
		Drive: DriveTuning{
			SteerGain:           2.22,
			HandbrakeAngle:      1.5,
			HandbrakeAlignment:  0.85,
			BoostMinTargetSpeed: 1400,
			BoostMaxSpeed:       2250,
			BoostMinDiff:        50,
			BoostMaxAngle:       0.3,
			BrakeMargin:         400,
			CoastMargin:         100,
			FinishDistance:      100,
			StopSpeed:           100,
			WallSeamHeight:      200,
			Curvature: []CurveSegment{
				{From: 0, To: 500, Base: 0.006900, Slope: -5.84e-6},
				{From: 500, To: 1000, Base: 0.005610, Slope: -3.26e-6},
				{From: 1000, To: 1500, Base: 0.004300, Slope: -1.95e-6},
				{From: 1500, To: 1750, Base: 0.003025, Slope: -1.1e-6},
				{From: 1750, To: 2500, Base: 0.001800, Slope: -4e-7},
			},
		},
		Travel: TravelTuning{
			FinishDistance:   500,
			MinFancySpeed:    1000,
			MaxFancySpeed:    2000,
			MaxFancyAngle:    0.2,
			DodgeTime:        1.3,
			WavedashTime:     1.9,
			HalfFlipTime:     1.5,
			HalfFlipMinSpeed: 500,
		},
		Arrive: ArriveTuning{
			LerpT:          0.56,
			ShiftSpeedGain: 1.6,
			TimeShiftGain:  0.7,
			FancySpeedGap:  600,
			FancyMaxBoost:  20,
		},
		Intercept: InterceptTuning{
			SimStep:          1.0 / 60,
			DistanceOffset:   200,
			TurnSpeed:        1800,
			MinTurnTime:      0.5,
			TimeMargin:       1.05,
			BackwardsAdvance: 0.1,
		},
		Strike: StrikeTuning{
			UpdateInterval:    0.2,
			StopUpdating:      0.1,
			MaxAdditionalTime: 0.4,
			AirborneAbortTime: 1.0,
			MinThrottleSpeed:  300,
			MaxDistance:       6000,
		},
		Dodge: DodgeTuning{
			MaxHeight:           300,
			JumpBase:            0.05,
			JumpHeightOffset:    92,
			JumpHeightRange:     500,
			MaxJumpExtra:        1.5,
			Distance:            165,
			ShiftPerJumpSecond:  1000,
			TriggerWindow:       0.13,
			MaxSpeedDiff:        1000,
			MinAlignment:        0.95,
			SlowSpeed:           500,
			CloseJumpMultiplier: 1.1,
			BumpMaxHeight:       200,
			BumpDistance:        130,
			BumpWallClearance:   250,
		},
		Aerial: AerialTuning{
			MinHeight:        800,
			MaxHeight:        1800,
			MinLead:          1.3,
			MaxLead:          2.5,
			MinBoost:         40,
			MaxDistanceError: 50,
			SimStep:          1.0 / 120,
			FinishSlack:      0.3,
			JumpTime:         0.2,
			BoostAngle:       0.5,
			Offset:           110,
			DoubleMinHeight:  500,
			DoubleStride:     5,
			DoubleOffset:     80,
			DoubleHitRadius:  50,
		},
		Dribble: DribbleTuning{
			MinHeight:        110,
			MaxHeight:        250,
			MaxOffset:        120,
			FlickDistance:    2500,
			OpponentDistance: 1000,
			LostDistance:     400,
			FlickJump:        0.15,
		},
		Defense: DefenseTuning{
			Dwell:             0.5,
			NetDwell:          0.2,
			BoostRadius:       1200,
			BoostAngle:        2.0,
			NearNet:           3000,
			SideShiftNear:     400,
			SideShiftFar:      1800,
			FinishNear:        800,
			FinishFar:         1500,
			FaceAngle:         0.3,
			SaveBoostDistance: 4000,
			MarginX:           500,
			MarginY:           500,
			ShadowDistance:    4000,
			RelaxedDistance:   6000,
			NetFinish:         500,
			NetSpeed:          1100,
			NetFaceAngle:      0.5,
		},
		Refuel: RefuelTuning{
			AvailableFactor: 0.8,
			SlowdownFactor:  0.2,
			NearSpeed:       1400,
			FullBoost:       99,
			FinishDistance:  100,
			CriticalBoost:   12,
		},
		Kickoff: KickoffTuning{
			SpeedFlipMinX:      1000,
			CenterX:            100,
			CenterDodgeSpeed:   1550,
			DodgeSpeed:         1400,
			FinalDodgeFactor:   0.3,
			SpeedFlipSpeed:     800,
			FinalDodgeDistance: 500,
			Timeout:            5,
			CenterTolerance:    1,
			TieTolerance:       1,
		},
		Recovery: RecoveryTuning{Step: 1.0 / 60, Budget: 0.8, Radius: 50, IgnoreSteps: 20},
		Turn:     TurnTuning{Proportional: 4.0, Derivative: 0.8, Tolerance: 0.1},
		Stance: StanceTuning{
			AttackAlign:     0,
			LowBoost:        30,
			ClearDistance:   6000,
			NearOwnGoal:     2000,
			PreemptiveLead:  1.0,
			DangerDistance:  2500,
			OpponentReach:   1000,
			OpponentLead:    0.5,
			CloseStrikeDist: 4000,
			CloseStrikeX:    2000,
			SetupAlign:      -0.3,
			SetupMinDY:      3000,
			SetupMaxTime:    4.0,
		},
		Collision: CollisionTuning{
			Enabled:       true,
			Horizon:       0.5,
			Step:          1.0 / 30,
			Radius:        180,
			EnemyMinSpeed: 1500,
			YieldTime:     0.3,
		},
	}
}

// GetTuning returns DefaultTuning overlaid with any "tuning" keys from the config file.
func GetTuning() (Tuning, error) {
	t := DefaultTuning()
	if !viper.IsSet("tuning") {
		return t, nil
	}
	if err := viper.UnmarshalKey("tuning", &t); err != nil {
		return DefaultTuning(), fmt.Errorf("decoding tuning: %w", err)
	}
	return t, nil
}

// CurvatureAt returns the inverse turning radius at the given forward speed.
func (d DriveTuning) CurvatureAt(speed float64) float64 {
	speed = math.Abs(speed)
	for _, s := range d.Curvature {
		if speed >= s.From && speed < s.To {
			return s.Base + s.Slope*speed
		}
	}
	return 0
}

// TurnRadius returns the car's minimum turning radius at the given speed.
func (d DriveTuning) TurnRadius(speed float64) float64 {
	if speed == 0 {
		return 0
	}
	c := d.CurvatureAt(speed)
	if c == 0 {
		return 0
	}
	return 1 / c
}
