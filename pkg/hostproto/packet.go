package hostproto

// Vector is a 3D vector on the wire.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotator is an orientation on the wire, in radians.
type Rotator struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Physics is a body's physical state on the wire.
type Physics struct {
	Location        Vector  `json:"location"`
	Rotation        Rotator `json:"rotation"`
	Velocity        Vector  `json:"velocity"`
	AngularVelocity Vector  `json:"angularVelocity"`
}

// CarInfo is one car in a tick packet. Index is the car's identifier.
type CarInfo struct {
	Index           int     `json:"index"`
	Name            string  `json:"name"`
	Team            int     `json:"team"`
	Physics         Physics `json:"physics"`
	Boost           float64 `json:"boost"`
	HasWheelContact bool    `json:"hasWheelContact"`
	Jumped          bool    `json:"jumped"`
	DoubleJumped    bool    `json:"doubleJumped"`
	IsDemolished    bool    `json:"isDemolished"`
}

// Touch is the latest ball contact.
type Touch struct {
	PlayerIndex int     `json:"playerIndex"`
	Team        int     `json:"team"`
	TimeSeconds float64 `json:"timeSeconds"`
}

// BallInfo is the ball in a tick packet.
type BallInfo struct {
	Physics     Physics `json:"physics"`
	LatestTouch Touch   `json:"latestTouch"`
}

// PadState is the live state of one boost pad, in the order given by FieldInfo.
type PadState struct {
	IsActive bool    `json:"isActive"`
	Timer    float64 `json:"timer"`
}

// GameInfo carries the match-phase flags.
type GameInfo struct {
	SecondsElapsed  float64 `json:"secondsElapsed"`
	IsKickoffPause  bool    `json:"isKickoffPause"`
	IsRoundActive   bool    `json:"isRoundActive"`
	IsMatchEnded    bool    `json:"isMatchEnded"`
	GameTimeRemains float64 `json:"gameTimeRemaining"`
}

// Packet is the per-tick game state sent by the host.
type Packet struct {
	Game      GameInfo   `json:"game"`
	Ball      BallInfo   `json:"ball"`
	Cars      []CarInfo  `json:"cars"`
	BoostPads []PadState `json:"boostPads"`
}

// PadInfo is the static description of a boost pad.
type PadInfo struct {
	Location    Vector `json:"location"`
	IsFullBoost bool   `json:"isFullBoost"`
}

// FieldInfo is sent once before the first tick.
type FieldInfo struct {
	BoostPads []PadInfo `json:"boostPads"`
	// Controlled lists the car indices this process answers for.
	Controlled []int `json:"controlled"`
	Team       int   `json:"team"`
}

// ControlsReply maps each controlled car index to its inputs.
type ControlsReply map[int]ControllerState

// ControllerState is the inputs for one car on the wire.
type ControllerState struct {
	Throttle  float64 `json:"throttle"`
	Steer     float64 `json:"steer"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
	Roll      float64 `json:"roll"`
	Jump      bool    `json:"jump"`
	Boost     bool    `json:"boost"`
	Handbrake bool    `json:"handbrake"`
}
