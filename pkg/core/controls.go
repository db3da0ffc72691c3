// pkg/core/controls.go
package core

// Controls is the input record answered to the host each tick. The zero value is neutral.
type Controls struct {
	Throttle  float64 `json:"throttle"`
	Steer     float64 `json:"steer"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
	Roll      float64 `json:"roll"`
	Jump      bool    `json:"jump"`
	Boost     bool    `json:"boost"`
	Handbrake bool    `json:"handbrake"`
}

// Clamped returns a copy with every analog axis inside [-1, 1].
func (c Controls) Clamped() Controls {
	c.Throttle = Clamp11(c.Throttle)
	c.Steer = Clamp11(c.Steer)
	c.Pitch = Clamp11(c.Pitch)
	c.Yaw = Clamp11(c.Yaw)
	c.Roll = Clamp11(c.Roll)
	return c
}
