// Package v1 contains the v1 export format for recorded matches.
// Time series are packed into arrays to keep the files small.
package v1

// FormatVersion is written into every export.
const FormatVersion = "1"

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion string         `json:"formatVersion"`
	SessionID     string         `json:"sessionId"`
	Team          int            `json:"team"`
	StartedAt     string         `json:"startedAt"`
	EndedAt       string         `json:"endedAt"`
	Duration      float64        `json:"duration"`
	Tags          map[string]any `json:"tags,omitempty"`
	Cars          []Car          `json:"cars"`
}

// Car holds everything recorded for one controlled car.
type Car struct {
	ID int `json:"id"`
	// [gameTime, play, reason, stance, captain]
	Decisions [][]any `json:"decisions"`
	// [gameTime, from, to, source]
	Stances      [][]any      `json:"stances"`
	Trajectories []Trajectory `json:"trajectories"`
	Summary      Summary      `json:"summary"`
}

// Trajectory is a strike's ball forecast. Points are [x, y, z, t].
type Trajectory struct {
	GameTime      float64 `json:"gameTime"`
	Play          string  `json:"play"`
	InterceptTime float64 `json:"interceptTime"`
	Feasible      int     `json:"feasible"`
	// ground distance covered by the points
	Length float64     `json:"length"`
	Points [][]float64 `json:"points"`
}

// Summary aggregates a car's decisions and tick timings.
type Summary struct {
	Plays      map[string]int `json:"plays"`
	Ticks      int            `json:"ticks"`
	MeanTickMs float64        `json:"meanTickMs"`
	MaxTickMs  float64        `json:"maxTickMs"`
}
