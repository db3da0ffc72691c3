package core

import "time"

// Match describes one recorded session of the bot process.
type Match struct {
	ID        uint
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
	Team      int
	CarIDs    []int
	Tags      map[string]any
}

// Decision is emitted every time a car starts a new play.
type Decision struct {
	ID       uint
	GameTime float64
	Time     time.Time
	CarID    int
	Team     int
	Play     string
	Reason   string
	Stance   string
	Captain  bool
	Context  map[string]any
}

// StanceChange is emitted when a car adopts a new stance.
type StanceChange struct {
	ID       uint
	GameTime float64
	Time     time.Time
	CarID    int
	From     string
	To       string
	Source   string // "captain", "message", "reset"
}

// TrajectoryRecord is a sampled ball prediction taken when a strike plans its intercept.
type TrajectoryRecord struct {
	ID            uint
	GameTime      float64
	CarID         int
	Play          string
	InterceptTime float64
	Feasible      bool
	Points        []Vec3
	Times         []float64
}

// TickPerformance is one tick's timing sample.
type TickPerformance struct {
	GameTime    float64
	Time        time.Time
	CarID       int
	Duration    time.Duration
	Play        string
	Predictions int
}
