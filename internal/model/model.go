package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Match{},
	&Decision{},
	&StanceChange{},
	&Trajectory{},
	&TickSample{},
}

////////////////////////
// MATCH
////////////////////////

// Match is one recorded session of the bot process, from :FIELD: to :MATCH:END:.
type Match struct {
	gorm.Model
	SessionID string         `json:"sessionId" gorm:"size:36;uniqueIndex"`
	StartedAt time.Time      `json:"startedAt"`
	EndedAt   time.Time      `json:"endedAt"`
	Team      int            `json:"team"`
	CarIDs    datatypes.JSON `json:"carIds"`
	Tags      datatypes.JSON `json:"tags"`
}

func (*Match) TableName() string {
	return "matches"
}

////////////////////////
// AGENT EVENTS
////////////////////////

// Decision is written every time a car starts a new play.
type Decision struct {
	ID       uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time      `json:"time"`
	MatchID  uint           `json:"matchId" gorm:"index:idx_decision_match_id"`
	Match    Match          `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	GameTime float64        `json:"gameTime" gorm:"index:idx_decision_game_time"`
	CarID    int            `json:"carId" gorm:"index:idx_decision_car_id"`
	Team     int            `json:"team"`
	Play     string         `json:"play" gorm:"size:64"`
	Reason   string         `json:"reason" gorm:"size:255"`
	Stance   string         `json:"stance" gorm:"size:32"`
	Captain  bool           `json:"captain"`
	Context  datatypes.JSON `json:"context"`
}

func (*Decision) TableName() string {
	return "decisions"
}

// StanceChange records a car adopting a new stance and where it came from.
type StanceChange struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time"`
	MatchID  uint      `json:"matchId" gorm:"index:idx_stance_change_match_id"`
	Match    Match     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	GameTime float64   `json:"gameTime"`
	CarID    int       `json:"carId" gorm:"index:idx_stance_change_car_id"`
	From     string    `json:"from" gorm:"size:32"`
	To       string    `json:"to" gorm:"size:32"`
	Source   string    `json:"source" gorm:"size:16"`
}

func (*StanceChange) TableName() string {
	return "stance_changes"
}

// Trajectory is the ball forecast a strike planned against. Path is a LineStringZM
// where M carries the game time of each sample.
type Trajectory struct {
	ID            uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID       uint          `json:"matchId" gorm:"index:idx_trajectory_match_id"`
	Match         Match         `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	GameTime      float64       `json:"gameTime"`
	CarID         int           `json:"carId"`
	Play          string        `json:"play" gorm:"size:64"`
	InterceptTime float64       `json:"interceptTime"`
	Feasible      bool          `json:"feasible"`
	Path          geom.Geometry `json:"path" gorm:"type:geometry"`
}

func (*Trajectory) TableName() string {
	return "trajectories"
}

////////////////////////
// PERFORMANCE
////////////////////////

// TickSample is one car's tick timing.
type TickSample struct {
	Time        time.Time `json:"time" gorm:"index:idx_tick_sample_time"`
	MatchID     uint      `json:"matchId" gorm:"index:idx_tick_sample_match_id"`
	Match       Match     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	GameTime    float64   `json:"gameTime"`
	CarID       int       `json:"carId"`
	DurationMs  float64   `json:"durationMs"`
	Play        string    `json:"play" gorm:"size:64"`
	Predictions int       `json:"predictions"`
}

func (*TickSample) TableName() string {
	return "tick_samples"
}
