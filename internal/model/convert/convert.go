package convert

import (
	"encoding/json"
	"time"

	"github.com/CaptainRL/captain/internal/geo"
	"github.com/CaptainRL/captain/internal/model"
	"github.com/CaptainRL/captain/pkg/core"
)

// MatchToCore converts a GORM model.Match to a core.Match
func MatchToCore(m model.Match) core.Match {
	result := core.Match{
		ID:        m.ID,
		SessionID: m.SessionID,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Team:      m.Team,
	}
	if len(m.CarIDs) > 0 {
		_ = json.Unmarshal(m.CarIDs, &result.CarIDs)
	}
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &result.Tags)
	}
	return result
}

// DecisionToCore converts a GORM model.Decision to a core.Decision
func DecisionToCore(d model.Decision) core.Decision {
	result := core.Decision{
		ID:       d.ID,
		GameTime: d.GameTime,
		Time:     d.Time,
		CarID:    d.CarID,
		Team:     d.Team,
		Play:     d.Play,
		Reason:   d.Reason,
		Stance:   d.Stance,
		Captain:  d.Captain,
	}
	if len(d.Context) > 0 {
		_ = json.Unmarshal(d.Context, &result.Context)
	}
	return result
}

// StanceChangeToCore converts a GORM model.StanceChange to a core.StanceChange
func StanceChangeToCore(c model.StanceChange) core.StanceChange {
	return core.StanceChange{
		ID:       c.ID,
		GameTime: c.GameTime,
		Time:     c.Time,
		CarID:    c.CarID,
		From:     c.From,
		To:       c.To,
		Source:   c.Source,
	}
}

// TrajectoryToCore converts a GORM model.Trajectory to a core.TrajectoryRecord
func TrajectoryToCore(t model.Trajectory) core.TrajectoryRecord {
	points, times := geo.LineStringToPath(t.Path)
	return core.TrajectoryRecord{
		ID:            t.ID,
		GameTime:      t.GameTime,
		CarID:         t.CarID,
		Play:          t.Play,
		InterceptTime: t.InterceptTime,
		Feasible:      t.Feasible,
		Points:        points,
		Times:         times,
	}
}

// TickSampleToCore converts a GORM model.TickSample to a core.TickPerformance
func TickSampleToCore(s model.TickSample) core.TickPerformance {
	return core.TickPerformance{
		GameTime:    s.GameTime,
		Time:        s.Time,
		CarID:       s.CarID,
		Duration:    time.Duration(s.DurationMs * float64(time.Millisecond)),
		Play:        s.Play,
		Predictions: s.Predictions,
	}
}
