// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/CaptainRL/captain/internal/geo"
	"github.com/CaptainRL/captain/internal/model"
	"github.com/CaptainRL/captain/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a datatypes.JSON column, using fallback when v is empty.
func toJSON(v any, empty bool, fallback string) datatypes.JSON {
	if empty {
		return datatypes.JSON(fallback)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.Match to a GORM model.Match
func CoreToMatch(m core.Match) model.Match {
	result := model.Match{
		SessionID: m.SessionID,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Team:      m.Team,
		CarIDs:    toJSON(m.CarIDs, len(m.CarIDs) == 0, "[]"),
		Tags:      toJSON(m.Tags, len(m.Tags) == 0, "{}"),
	}
	result.ID = m.ID
	return result
}

// CoreToDecision converts a core.Decision to a GORM model.Decision
func CoreToDecision(matchID uint, d core.Decision) model.Decision {
	return model.Decision{
		ID:       d.ID,
		Time:     d.Time,
		MatchID:  matchID,
		GameTime: d.GameTime,
		CarID:    d.CarID,
		Team:     d.Team,
		Play:     d.Play,
		Reason:   d.Reason,
		Stance:   d.Stance,
		Captain:  d.Captain,
		Context:  toJSON(d.Context, len(d.Context) == 0, "{}"),
	}
}

// CoreToStanceChange converts a core.StanceChange to a GORM model.StanceChange
func CoreToStanceChange(matchID uint, c core.StanceChange) model.StanceChange {
	return model.StanceChange{
		ID:       c.ID,
		Time:     c.Time,
		MatchID:  matchID,
		GameTime: c.GameTime,
		CarID:    c.CarID,
		From:     c.From,
		To:       c.To,
		Source:   c.Source,
	}
}

// CoreToTrajectory converts a core.TrajectoryRecord to a GORM model.Trajectory.
// It fails when the sampled points cannot form a line.
func CoreToTrajectory(matchID uint, t core.TrajectoryRecord) (model.Trajectory, error) {
	path, err := geo.PathToLineString(t.Points, t.Times)
	if err != nil {
		return model.Trajectory{}, fmt.Errorf("trajectory of car %d at %.2f: %w", t.CarID, t.GameTime, err)
	}
	return model.Trajectory{
		ID:            t.ID,
		MatchID:       matchID,
		GameTime:      t.GameTime,
		CarID:         t.CarID,
		Play:          t.Play,
		InterceptTime: t.InterceptTime,
		Feasible:      t.Feasible,
		Path:          path.AsGeometry(),
	}, nil
}

// CoreToTickSample converts a core.TickPerformance to a GORM model.TickSample
func CoreToTickSample(matchID uint, p core.TickPerformance) model.TickSample {
	return model.TickSample{
		Time:        p.Time,
		MatchID:     matchID,
		GameTime:    p.GameTime,
		CarID:       p.CarID,
		DurationMs:  float64(p.Duration.Microseconds()) / 1000,
		Play:        p.Play,
		Predictions: p.Predictions,
	}
}
