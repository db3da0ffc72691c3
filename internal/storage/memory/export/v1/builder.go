package v1

import (
	"sort"
	"time"

	"github.com/CaptainRL/captain/internal/geo"
	"github.com/CaptainRL/captain/pkg/core"
)

// MatchData contains all the data needed to build an export
type MatchData struct {
	Match         *core.Match
	Decisions     []core.Decision
	StanceChanges []core.StanceChange
	Trajectories  []core.TrajectoryRecord
	Ticks         []core.TickPerformance
}

// Build creates an Export from the match data. Cars appear in ascending id order;
// a car that is not in Match.CarIDs still gets an entry when it has records.
func Build(data *MatchData) Export {
	m := data.Match
	export := Export{
		FormatVersion: FormatVersion,
		SessionID:     m.SessionID,
		Team:          m.Team,
		StartedAt:     formatTime(m.StartedAt),
		EndedAt:       formatTime(m.EndedAt),
		Tags:          m.Tags,
		Cars:          make([]Car, 0, len(m.CarIDs)),
	}
	if !m.StartedAt.IsZero() && m.EndedAt.After(m.StartedAt) {
		export.Duration = m.EndedAt.Sub(m.StartedAt).Seconds()
	}

	cars := make(map[int]*Car)
	get := func(id int) *Car {
		c, ok := cars[id]
		if !ok {
			c = &Car{
				ID:           id,
				Decisions:    make([][]any, 0),
				Stances:      make([][]any, 0),
				Trajectories: make([]Trajectory, 0),
				Summary:      Summary{Plays: make(map[string]int)},
			}
			cars[id] = c
		}
		return c
	}
	for _, id := range m.CarIDs {
		get(id)
	}

	for _, d := range data.Decisions {
		c := get(d.CarID)
		c.Decisions = append(c.Decisions, []any{d.GameTime, d.Play, d.Reason, d.Stance, boolToInt(d.Captain)})
		c.Summary.Plays[d.Play]++
	}
	for _, s := range data.StanceChanges {
		c := get(s.CarID)
		c.Stances = append(c.Stances, []any{s.GameTime, s.From, s.To, s.Source})
	}
	for _, t := range data.Trajectories {
		c := get(t.CarID)
		// a path rejected as a line never moves over the floor
		var length float64
		if ls, err := geo.PathToLineString(t.Points, t.Times); err == nil {
			length = geo.GroundLength(ls)
		}
		c.Trajectories = append(c.Trajectories, Trajectory{
			GameTime:      t.GameTime,
			Play:          t.Play,
			InterceptTime: t.InterceptTime,
			Feasible:      boolToInt(t.Feasible),
			Length:        length,
			Points:        packPoints(t.Points, t.Times),
		})
	}

	totals := make(map[int]time.Duration)
	for _, p := range data.Ticks {
		c := get(p.CarID)
		c.Summary.Ticks++
		totals[p.CarID] += p.Duration
		if ms := durationMs(p.Duration); ms > c.Summary.MaxTickMs {
			c.Summary.MaxTickMs = ms
		}
	}
	for id, total := range totals {
		c := cars[id]
		c.Summary.MeanTickMs = durationMs(total) / float64(c.Summary.Ticks)
	}

	ids := make([]int, 0, len(cars))
	for id := range cars {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		export.Cars = append(export.Cars, *cars[id])
	}
	return export
}

func packPoints(points []core.Vec3, times []float64) [][]float64 {
	n := min(len(points), len(times))
	out := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		p := points[i]
		out = append(out, []float64{p.X, p.Y, p.Z, times[i]})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
