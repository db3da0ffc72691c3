// Package geo packs sampled 3D paths into simplefeatures geometries. A path is a
// LineStringZM whose M ordinate is the game time of each sample.
package geo

import (
	"encoding/json"
	"fmt"

	"github.com/CaptainRL/captain/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PathToLineString packs sampled positions and their times into a LineStringZM.
// Extra points or times beyond the shorter slice are dropped; fewer than two
// samples give an empty LineString. A path that never leaves one floor position,
// such as a ball bouncing straight up and down, is rejected by the geometry
// validation.
func PathToLineString(points []core.Vec3, times []float64) (geom.LineString, error) {
	n := min(len(points), len(times))
	if n < 2 {
		return geom.LineString{}, nil
	}
	coords := make([]float64, 0, n*4)
	for i := 0; i < n; i++ {
		p := points[i]
		coords = append(coords, p.X, p.Y, p.Z, times[i])
	}
	ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXYZM))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("invalid path: %w", err)
	}
	return ls, nil
}

// LineStringToPath unpacks a LineStringZM geometry into positions and times.
// Any other geometry yields nothing.
func LineStringToPath(g geom.Geometry) ([]core.Vec3, []float64) {
	if g.IsEmpty() {
		return nil, nil
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil, nil
	}
	seq := ls.Coordinates()
	n := seq.Length()
	points := make([]core.Vec3, 0, n)
	times := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		c := seq.Get(i)
		points = append(points, core.Vec(c.X, c.Y, c.Z))
		times = append(times, c.M)
	}
	return points, times
}

// GroundLength is the length of the path projected on the floor.
func GroundLength(ls geom.LineString) float64 {
	return ls.Length()
}

// ParsePath parses a JSON array of [x, y, z, t] samples, the layout used by
// exported trajectories.
func ParsePath(input string) (geom.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.LineString{}, fmt.Errorf("failed to parse path JSON: %w", err)
	}
	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("path must have at least 2 points, got %d", len(coords))
	}

	flat := make([]float64, 0, len(coords)*4)
	for i, c := range coords {
		if len(c) < 4 {
			return geom.LineString{}, fmt.Errorf("sample %d has %d values, want 4", i, len(c))
		}
		flat = append(flat, c[0], c[1], c[2], c[3])
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXYZM))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("invalid path: %w", err)
	}
	return ls, nil
}
