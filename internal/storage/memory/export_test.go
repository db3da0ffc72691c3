// internal/storage/memory/export_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CaptainRL/captain/internal/config"
	v1 "github.com/CaptainRL/captain/internal/storage/memory/export/v1"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordMatch(t *testing.T, b *Backend) *core.Match {
	t.Helper()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &core.Match{
		SessionID: "5f1c2a9e-0b7d-4c1e-9a55-1f2e3d4c5b6a",
		StartedAt: start,
		EndedAt:   start.Add(time.Minute),
		CarIDs:    []int{0, 1},
	}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordDecision(&core.Decision{GameTime: 1, CarID: 0, Play: "Simple Kickoff (0)", Stance: "KICKOFF"}))
	require.NoError(t, b.RecordStanceChange(&core.StanceChange{GameTime: 1, CarID: 1, From: "UNDEFINED", To: "DEFENSE", Source: "message"}))
	require.NoError(t, b.RecordTickPerformance(&core.TickPerformance{CarID: 0, Duration: time.Millisecond}))
	return m
}

func TestFileName(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC)
	assert.Equal(t, "match_20240501_123015_5f1c2a9e.json", FileName("5f1c2a9e-0b7d", start, false))
	assert.Equal(t, "match_20240501_123015_abc.json.gz", FileName("abc", start, true))
	assert.Equal(t, "match_20240501_123015_local.json", FileName("", start, false))
}

func TestEndMatch_WritesJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	recordMatch(t, b)

	require.NoError(t, b.EndMatch())
	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, ".json"))
	assert.Equal(t, dir, filepath.Dir(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Equal(t, 60.0, export.Duration)
	require.Len(t, export.Cars, 2)
	assert.Len(t, export.Cars[0].Decisions, 1)
	assert.Len(t, export.Cars[1].Stances, 1)
}

func TestEndMatch_WritesGzip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	recordMatch(t, b)

	require.NoError(t, b.EndMatch())
	path := b.GetExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "5f1c2a9e-0b7d-4c1e-9a55-1f2e3d4c5b6a", export.SessionID)
}

func TestEndMatch_FillsEndTime(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	m := &core.Match{SessionID: "x", StartedAt: time.Now().Add(-time.Second)}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.EndMatch())
	assert.False(t, m.EndedAt.IsZero())
}
