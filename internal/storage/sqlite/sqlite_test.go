package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CaptainRL/captain/internal/database"
	"github.com/CaptainRL/captain/internal/model"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFor(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC)
	assert.Equal(t, filepath.Join("rec", "captain_20240501_090807.db"), PathFor("rec", start))
}

func TestEndMatch_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captain.db")
	b, err := New(Config{DumpPath: path, DumpInterval: time.Hour}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	m := &core.Match{SessionID: "sqlite-match", CarIDs: []int{0}}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordDecision(&core.Decision{CarID: 0, Play: "Refuel", Reason: "boost"}))
	require.NoError(t, b.RecordTickPerformance(&core.TickPerformance{CarID: 0, Duration: time.Millisecond}))
	require.NoError(t, b.EndMatch())

	assert.Equal(t, path, b.GetExportedFilePath())
	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := database.OpenSqlite(path, zerolog.Nop())
	require.NoError(t, err)
	var decisions []model.Decision
	require.NoError(t, disk.Find(&decisions).Error)
	require.Len(t, decisions, 1)
	assert.Equal(t, "Refuel", decisions[0].Play)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartMatch(&core.Match{SessionID: "nodump"}))
	require.NoError(t, b.EndMatch())
	assert.Empty(t, b.GetExportedFilePath())
	assert.NoError(t, b.Close())
}
