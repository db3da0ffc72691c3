package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.Valid())
}

func TestURL(t *testing.T) {
	m := NewManager(config.InfluxConfig{Protocol: "https", Host: "metrics", Port: "8086"}, zerolog.Nop(), "")
	assert.Equal(t, "https://metrics:8086", m.URL())
}

func TestTickPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	line := lineOf(TickPoint(core.TickPerformance{
		Time: ts, CarID: 2, Play: "Defense", Duration: 1500 * time.Microsecond, GameTime: 12, Predictions: 720,
	}, "abc"))

	assert.True(t, strings.HasPrefix(line, "tick,car=2,play=Defense,session=abc "), line)
	assert.Contains(t, line, "duration_ms=1.5")
	assert.Contains(t, line, "predictions=720i")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "1700000000000000000"), line)
}

func TestDecisionPoint(t *testing.T) {
	line := lineOf(DecisionPoint(core.Decision{
		Time: time.Unix(1, 0), CarID: 0, Play: "DodgeStrike", Reason: "attack", Stance: "ATTACK", Captain: true,
	}, "s"))
	assert.True(t, strings.HasPrefix(line, "decision,car=0,session=s,stance=ATTACK "), line)
	assert.Contains(t, line, `play="DodgeStrike"`)
	assert.Contains(t, line, "captain=true")
}

func TestBackupWhenUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "o", Bucket: "ticks",
	}, zerolog.Nop(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.Valid())

	m.SetSession("offline")
	require.NoError(t, m.WriteTick(core.TickPerformance{CarID: 1, Play: "Refuel", Duration: time.Millisecond}))
	require.NoError(t, m.WriteDecision(core.Decision{CarID: 1, Play: "Refuel", Stance: "BOOST"}))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "tick,car=1,play=Refuel,session=offline"))
	assert.True(t, strings.HasPrefix(lines[1], "decision,car=1,session=offline,stance=BOOST"))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.Error(t, m.WriteTick(core.TickPerformance{}))
	assert.NoError(t, m.Close())
}
