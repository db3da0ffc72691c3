package monitor

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CaptainRL/captain/internal/agent"
	"github.com/CaptainRL/captain/internal/dispatcher"
	"github.com/CaptainRL/captain/internal/logging"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_TickStats(t *testing.T) {
	s := NewService(Dependencies{Logger: discardLogger()})

	s.RecordTick(core.TickPerformance{Duration: 2 * time.Millisecond})
	s.RecordTick(core.TickPerformance{Duration: 4 * time.Millisecond})
	s.RecordDecision(core.Decision{Play: "DodgeStrike"})
	s.RecordDecision(core.Decision{Play: "DodgeStrike"})
	s.RecordDecision(core.Decision{Play: "Defense"})

	st := s.GetProgramStatus()
	assert.Equal(t, 2, st.Ticks.Count)
	assert.InDelta(t, 3.0, st.Ticks.MeanMs, 1e-9)
	assert.InDelta(t, 4.0, st.Ticks.MaxMs, 1e-9)
	assert.Equal(t, map[string]int{"DodgeStrike": 2, "Defense": 1}, st.Plays)
	assert.Nil(t, st.Team)

	// the window resets after each report
	st = s.GetProgramStatus()
	assert.Zero(t, st.Ticks.Count)
	assert.Zero(t, st.Ticks.MeanMs)
	assert.Empty(t, st.Plays)
}

func TestService_TeamStatus(t *testing.T) {
	s := NewService(Dependencies{
		Logger: discardLogger(),
		TeamStatus: func() (agent.Status, bool) {
			return agent.Status{Ticks: 120, Captain: 1}, true
		},
	})

	st := s.GetProgramStatus()
	require.NotNil(t, st.Team)
	assert.Equal(t, uint64(120), st.Team.Ticks)
	assert.Equal(t, 1, st.Team.Captain)
}

func TestService_QueueDepths(t *testing.T) {
	d, err := dispatcher.New(logging.NewDispatcherLogger(logging.NewZerolog(io.Discard, "error")))
	require.NoError(t, err)

	release := make(chan struct{})
	d.Register(":SLOW:", func(dispatcher.Event) (any, error) {
		<-release
		return nil, nil
	}, dispatcher.Buffered(10))
	defer close(release)

	for range 3 {
		_, err := d.Dispatch(dispatcher.Event{Command: ":SLOW:"})
		require.NoError(t, err)
	}

	s := NewService(Dependencies{Logger: discardLogger(), Dispatcher: d})
	assert.Eventually(t, func() bool {
		return s.GetProgramStatus().Queues[":SLOW:"] >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestService_LogFailures(t *testing.T) {
	var buf bytes.Buffer
	s := NewService(Dependencies{
		Logger:      slog.New(slog.NewTextHandler(&buf, nil)),
		LogFailures: func() uint64 { return 3 },
	})
	st := s.Report()
	assert.Equal(t, uint64(3), st.LogFails)
	assert.Contains(t, buf.String(), "logFailures=3")
}

func TestService_ReportWritesStatusFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	s := NewService(Dependencies{
		Logger:    slog.New(slog.NewTextHandler(&buf, nil)),
		StatusDir: dir,
	})
	s.RecordTick(core.TickPerformance{Duration: time.Millisecond})
	s.RecordDecision(core.Decision{Play: "Strike"})

	s.Report()

	data, err := os.ReadFile(filepath.Join(dir, StatusFileName))
	require.NoError(t, err)
	var st ProgramStatus
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 1, st.Ticks.Count)
	assert.Equal(t, 1, st.Plays["Strike"])
	assert.Contains(t, buf.String(), "Strike=1")
}

func TestService_StartStop(t *testing.T) {
	var buf syncBuffer
	s := NewService(Dependencies{
		Logger:   slog.New(slog.NewTextHandler(&buf, nil)),
		Interval: 10 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("msg=Status"))
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestValidateHypertables_NoDB(t *testing.T) {
	s := NewService(Dependencies{Logger: discardLogger()})
	assert.Error(t, s.ValidateHypertables(map[string][]string{"tick_samples": {"car_id"}}))
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "a=2 b=1", formatCounts(map[string]int{"b": 1, "a": 2}))
	assert.Equal(t, "", formatCounts(nil))
}
