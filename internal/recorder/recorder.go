// Package recorder moves agent telemetry off the tick path: records are
// dispatched to buffered handlers that feed the storage backend and influx.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CaptainRL/captain/internal/dispatcher"
	"github.com/CaptainRL/captain/internal/storage"
	"github.com/CaptainRL/captain/pkg/core"
)

// Commands handled by the recorder.
const (
	CmdDecision     = ":RECORD:DECISION:"
	CmdStanceChange = ":RECORD:STANCE:"
	CmdTrajectory   = ":RECORD:TRAJECTORY:"
	CmdTick         = ":RECORD:TICK:"
)

// ErrDrainTimeout is returned when queued records are still pending after the drain timeout.
var ErrDrainTimeout = errors.New("recorder: timed out draining queues")

// PointWriter receives the time-series subset of the telemetry.
type PointWriter interface {
	SetSession(id string)
	WriteTick(p core.TickPerformance) error
	WriteDecision(d core.Decision) error
}

// Dependencies holds everything the recorder writes to.
type Dependencies struct {
	Backend    storage.Backend
	Points     PointWriter // optional
	Dispatcher *dispatcher.Dispatcher
	Logger     *slog.Logger
}

// Recorder implements agent.Recorder.
type Recorder struct {
	deps    Dependencies
	active  atomic.Bool
	pending atomic.Int64
	dropped atomic.Uint64
	written atomic.Uint64
	mu      sync.Mutex
	match   *core.Match
}

// New creates a recorder and registers its handlers on deps.Dispatcher.
func New(deps Dependencies) *Recorder {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Recorder{deps: deps}
	r.RegisterHandlers(deps.Dispatcher)
	return r
}

// Active reports whether a match is being recorded.
func (r *Recorder) Active() bool { return r.active.Load() }

// Pending is the number of dispatched records not yet written.
func (r *Recorder) Pending() int64 { return r.pending.Load() }

// Dropped is the number of records lost to full queues.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written is the number of records handed to the backend.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Match is the match being recorded, or nil.
func (r *Recorder) Match() *core.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match
}

// StartMatch ends any match in progress and starts recording m.
func (r *Recorder) StartMatch(m *core.Match) error {
	if r.Active() {
		if err := r.EndMatch(); err != nil {
			r.deps.Logger.Warn("Failed to end previous match", "error", err)
		}
	}

	if err := r.deps.Backend.StartMatch(m); err != nil {
		return fmt.Errorf("start match: %w", err)
	}
	if r.deps.Points != nil {
		r.deps.Points.SetSession(m.SessionID)
	}

	r.mu.Lock()
	r.match = m
	r.mu.Unlock()
	r.active.Store(true)
	r.deps.Logger.Info("Recording match", "session", m.SessionID, "matchId", m.ID, "cars", m.CarIDs)
	return nil
}

// EndMatch stops accepting records, waits for the queues and closes the match
// in the backend.
func (r *Recorder) EndMatch() error {
	if !r.active.Swap(false) {
		return nil
	}
	drainErr := r.Drain(5 * time.Second)

	r.mu.Lock()
	m := r.match
	r.match = nil
	r.mu.Unlock()
	if m != nil {
		m.EndedAt = time.Now()
	}

	if err := r.deps.Backend.EndMatch(); err != nil {
		return errors.Join(drainErr, fmt.Errorf("end match: %w", err))
	}
	if exp, ok := r.deps.Backend.(storage.Exportable); ok && exp.GetExportedFilePath() != "" {
		r.deps.Logger.Info("Match exported", "path", exp.GetExportedFilePath())
	}
	return drainErr
}

// Drain waits until every dispatched record has been handled.
func (r *Recorder) Drain(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for r.pending.Load() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d pending", ErrDrainTimeout, r.pending.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func (r *Recorder) dispatch(cmd string, payload any) {
	if !r.active.Load() {
		return
	}
	r.pending.Add(1)
	if _, err := r.deps.Dispatcher.Dispatch(dispatcher.Event{Command: cmd, Payload: payload}); err != nil {
		r.pending.Add(-1)
		if r.dropped.Add(1) == 1 {
			r.deps.Logger.Warn("Telemetry queue full, dropping records", "command", cmd)
		}
	}
}

func (r *Recorder) RecordDecision(d core.Decision) { r.dispatch(CmdDecision, d) }

func (r *Recorder) RecordStanceChange(c core.StanceChange) { r.dispatch(CmdStanceChange, c) }

func (r *Recorder) RecordTrajectory(t core.TrajectoryRecord) { r.dispatch(CmdTrajectory, t) }

func (r *Recorder) RecordTick(p core.TickPerformance) { r.dispatch(CmdTick, p) }
