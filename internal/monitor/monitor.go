package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CaptainRL/captain/internal/agent"
	"github.com/CaptainRL/captain/internal/dispatcher"
	"github.com/CaptainRL/captain/internal/recorder"
	"github.com/CaptainRL/captain/pkg/core"

	"gorm.io/gorm"
)

// StatusFileName is written in Dependencies.StatusDir on every report.
const StatusFileName = "status.json"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	// TeamStatus returns the status of the running team, or false before a match.
	TeamStatus func() (agent.Status, bool)
	Recorder   *recorder.Recorder
	// LogFailures counts records the log sinks refused.
	LogFailures func() uint64
	Dispatcher  *dispatcher.Dispatcher
	DB          *gorm.DB
	Logger      *slog.Logger
	StatusDir   string
	Interval    time.Duration
}

// TickStats summarizes the tick samples of one reporting window.
type TickStats struct {
	Count  int     `json:"count"`
	MeanMs float64 `json:"meanMs"`
	MaxMs  float64 `json:"maxMs"`
}

// ProgramStatus is one status report.
type ProgramStatus struct {
	Time     time.Time      `json:"time"`
	Session  string         `json:"session,omitempty"`
	Team     *agent.Status  `json:"team,omitempty"`
	Ticks    TickStats      `json:"ticks"`
	Plays    map[string]int `json:"plays"`
	Queues   map[string]int `json:"queues"`
	Pending  int64          `json:"pending"`
	Written  uint64         `json:"written"`
	Dropped  uint64         `json:"dropped"`
	LogFails uint64         `json:"logFailures,omitempty"`
	Interval string         `json:"interval"`
}

// Service manages status monitoring. It is also an agent.Recorder that collects
// tick timings and play selections between reports.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	statsMu sync.Mutex
	ticks   int
	total   time.Duration
	longest time.Duration
	plays   map[string]int
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
		plays:    make(map[string]int),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Service) RecordDecision(d core.Decision) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.plays[d.Play]++
}

func (s *Service) RecordStanceChange(core.StanceChange)   {}
func (s *Service) RecordTrajectory(core.TrajectoryRecord) {}

func (s *Service) RecordTick(p core.TickPerformance) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.ticks++
	s.total += p.Duration
	if p.Duration > s.longest {
		s.longest = p.Duration
	}
}

// takeStats returns the window's stats and starts a new window.
func (s *Service) takeStats() (TickStats, map[string]int) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st := TickStats{Count: s.ticks, MaxMs: ms(s.longest)}
	if s.ticks > 0 {
		st.MeanMs = ms(s.total) / float64(s.ticks)
	}
	plays := s.plays
	s.ticks, s.total, s.longest = 0, 0, 0
	s.plays = make(map[string]int)
	return st, plays
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// GetProgramStatus builds a report and resets the tick window.
func (s *Service) GetProgramStatus() ProgramStatus {
	stats, plays := s.takeStats()
	st := ProgramStatus{
		Time:     time.Now(),
		Ticks:    stats,
		Plays:    plays,
		Queues:   map[string]int{},
		Interval: s.deps.Interval.String(),
	}
	if s.deps.TeamStatus != nil {
		if team, ok := s.deps.TeamStatus(); ok {
			st.Team = &team
		}
	}
	if r := s.deps.Recorder; r != nil {
		st.Pending = r.Pending()
		st.Written = r.Written()
		st.Dropped = r.Dropped()
		if m := r.Match(); m != nil {
			st.Session = m.SessionID
		}
	}
	if s.deps.LogFailures != nil {
		st.LogFails = s.deps.LogFailures()
	}
	if d := s.deps.Dispatcher; d != nil {
		for _, cmd := range d.Commands() {
			if depth := d.QueueDepth(cmd); depth > 0 {
				st.Queues[cmd] = depth
			}
		}
	}
	return st
}

// Report logs one status line and rewrites the status file.
func (s *Service) Report() ProgramStatus {
	st := s.GetProgramStatus()
	logger := s.deps.Logger

	attrs := []any{
		"ticks", st.Ticks.Count,
		"meanTickMs", fmt.Sprintf("%.3f", st.Ticks.MeanMs),
		"maxTickMs", fmt.Sprintf("%.3f", st.Ticks.MaxMs),
		"plays", formatCounts(st.Plays),
		"pending", st.Pending,
		"dropped", st.Dropped,
	}
	if st.Team != nil {
		attrs = append(attrs, "totalTicks", st.Team.Ticks, "captain", st.Team.Captain)
	}
	if len(st.Queues) > 0 {
		attrs = append(attrs, "queues", formatCounts(st.Queues))
	}
	if st.LogFails > 0 {
		attrs = append(attrs, "logFailures", st.LogFails)
	}
	logger.Info("Status", attrs...)

	if s.deps.StatusDir != "" {
		if err := s.writeStatusFile(st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	return st
}

func (s *Service) writeStatusFile(st ProgramStatus) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.deps.StatusDir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// formatCounts renders a count map as "a=1 b=2" with sorted keys.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

// ValidateHypertables turns the given time-series tables into TimescaleDB hypertables
// segmented by the listed columns. Only meaningful on postgres with timescaledb.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	logger := s.deps.Logger.With("function", "validateHypertables")
	if s.deps.DB == nil {
		return fmt.Errorf("validate hypertables: no database")
	}

	names := make([]string, 0, len(tables))
	for table := range tables {
		names = append(names, table)
	}
	sort.Strings(names)

	for _, table := range names {
		var count int64
		s.deps.DB.Raw(`SELECT count(*) FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&count)
		if count > 0 {
			logger.Info("Table is already a hypertable", "table", table)
			continue
		}

		err := s.deps.DB.Exec(fmt.Sprintf(
			`SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true, migrate_data => true)`,
			table)).Error
		if err != nil {
			logger.Error("Failed to create hypertable", "table", table, "error", err)
			return err
		}
		logger.Info("Created hypertable", "table", table)

		err = s.deps.DB.Exec(fmt.Sprintf(
			`ALTER TABLE %s SET (timescaledb.compress, timescaledb.compress_segmentby = '%s')`,
			table, strings.Join(tables[table], ","))).Error
		if err != nil {
			logger.Error("Failed to enable hypertable compression", "table", table, "error", err)
			return err
		}

		err = s.deps.DB.Exec(fmt.Sprintf(
			`SELECT add_compression_policy('%s', compress_after => interval '14 day')`, table)).Error
		if err != nil {
			logger.Error("Failed to set compress_after", "table", table, "error", err)
			return err
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0755); err != nil {
			s.deps.Logger.Error("Error creating status directory", "error", err)
		}
	}

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

var _ agent.Recorder = (*Service)(nil)
