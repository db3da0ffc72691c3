// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/CaptainRL/captain/internal/config"
	v1 "github.com/CaptainRL/captain/internal/storage/memory/export/v1"
	"github.com/CaptainRL/captain/pkg/core"
)

// Backend keeps the current match in memory and exports it to JSON when it ends
type Backend struct {
	cfg   config.MemoryConfig
	match *core.Match

	decisions     []core.Decision
	stanceChanges []core.StanceChange
	trajectories  []core.TrajectoryRecord
	ticks         []core.TickPerformance

	idCounter      uint
	matchCounter   uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match and assigns its ID
func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.matchCounter++
	m.ID = b.matchCounter
	b.match = m

	// Reset all collections
	b.decisions = nil
	b.stanceChanges = nil
	b.trajectories = nil
	b.ticks = nil
	b.idCounter = 0

	return nil
}

// EndMatch finalizes and exports the match data. Ending without a started
// match is a no-op.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return nil
	}
	err := b.exportJSON()
	b.match = nil
	return err
}

// RecordDecision stores a decision and assigns its ID
func (b *Backend) RecordDecision(d *core.Decision) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	d.ID = b.idCounter
	b.decisions = append(b.decisions, *d)
	return nil
}

// RecordStanceChange stores a stance change and assigns its ID
func (b *Backend) RecordStanceChange(c *core.StanceChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	c.ID = b.idCounter
	b.stanceChanges = append(b.stanceChanges, *c)
	return nil
}

// RecordTrajectory stores a strike trajectory and assigns its ID
func (b *Backend) RecordTrajectory(t *core.TrajectoryRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	t.ID = b.idCounter
	b.trajectories = append(b.trajectories, *t)
	return nil
}

// RecordTickPerformance stores a tick timing sample
func (b *Backend) RecordTickPerformance(p *core.TickPerformance) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ticks = append(b.ticks, *p)
	return nil
}

// GetExportedFilePath returns the path of the last exported match file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// snapshot copies the current match into export input. Callers hold the lock.
func (b *Backend) snapshot() *v1.MatchData {
	return &v1.MatchData{
		Match:         b.match,
		Decisions:     b.decisions,
		StanceChanges: b.stanceChanges,
		Trajectories:  b.trajectories,
		Ticks:         b.ticks,
	}
}
