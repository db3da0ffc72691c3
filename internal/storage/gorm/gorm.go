// Package gormstorage implements the storage.Backend interface on any GORM
// dialect, with internal queues drained by a background writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CaptainRL/captain/internal/database"
	"github.com/CaptainRL/captain/internal/model"
	"github.com/CaptainRL/captain/internal/model/convert"
	"github.com/CaptainRL/captain/internal/queue"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoMatch is returned when a record arrives outside of a match.
var ErrNoMatch = errors.New("no match in progress")

const defaultFlushInterval = time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Decisions     *queue.Queue[model.Decision]
	StanceChanges *queue.Queue[model.StanceChange]
	Trajectories  *queue.Queue[model.Trajectory]
	TickSamples   *queue.Queue[model.TickSample]
}

func newQueues() *queues {
	return &queues{
		Decisions:     queue.New[model.Decision](),
		StanceChanges: queue.New[model.StanceChange](),
		Trajectories:  queue.New[model.Trajectory](),
		TickSamples:   queue.New[model.TickSample](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	matchID  atomic.Uint64
	stopChan chan struct{}
	wg       sync.WaitGroup
	writeMu  sync.Mutex
	started  bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.started = true
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.started {
		close(b.stopChan)
		b.wg.Wait()
		b.started = false
	}
	return b.Flush()
}

// StartMatch inserts the match row and assigns its ID.
func (b *Backend) StartMatch(m *core.Match) error {
	if err := b.Flush(); err != nil {
		return err
	}

	row := convert.CoreToMatch(*m)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	m.ID = row.ID
	b.matchID.Store(uint64(row.ID))
	b.deps.Logger.Info().Uint("matchId", row.ID).Str("session", m.SessionID).Msg("Match started")
	return nil
}

// EndMatch writes pending records and stamps the match end time.
func (b *Backend) EndMatch() error {
	id := uint(b.matchID.Load())
	if id == 0 {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if err := b.deps.DB.Model(&model.Match{}).Where("id = ?", id).Update("ended_at", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to end match: %w", err)
	}
	b.matchID.Store(0)
	b.deps.Logger.Info().Uint("matchId", id).Msg("Match ended")
	return nil
}

func (b *Backend) currentMatch() (uint, error) {
	id := uint(b.matchID.Load())
	if id == 0 {
		return 0, ErrNoMatch
	}
	return id, nil
}

func (b *Backend) RecordDecision(d *core.Decision) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	row := convert.CoreToDecision(id, *d)
	row.ID = 0
	b.queues.Decisions.Push(row)
	return nil
}

func (b *Backend) RecordStanceChange(c *core.StanceChange) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	row := convert.CoreToStanceChange(id, *c)
	row.ID = 0
	b.queues.StanceChanges.Push(row)
	return nil
}

func (b *Backend) RecordTrajectory(t *core.TrajectoryRecord) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	row, err := convert.CoreToTrajectory(id, *t)
	if err != nil {
		return err
	}
	row.ID = 0
	b.queues.Trajectories.Push(row)
	return nil
}

func (b *Backend) RecordTickPerformance(p *core.TickPerformance) error {
	id, err := b.currentMatch()
	if err != nil {
		return err
	}
	b.queues.TickSamples.Push(convert.CoreToTickSample(id, *p))
	return nil
}

// Pending is the number of queued rows not yet written.
func (b *Backend) Pending() int {
	q := b.queues
	return q.Decisions.Len() + q.StanceChanges.Len() + q.Trajectories.Len() + q.TickSamples.Len()
}

// Flush writes every queue now. The first error is returned; failed batches are
// requeued for the next attempt.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	db := b.deps.DB
	log := b.deps.Logger
	return errors.Join(
		writeQueue(db, b.queues.Decisions, "decisions", log),
		writeQueue(db, b.queues.StanceChanges, "stance changes", log),
		writeQueue(db, b.queues.Trajectories, "trajectories", log),
		writeQueue(db, b.queues.TickSamples, "tick samples", log),
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		log.Error().Err(err).Str("table", name).Int("count", len(items)).Msg("Error writing batch")
		q.Push(items...)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeLoop periodically drains queues into the DB.
func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
