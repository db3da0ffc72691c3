// Package postgres implements the storage.Backend interface on PostgreSQL/PostGIS.
// Writes go through the queue-based GORM backend.
package postgres

import (
	"fmt"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/database"
	gormstorage "github.com/CaptainRL/captain/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Opener connects to the database. Replaced in tests.
type Opener func(cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error)

// Backend connects lazily on Init and delegates everything else to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	cfg  config.DBConfig
	log  zerolog.Logger
	open Opener
}

// New creates a new postgres storage backend.
func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:  cfg,
		log:  log,
		open: database.OpenPostgres,
	}
}

// WithOpener swaps the connection function.
func (b *Backend) WithOpener(open Opener) *Backend {
	b.open = open
	return b
}

// Init connects to postgres, migrates and starts the writer.
func (b *Backend) Init() error {
	db, err := b.open(b.cfg, b.log)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	return b.Backend.Init()
}

// Close is a no-op when Init never succeeded.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
