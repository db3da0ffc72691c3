// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/CaptainRL/captain/pkg/core"
)

// ErrUnknownBackend is returned when storage.type names no backend.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Types lists the accepted values of storage.type.
var Types = []string{"memory", "sqlite", "postgres", "websocket"}

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management (StartMatch assigns ID to the passed pointer)
	StartMatch(m *core.Match) error
	EndMatch() error

	// Agent telemetry
	RecordDecision(d *core.Decision) error
	RecordStanceChange(c *core.StanceChange) error
	RecordTrajectory(t *core.TrajectoryRecord) error
	RecordTickPerformance(p *core.TickPerformance) error
}

// Exportable is an optional interface for storage backends that write a match
// file when the match ends.
type Exportable interface {
	GetExportedFilePath() string
}

// Known reports whether name is one of Types.
func Known(name string) bool {
	for _, t := range Types {
		if t == name {
			return true
		}
	}
	return false
}
