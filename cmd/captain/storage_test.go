package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/logging"
	"github.com/CaptainRL/captain/internal/storage"
	"github.com/CaptainRL/captain/internal/storage/memory"
	pgstorage "github.com/CaptainRL/captain/internal/storage/postgres"
	sqlitestorage "github.com/CaptainRL/captain/internal/storage/sqlite"
	wsstorage "github.com/CaptainRL/captain/internal/storage/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(t *testing.T, cfg config.StorageConfig) (storage.Backend, error) {
	t.Helper()
	return createStorageBackend(cfg, config.DBConfig{}, time.Now(),
		logging.NewZerolog(io.Discard, "error"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateStorageBackend(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		want any
	}{
		{"default", "", &memory.Backend{}},
		{"memory", "memory", &memory.Backend{}},
		{"sqlite", "sqlite", &sqlitestorage.Backend{}},
		{"postgres", "postgres", &pgstorage.Backend{}},
		{"websocket", "websocket", &wsstorage.Backend{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.StorageConfig{Type: tt.typ}
			cfg.SQLite.OutputDir = t.TempDir()
			b, err := create(t, cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestCreateStorageBackend_Unknown(t *testing.T) {
	_, err := create(t, config.StorageConfig{Type: "redis"})
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestInitStorage_FallsBackToMemory(t *testing.T) {
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ZLogger = logging.NewZerolog(io.Discard, "error")

	b := initStorage(config.StorageConfig{Type: "redis", Memory: config.MemoryConfig{OutputDir: t.TempDir()}})
	assert.IsType(t, &memory.Backend{}, b)
}
