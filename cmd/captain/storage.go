package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/storage"
	"github.com/CaptainRL/captain/internal/storage/memory"
	pgstorage "github.com/CaptainRL/captain/internal/storage/postgres"
	sqlitestorage "github.com/CaptainRL/captain/internal/storage/sqlite"
	wsstorage "github.com/CaptainRL/captain/internal/storage/websocket"

	"github.com/rs/zerolog"
)

// initStorage creates and initializes the configured backend. Any failure falls
// back to the memory backend so matches are still recorded.
func initStorage(cfg config.StorageConfig) storage.Backend {
	backend, err := createStorageBackend(cfg, config.GetDBConfig(), SessionStartTime, ZLogger, Logger)
	if err == nil {
		err = backend.Init()
	}
	if err != nil {
		Logger.Error("Failed to initialize storage backend, falling back to memory", "type", cfg.Type, "error", err)
		backend = memory.New(cfg.Memory)
		_ = backend.Init()
		return backend
	}
	Logger.Info("Storage backend initialized", "type", cfg.Type)
	return backend
}

func createStorageBackend(cfg config.StorageConfig, dbCfg config.DBConfig, start time.Time, zl zerolog.Logger, log *slog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(cfg.Memory), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     sqlitestorage.PathFor(cfg.SQLite.OutputDir, start),
		}, zl)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "postgres":
		return pgstorage.New(dbCfg, zl), nil

	case "websocket":
		return wsstorage.New(wsstorage.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, log), nil

	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Type)
	}
}
