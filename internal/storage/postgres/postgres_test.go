package postgres

import (
	"errors"
	"testing"

	"github.com/CaptainRL/captain/internal/config"
	"github.com/CaptainRL/captain/internal/database"
	"github.com/CaptainRL/captain/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInit_ConnectFailure(t *testing.T) {
	b := New(config.DBConfig{}, zerolog.Nop()).WithOpener(func(config.DBConfig, zerolog.Logger) (*gorm.DB, error) {
		return nil, errors.New("connection refused")
	})
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, b.Close())
}

func TestInit_DelegatesToGorm(t *testing.T) {
	var got config.DBConfig
	b := New(config.DBConfig{Host: "db", Database: "captain"}, zerolog.Nop()).WithOpener(func(cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error) {
		got = cfg
		return database.OpenSqlite("", log)
	})
	require.NoError(t, b.Init())
	defer b.Close()
	assert.Equal(t, "db", got.Host)

	m := &core.Match{SessionID: "pg"}
	require.NoError(t, b.StartMatch(m))
	assert.NotZero(t, m.ID)
	require.NoError(t, b.RecordDecision(&core.Decision{Play: "Defense"}))
	require.NoError(t, b.EndMatch())
}
