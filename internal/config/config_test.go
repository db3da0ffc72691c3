package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./captainlogs", viper.GetString("logsDir"))
	assert.Equal(t, "captain", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, true, viper.GetBool("comms.enabled"))
	assert.Equal(t, 64, viper.GetInt("comms.inboxSize"))
	assert.Equal(t, 30*time.Second, viper.GetDuration("monitor.interval"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still registered
	assert.Equal(t, "memory", viper.GetString("storage.type"))
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "ws://localhost:5000/ingest", cfg.WebSocket.URL)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "captain", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetCommsConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"comms": {"enabled": false, "inboxSize": 8}}`)))

	cc := GetCommsConfig()
	assert.False(t, cc.Enabled)
	assert.Equal(t, 8, cc.InboxSize)
}

func TestGetTuning_DefaultsWithoutSection(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	tun, err := GetTuning()
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tun)
}

func TestGetTuning_PartialOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"tuning": {
			"stance": { "attackAlign": 0.1 },
			"collision": { "enabled": false }
		}
	}`)))

	tun, err := GetTuning()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, tun.Stance.AttackAlign, 1e-9)
	assert.False(t, tun.Collision.Enabled)

	// untouched keys keep their defaults
	assert.Equal(t, 30.0, tun.Stance.LowBoost)
	assert.InDelta(t, 0.2, tun.Strike.UpdateInterval, 1e-9)
	assert.Len(t, tun.Drive.Curvature, 5)
}

func TestDriveTuning_TurnRadius(t *testing.T) {
	d := DefaultTuning().Drive

	assert.Equal(t, 0.0, d.TurnRadius(0))
	assert.InDelta(t, 1/(0.0069-5.84e-6*100), d.TurnRadius(100), 1e-6)
	assert.InDelta(t, d.TurnRadius(1200), d.TurnRadius(-1200), 1e-9)

	// radius grows with speed
	prev := d.TurnRadius(50)
	for v := 100.0; v < 2300; v += 100 {
		r := d.TurnRadius(v)
		assert.Greater(t, r, prev, "speed %v", v)
		prev = r
	}
}
