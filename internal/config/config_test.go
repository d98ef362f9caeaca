package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoginServer_Valid(t *testing.T) {
	cfg := DefaultLoginServer()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 54231, cfg.AuthPort)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 5*time.Minute, cfg.CreateLockout)
}

func TestLoadLoginServer_MissingFile(t *testing.T) {
	cfg, err := LoadLoginServer(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLoginServer(), cfg)
}

func TestLoadLoginServer_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loginserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_name: Phoenix
view_port: 55001
maintenance_mode: true
version_lock: 2
cleanup_interval: 45s
character_created_delay: 1500ms
database:
  host: db
  max_retries: 5
redis:
  enabled: true
`), 0o600))

	cfg, err := LoadLoginServer(path)
	require.NoError(t, err)

	assert.Equal(t, "Phoenix", cfg.ServerName)
	assert.Equal(t, 55001, cfg.ViewPort)
	assert.Equal(t, 54231, cfg.AuthPort, "untouched keys keep defaults")
	assert.True(t, cfg.MaintenanceMode)
	assert.Equal(t, VersionLockMinimum, cfg.VersionLock)
	assert.Equal(t, 45*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.CharacterCreatedDelay)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, uint64(5), cfg.Database.MaxRetries)
	assert.Equal(t, "xilogin", cfg.Database.User)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "postgres://xilogin:xilogin@db:5432/xilogin?sslmode=disable", cfg.Database.DSN())
}

func TestLoadLoginServer_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loginserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version_lock: 7\nserver_name: ThisNameIsWayTooLong\n"), 0o600))

	_, err := LoadLoginServer(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version_lock")
	assert.Contains(t, err.Error(), "server_name")

	require.NoError(t, os.WriteFile(path, []byte("auth_port: [1"), 0o600))
	_, err = LoadLoginServer(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestParseClientVersion(t *testing.T) {
	v, err := ParseClientVersion([]byte("30230920_0"))
	require.NoError(t, err)
	assert.Equal(t, uint32(3023092000), v)

	v, err = ParseClientVersion([]byte("30230920_4garbage"))
	require.NoError(t, err)
	assert.Equal(t, uint32(3023092004), v)

	_, err = ParseClientVersion([]byte("not a ver"))
	assert.Error(t, err)
}

func TestLoginServer_Helpers(t *testing.T) {
	cfg := DefaultLoginServer()
	assert.Equal(t, "0.0.0.0:54001", cfg.Addr(cfg.ViewPort))

	cfg.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	cfg.LogLevel = "loud"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
