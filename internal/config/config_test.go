package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultDatabaseDriver, cfg.Database.Driver)
	assert.Equal(t, LockDatabase, cfg.Lock.Backend)
	assert.Equal(t, constants.DefaultCityDelay, cfg.Sync.CityDelay)
	assert.Equal(t, constants.VenueLinkThreshold, cfg.Matcher.VenueLink)
	assert.Empty(t, cfg.ConfigFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	file := filepath.Join(dir, "lineup.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
database:
  driver: postgres
  dsn: postgres://file
sync:
  city_delay: 3s
matcher:
  event_link: 0.75
`), 0o644))
	t.Setenv("LINEUP_DATABASE_DSN", "postgres://env")
	t.Setenv("LINEUP_LOCK_BACKEND", "redis")
	t.Setenv("LINEUP_CHANGES_RESURFACE_DISMISSED", "true")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, file, cfg.ConfigFile)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, 3*time.Second, cfg.Sync.CityDelay)
	assert.Equal(t, 0.75, cfg.Matcher.EventLink)
	assert.Equal(t, LockRedis, cfg.Lock.Backend)
	assert.True(t, cfg.Changes.ResurfaceDismissed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var ce *errors.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"lock backend", func(c *Config) { c.Lock.Backend = "etcd" }, "lock.backend"},
		{"redis addr", func(c *Config) { c.Lock.Backend = LockRedis; c.Redis.Addr = "" }, "redis.addr"},
		{"heartbeat", func(c *Config) { c.Sync.Heartbeat = c.Lock.TTL }, "sync.heartbeat"},
		{"city delay", func(c *Config) { c.Sync.CityDelay = -time.Second }, "sync.city_delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)

			var ve *errors.ValidationError
			require.ErrorAs(t, cfg.Validate(), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
