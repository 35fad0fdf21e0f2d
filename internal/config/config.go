// Package config loads the lineup configuration from config files,
// environment variables and .env files.
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/lineup/internal/matcher"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/lineup/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LINEUP"

// Lock backends.
const (
	LockDatabase = "database"
	LockRedis    = "redis"
)

// Config holds the lineup configuration.
type Config struct {
	// Global flags
	Verbose bool   `mapstructure:"verbose"`
	Quiet   bool   `mapstructure:"quiet"`
	NoColor bool   `mapstructure:"no_color"`
	Format  string `mapstructure:"format"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-"`

	Database  DatabaseConfig     `mapstructure:"database"`
	Lock      LockConfig         `mapstructure:"lock"`
	Redis     RedisConfig        `mapstructure:"redis"`
	Sync      SyncConfig         `mapstructure:"sync"`
	Fixtures  FixturesConfig     `mapstructure:"fixtures"`
	Server    ServerConfig       `mapstructure:"server"`
	Sweep     SweepConfig        `mapstructure:"sweep"`
	Log       LogConfig          `mapstructure:"log"`
	Matcher   matcher.Thresholds `mapstructure:"matcher"`
	Normalize NormalizeConfig    `mapstructure:"normalize"`
	Changes   ChangesConfig      `mapstructure:"changes"`
}

// DatabaseConfig selects the database.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LockConfig selects the sync lease backend.
type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig is used by the redis lock backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SyncConfig tunes sync jobs.
type SyncConfig struct {
	CityDelay time.Duration `mapstructure:"city_delay"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// FixturesConfig points at the fixture connector documents.
type FixturesConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig configures the worker's HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// SweepConfig configures the worker's expiry sweep.
type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NormalizeConfig selects normalization rules.
type NormalizeConfig struct {
	Locale string `mapstructure:"locale"`
}

// ChangesConfig tunes the review queue.
type ChangesConfig struct {
	ResurfaceDismissed bool `mapstructure:"resurface_dismissed"`
}

// Load loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied by the caller)
// 2. LINEUP_* environment variables
// 3. .env and .env.local files
// 4. Config file (the given path, or .lineup.yaml in $HOME or .)
// 5. Defaults
func Load(file string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errors.ConfigError{Component: "file", Message: "cannot read " + file, Err: err}
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".lineup")

		// a missing config file is fine
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &errors.ConfigError{Component: "file", Message: "cannot read config", Err: err}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &errors.ConfigError{Component: "decode", Message: err.Error(), Err: err}
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it on Unmarshal.
func setDefaults(v *viper.Viper) {
	th := matcher.DefaultThresholds()

	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("no_color", false)
	v.SetDefault("format", "")
	v.SetDefault("database.driver", constants.DefaultDatabaseDriver)
	v.SetDefault("database.dsn", constants.DefaultDatabaseDSN)
	v.SetDefault("lock.backend", LockDatabase)
	v.SetDefault("lock.ttl", constants.DefaultLeaseTTL)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sync.city_delay", constants.DefaultCityDelay)
	v.SetDefault("sync.heartbeat", constants.DefaultHeartbeat)
	v.SetDefault("fixtures.dir", constants.DefaultFixturesDir)
	v.SetDefault("server.addr", constants.DefaultServerAddr)
	v.SetDefault("sweep.interval", constants.DefaultSweepInterval)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("matcher.venue_link", th.VenueLink)
	v.SetDefault("matcher.venue_dedupe", th.VenueDedupe)
	v.SetDefault("matcher.artist_link", th.ArtistLink)
	v.SetDefault("matcher.artist_dedupe", th.ArtistDedupe)
	v.SetDefault("matcher.event_link", th.EventLink)
	v.SetDefault("matcher.event_dedupe", th.EventDedupe)
	v.SetDefault("normalize.locale", constants.DefaultLocale)
	v.SetDefault("changes.resurface_dismissed", false)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local does not override what .env or the shell already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	drivers := []string{store.DriverSQLite, store.DriverPostgres}
	if !slices.Contains(drivers, c.Database.Driver) {
		return errors.NewValidationError("database.driver", c.Database.Driver, "must be sqlite or postgres")
	}
	if c.Database.DSN == "" {
		return errors.NewValidationError("database.dsn", "", "required")
	}
	switch c.Lock.Backend {
	case LockDatabase:
	case LockRedis:
		if c.Redis.Addr == "" {
			return errors.NewValidationError("redis.addr", "", "required by the redis lock backend")
		}
	default:
		return errors.NewValidationError("lock.backend", c.Lock.Backend, "must be database or redis")
	}
	if c.Lock.TTL <= 0 || c.Sync.Heartbeat <= 0 || c.Sync.Heartbeat >= c.Lock.TTL {
		return errors.NewValidationError("sync.heartbeat", c.Sync.Heartbeat, "must be positive and shorter than lock.ttl")
	}
	if c.Sync.CityDelay < 0 {
		return errors.NewValidationError("sync.city_delay", c.Sync.CityDelay, "must not be negative")
	}
	return c.Matcher.Validate()
}
