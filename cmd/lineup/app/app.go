// Package app provides the application context and dependency management
// for the lineup CLI. It centralizes configuration, logging, the database
// handle and the lineup client.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/config"
	"github.com/agentstation/lineup/internal/connectors/fixture"
	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/internal/metrics"
	"github.com/agentstation/lineup/internal/store"
	"github.com/agentstation/lineup/pkg/errors"
)

// App represents the lineup application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config  *config.Config // loaded config with flags applied
	loaded  *config.Config
	flags   Flags
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	out     io.Writer

	// Lazily opened, shared by every command of one process
	mu     sync.Mutex
	db     *gorm.DB
	redis  *redis.Client
	client lineup.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		metrics: metrics.New(),
	}

	cfg, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = cfg
	app.loaded = cfg

	logger := NewLogger(cfg, "")
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Metrics returns the process-wide metrics registry.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// DB returns the database handle, opening it on first use.
func (a *App) DB(_ context.Context) (*gorm.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openDB()
}

func (a *App) openDB() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := store.Open(a.config.Database.Driver, a.config.Database.DSN,
		store.WithQueryLogging(a.logger.GetLevel() <= zerolog.TraceLevel))
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// Client returns the lineup client, creating it lazily if needed.
// The schema is migrated before the client is built.
func (a *App) Client(ctx context.Context) (lineup.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	applied, err := store.Migrate(ctx, db)
	if err != nil {
		return nil, errors.WrapResource("migrate", "database", a.config.Database.Driver, err)
	}
	if len(applied) > 0 {
		a.logger.Debug().Ints("versions", applied).Msg("Applied migrations")
	}

	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	client, err := lineup.New(db, opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}

	a.client = client
	return client, nil
}

// buildClientOptions constructs client options from the configuration.
func (a *App) buildClientOptions() ([]lineup.Option, error) {
	cfg := a.config
	opts := []lineup.Option{
		lineup.WithLocale(cfg.Normalize.Locale),
		lineup.WithThresholds(cfg.Matcher),
		lineup.WithResurfaceDismissed(cfg.Changes.ResurfaceDismissed),
		lineup.WithCityDelay(cfg.Sync.CityDelay),
		lineup.WithLease(cfg.Lock.TTL, cfg.Sync.Heartbeat),
		lineup.WithMetrics(a.metrics),
	}
	if cfg.Sweep.Interval > 0 {
		opts = append(opts, lineup.WithAutoSweepInterval(cfg.Sweep.Interval))
	}
	if host, err := os.Hostname(); err == nil {
		opts = append(opts, lineup.WithHolder(host))
	}

	if cfg.Lock.Backend == config.LockRedis {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, lineup.WithLocker(jobs.NewRedisLocker(a.redis)))
	}

	if dir := cfg.Fixtures.Dir; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			a.logger.Debug().Str("dir", dir).Msg("No fixture directory, no connectors registered")
		} else {
			connectors, err := fixture.Discover(dir)
			if err != nil {
				return nil, err
			}
			opts = append(opts, lineup.WithConnectors(connectors...))
		}
	}

	return opts, nil
}

// Shutdown stops background work and closes the database and redis
// connections.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		a.db = nil
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) error {
		a.config = cfg
		a.loaded = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c lineup.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
