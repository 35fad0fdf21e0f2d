// Package appcontext provides the shared application context interface
// used by all commands. Commands depend on this interface rather than the
// concrete App so they can be tested with a Mock.
package appcontext

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/config"
	"github.com/agentstation/lineup/internal/metrics"
)

// Interface defines the application context interface that commands need.
// The App struct from cmd/lineup/app implements it.
type Interface interface {
	// Client returns the lineup client, creating it lazily if needed.
	// Only one client exists per process.
	Client(ctx context.Context) (lineup.Client, error)

	// DB returns the opened database without building a client.
	// Commands that only touch the schema (migrate) use this.
	DB(ctx context.Context) (*gorm.DB, error)

	// Config returns the loaded configuration.
	Config() *config.Config

	// Metrics returns the process-wide metrics registry.
	Metrics() *metrics.Metrics

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
