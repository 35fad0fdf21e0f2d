package appcontext

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/agentstation/lineup"
	"github.com/agentstation/lineup/internal/config"
	"github.com/agentstation/lineup/internal/metrics"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ClientFunc  func(ctx context.Context) (lineup.Client, error)
	DBFunc      func(ctx context.Context) (*gorm.DB, error)
	ConfigValue *config.Config
	Format      string
	LoggerFunc  func() *zerolog.Logger
	VersionFunc func() string

	metrics *metrics.Metrics
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client(ctx context.Context) (lineup.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(ctx)
	}
	return nil, nil
}

// DB returns a database using the mock function or nil.
func (m *Mock) DB(ctx context.Context) (*gorm.DB, error) {
	if m.DBFunc != nil {
		return m.DBFunc(ctx)
	}
	return nil, nil
}

// Config returns ConfigValue or an empty config.
func (m *Mock) Config() *config.Config {
	if m.ConfigValue != nil {
		return m.ConfigValue
	}
	return &config.Config{}
}

// Metrics returns a registry private to the mock.
func (m *Mock) Metrics() *metrics.Metrics {
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	return m.metrics
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format or "json".
func (m *Mock) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "json"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
