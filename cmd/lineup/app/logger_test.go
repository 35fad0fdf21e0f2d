package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/lineup/internal/config"
)

// TestDetermineLogLevel tests the log level precedence logic.
func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		config    config.Config
		flagLevel string
		expected  string
	}{
		{
			name:     "default level when nothing set",
			expected: "info",
		},
		{
			name:     "config level used without flags",
			config:   config.Config{Log: config.LogConfig{Level: "error"}},
			expected: "error",
		},
		{
			name:     "verbose beats config level",
			config:   config.Config{Verbose: true, Log: config.LogConfig{Level: "error"}},
			expected: "debug",
		},
		{
			name:     "quiet flag sets warn",
			config:   config.Config{Quiet: true},
			expected: "warn",
		},
		{
			name:     "quiet wins over verbose",
			config:   config.Config{Verbose: true, Quiet: true},
			expected: "warn",
		},
		{
			name:      "explicit log-level overrides verbose",
			config:    config.Config{Verbose: true},
			flagLevel: "trace",
			expected:  "trace",
		},
		{
			name:      "invalid log-level falls back to info",
			flagLevel: "loud",
			expected:  "info",
		},
		{
			name:     "invalid config level falls back to info",
			config:   config.Config{Log: config.LogConfig{Level: "loud"}},
			expected: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineLogLevel(&tt.config, tt.flagLevel))
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{Format: "yaml", Database: config.DatabaseConfig{Driver: "sqlite", DSN: "a.db"}}

	applyFlags(cfg, &Flags{})
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "a.db", cfg.Database.DSN)

	applyFlags(cfg, &Flags{Verbose: true, Format: "json", Driver: "postgres", DSN: "postgres://x"})
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://x", cfg.Database.DSN)
}
