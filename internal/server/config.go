package server

import (
	"net/http"
	"time"

	"github.com/agentstation/lineup/pkg/constants"
)

// Config holds the worker server settings.
type Config struct {
	Addr string

	// Metrics serves /metrics when set.
	Metrics http.Handler

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            constants.DefaultServerAddr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: constants.ShutdownTimeout,
	}
}
