package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/lineup/internal/config"
	"github.com/agentstation/lineup/pkg/logging"
)

// NewLogger creates a configured logger.
// Log level precedence (highest to lowest):
//  1. --log-level flag (explicit always wins)
//  2. -v/--verbose flag (shortcut for debug)
//  3. -q/--quiet flag (shortcut for warn)
//  4. log.level from the config file or LINEUP_LOG_LEVEL
//  5. Default (info)
func NewLogger(cfg *config.Config, flagLevel string) zerolog.Logger {
	level := determineLogLevel(cfg, flagLevel)

	logConfig := &logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		NoColor:   cfg.NoColor,
		AddCaller: level == "debug" || level == "trace",
	}

	return logging.NewLoggerFromConfig(logConfig)
}

// determineLogLevel determines the log level using clear precedence rules.
func determineLogLevel(cfg *config.Config, flagLevel string) string {
	if flagLevel != "" {
		validated := validateLogLevel(flagLevel)
		if validated != flagLevel {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", flagLevel, validated)
		}
		return validated
	}

	if cfg.Verbose && cfg.Quiet {
		// Both specified - warn user and use quiet (more restrictive)
		fmt.Fprintf(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	}
	if cfg.Verbose {
		return "debug"
	}
	if cfg.Quiet {
		return "warn"
	}

	if cfg.Log.Level != "" {
		return validateLogLevel(cfg.Log.Level)
	}
	return "info"
}

// validateLogLevel returns level when valid and "info" otherwise.
func validateLogLevel(level string) string {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[level] {
		return level
	}

	return "info"
}
