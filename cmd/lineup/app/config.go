package app

import (
	"github.com/agentstation/lineup/internal/config"
)

// Flags holds the global flags. Set flags override the loaded configuration.
type Flags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
	Format     string
	LogLevel   string
	Driver     string
	DSN        string
}

// LoadConfig loads the configuration, reading file when it is set.
func LoadConfig(file string) (*config.Config, error) {
	return config.Load(file)
}

// applyFlags copies the set flags onto cfg.
func applyFlags(cfg *config.Config, f *Flags) {
	cfg.Verbose = cfg.Verbose || f.Verbose
	cfg.Quiet = cfg.Quiet || f.Quiet
	cfg.NoColor = cfg.NoColor || f.NoColor
	if f.Format != "" {
		cfg.Format = f.Format
	}
	if f.Driver != "" {
		cfg.Database.Driver = f.Driver
	}
	if f.DSN != "" {
		cfg.Database.DSN = f.DSN
	}
}
