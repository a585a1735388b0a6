package app

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultConfigPath is the configuration file used when --config is not given.
const DefaultConfigPath = "gulpfile.hcl"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath is the gulpfile to load. A .yaml or .yml extension selects
	// the YAML loader, anything else HCL.
	ConfigPath string
	// ConfigExplicit is set when the path came from the command line. A
	// missing default file falls back to built-in defaults; a missing
	// explicit file is an error.
	ConfigExplicit bool

	// Tasks are the task names to run, concurrently.
	Tasks []string
	// Production strips debug statements from scripts.
	Production bool
	// Port overrides the configured dev server port when PortSet is true.
	Port    int
	PortSet bool
	// List prints the task table instead of running anything.
	List bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath
	}
	if len(cfg.Tasks) == 0 {
		cfg.Tasks = []string{"default"}
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if cfg.PortSet && (cfg.Port < 0 || cfg.Port > 65535) {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return &cfg, nil
}
