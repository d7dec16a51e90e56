// Package config holds the framework's composition-root configuration:
// logging, the debug server's listen address, and scheduler sizing,
// loaded from an optional YAML file and then overridden by CLI flags —
// the same precedence wilke-GoWe's cmd/server/main.go uses for its
// --config flag.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FrameworkConfig holds the configuration for an mgfwctl composition root.
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`  // off, critical, error, warn, info, debug, trace
	LogFormat string `yaml:"log_format"` // text, json

	// SchedulerWorkers is documented as always 1 — the Scheduler runs a
	// single worker goroutine per spec §4.6 — kept as a field so the YAML
	// loader has something real to validate rather than a knob that
	// actually changes behavior.
	SchedulerWorkers int `yaml:"scheduler_workers"`

	DebugServerAddr string `yaml:"debug_server_addr"`
}

// DefaultFrameworkConfig returns sensible defaults.
func DefaultFrameworkConfig() FrameworkConfig {
	return FrameworkConfig{
		LogLevel:         "info",
		LogFormat:        "text",
		SchedulerWorkers: 1,
		DebugServerAddr:  ":7070",
	}
}

// LoadFile reads a YAML config file, applying its fields over cfg's
// existing values (so callers seed cfg with defaults first and apply any
// flag overrides afterwards).
// A missing path is not an error — callers pass "" to skip loading.
func LoadFile(cfg *FrameworkConfig, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.Validate()
}

// Validate rejects a config that would make the composition root behave in
// an undocumented way.
func (c FrameworkConfig) Validate() error {
	if c.SchedulerWorkers != 1 {
		return fmt.Errorf("config: scheduler_workers must be 1, got %d", c.SchedulerWorkers)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
