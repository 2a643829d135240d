// Package config provides the declarative source configuration.
//
// A config file describes the desired set of tile sources; it defines
// what should exist, not how to create it. Construction goes through a
// factory map so this package knows nothing about concrete backend
// types.
//
// The config is load-on-start; live reconfiguration is whole-instance
// replacement driven by Watch (the server builds a fresh registry and
// swaps it in).
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"tileserv/internal/source"
)

// Config describes the desired set of sources.
type Config struct {
	Sources []SourceConfig `json:"sources"`
}

// SourceConfig declares one source: its identifier, backend type, and
// backend-specific string parameters.
type SourceConfig struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural invariants: every source has an ID and a
// type, and identifiers are unique within this config. Uniqueness across
// independently contributed configs is not checked here; the registry
// handles collisions at construction (last write wins).
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("source %d: missing id", i)
		}
		if src.Type == "" {
			return fmt.Errorf("source %q: missing type", src.ID)
		}
		if seen[src.ID] {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
	}
	return nil
}

// Factories maps backend type names to their source factories. The
// caller (typically main) populates it by importing concrete backend
// packages and calling their NewFactory() functions.
type Factories map[string]source.Factory

// Build constructs every configured source through the factory map.
// Construction is not atomic: on error, callers must discard the partial
// result and fix the config rather than retry.
func Build(cfg *Config, factories Factories, logger *slog.Logger) ([]source.Source, error) {
	sources := make([]source.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		factory, ok := factories[sc.Type]
		if !ok {
			return nil, fmt.Errorf("source %q: unknown source type %q", sc.ID, sc.Type)
		}
		src, err := factory(sc.ID, sc.Params, logger)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", sc.ID, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
