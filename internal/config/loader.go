package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables recognised by Load.
const (
	EnvPrefix     = "ORGCHART_"
	EnvConfigFile = "ORGCHART_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ORGCHART_CONFIG is set
//  3. env (prefix ORGCHART_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// Map env keys like ORGCHART_MATCH_THRESHOLD -> match_threshold (flat keys).
	// The config file variable itself is not a config key.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigFile {
			return ""
		}
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enum fields.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MatchThreshold <= 0 || c.MatchThreshold > 100:
		return fmt.Errorf("%w: match_threshold must be in (0, 100], got %v", ErrInvalidConfig, c.MatchThreshold)
	case c.TieBreak != TieBreakFrequency && c.TieBreak != TieBreakFirstSeen:
		return fmt.Errorf("%w: tie_break must be %q or %q, got %q", ErrInvalidConfig, TieBreakFrequency, TieBreakFirstSeen, c.TieBreak)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: store_driver must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreSQLite, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && strings.TrimSpace(c.StorePath) == "":
		return fmt.Errorf("%w: store_path is required for the sqlite store", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
