// Package config defines process configuration and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation failures wrap ErrInvalidConfig, loading failures ErrLoadConfig.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MatchThreshold is the minimum fuzzy similarity (0-100) for a name match.
	MatchThreshold float64 `koanf:"match_threshold"`

	// PrefixMatch lets a key that prefixes another score exactly the threshold.
	PrefixMatch bool `koanf:"prefix_match"`

	// MaxFuzzyComparisons bounds the fuzzy phase before the bucket prefilter kicks in.
	MaxFuzzyComparisons int `koanf:"max_fuzzy_comparisons"`

	// TieBreak selects the equal-confidence policy: frequency or first_seen.
	TieBreak string `koanf:"tie_break"`

	// WorkerCount sets the number of parallel batch evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// StoreDriver selects the artifact store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StorePath is the SQLite database file used when StoreDriver is sqlite.
	StorePath string `koanf:"store_path"`

	// StoreCapacity bounds the memory store; <= 0 means unbounded.
	StoreCapacity int `koanf:"store_capacity"`

	// PipelineVersion is mixed into artifact keys so stale results are never reused.
	PipelineVersion int `koanf:"pipeline_version"`

	// ReportNameLimit caps missing/extra names printed in text reports.
	ReportNameLimit int `koanf:"report_name_limit"`

	// ReportErrorLimit caps errors printed per category in text reports.
	ReportErrorLimit int `koanf:"report_error_limit"`

	// Aliases maps alternative display names to the canonical display name.
	Aliases map[string]string `koanf:"aliases"`
}

// Default configuration values.
const (
	defaultMatchThreshold      = 80
	defaultMaxFuzzyComparisons = 250_000
	defaultStoreCapacity       = 1_024
	defaultReportNameLimit     = 10
	defaultReportErrorLimit    = 5
)

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		MatchThreshold:      defaultMatchThreshold,
		PrefixMatch:         true,
		MaxFuzzyComparisons: defaultMaxFuzzyComparisons,
		TieBreak:            TieBreakFrequency,
		WorkerCount:         runtime.NumCPU(),
		StoreDriver:         StoreMemory,
		StorePath:           "orgchart.db",
		StoreCapacity:       defaultStoreCapacity,
		PipelineVersion:     1,
		ReportNameLimit:     defaultReportNameLimit,
		ReportErrorLimit:    defaultReportErrorLimit,
		Aliases:             map[string]string{},
	}
}

// Accepted enum values.
const (
	TieBreakFrequency = "frequency"
	TieBreakFirstSeen = "first_seen"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)
