package service

import (
	"maps"

	"github.com/okian/orgchart/internal/adapters/repository"
	"github.com/okian/orgchart/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects an artifact store. The service takes ownership and
// closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStoreDriver selects the store Start opens when none was injected.
func WithStoreDriver(driver, path string, capacity int) Option {
	return func(s *Service) {
		s.storeDriver = driver
		s.storePath = path
		s.storeCapacity = capacity
	}
}

// WithMatchThreshold sets the fuzzy name match threshold (0, 100].
func WithMatchThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 100 {
			s.threshold = threshold
		}
	}
}

// WithPrefixMatch toggles prefix-related name matching.
func WithPrefixMatch(enabled bool) Option {
	return func(s *Service) {
		s.prefixMatch = enabled
	}
}

// WithMaxFuzzyComparisons bounds the fuzzy phase; <= 0 disables the bound.
func WithMaxFuzzyComparisons(n int) Option {
	return func(s *Service) {
		s.maxComparisons = n
	}
}

// WithTieBreak selects the equal-confidence policy by name.
func WithTieBreak(policy string) Option {
	return func(s *Service) {
		if policy != "" {
			s.tieBreak = policy
		}
	}
}

// WithAliases registers alternative display names for identity resolution.
func WithAliases(aliases map[string]string) Option {
	return func(s *Service) {
		s.aliases = maps.Clone(aliases)
	}
}

// WithWorkerCount sets the number of parallel batch evaluations.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithPipelineVersion is mixed into every artifact key.
func WithPipelineVersion(version int) Option {
	return func(s *Service) {
		s.version = version
	}
}

// WithReportLimits caps the names and per-category errors in text reports.
func WithReportLimits(names, errors int) Option {
	return func(s *Service) {
		if names > 0 {
			s.nameLimit = names
		}
		if errors > 0 {
			s.errorLimit = errors
		}
	}
}
