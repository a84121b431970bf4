package worker

import (
	"github.com/okian/orgchart/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithName sets the pool name for identification and logging.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(logger logger.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSize sets how many jobs run at once.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}
