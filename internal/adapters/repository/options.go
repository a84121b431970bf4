package repository

import "time"

// Option configures a store.
type Option func(*options)

type options struct {
	capacity              int
	metricsUpdateInterval time.Duration
}

func newOptions(opts []Option) options {
	o := options{
		capacity:              1024,
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCapacity bounds the number of stored artifacts; the oldest are
// evicted first. Zero or less means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}
