package hierarchy

import "github.com/okian/orgchart/internal/domain/identity"

// Option configures Build and FromEntries.
type Option func(*builder)

type builder struct {
	normalizer  *identity.Normalizer
	annotations map[string]string
	siblings    bool
}

func newBuilder(opts []Option) *builder {
	b := &builder{normalizer: identity.NewNormalizer(), siblings: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithNormalizer sets the normalizer used for document names and annotation
// keys.
func WithNormalizer(n *identity.Normalizer) Option {
	return func(b *builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// WithAnnotations attaches free-text work descriptions, keyed by display
// name, to the employees Build creates.
func WithAnnotations(annotations map[string]string) Option {
	return func(b *builder) {
		b.annotations = annotations
	}
}

// WithSiblingTeammates controls whether Build fills Teammates with the other
// reports of the same manager. Enabled by default.
func WithSiblingTeammates(enabled bool) Option {
	return func(b *builder) {
		b.siblings = enabled
	}
}
