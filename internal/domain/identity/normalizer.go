package identity

// Normalizer applies Normalize and then resolves aliases.
type Normalizer struct {
	aliases map[Key]Key
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAliases registers alternative display names. Both sides are normalized;
// entries whose either side normalizes to EmptyKey are ignored.
func WithAliases(aliases map[string]string) Option {
	return func(n *Normalizer) {
		for alias, canonical := range aliases {
			a, c := Normalize(alias), Normalize(canonical)
			if a.IsEmpty() || c.IsEmpty() || a == c {
				continue
			}
			n.aliases[a] = c
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{aliases: make(map[Key]Key)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Key normalizes name and maps it through the alias table. Aliases are
// resolved once; chains are not followed.
func (n *Normalizer) Key(name string) Key {
	k := Normalize(name)
	if n == nil {
		return k
	}
	if c, ok := n.aliases[k]; ok {
		return c
	}
	return k
}

// Aliases returns the number of registered aliases.
func (n *Normalizer) Aliases() int {
	if n == nil {
		return 0
	}
	return len(n.aliases)
}
