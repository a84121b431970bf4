// Package matching pairs predicted employees with ground-truth employees.
//
// Matching is two-phase and greedy: identical keys pair first, then the
// remaining names are scored and accepted highest score first. Unmatched is
// preferred to a wrong match, so nothing below the threshold pairs up.
package matching

import (
	"cmp"
	"slices"

	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/model"
)

// Key aliases the canonical identity type.
type Key = identity.Key

// Method records which phase produced a pair.
type Method string

// Match methods.
const (
	MethodExact Method = "exact"
	MethodFuzzy Method = "fuzzy"
)

// Defaults.
const (
	DefaultThreshold      = 80.0
	DefaultMaxComparisons = 250_000
)

// Pair is one accepted correspondence.
type Pair struct {
	Predicted Key
	Truth     Key
	Method    Method
	Score     float64
}

// Correspondence is a partial bijection between predicted and truth keys.
type Correspondence struct {
	Pairs   []Pair
	Extra   []Key // predicted keys without a truth counterpart
	Missing []Key // truth keys without a predicted counterpart

	toTruth     map[Key]Key
	toPredicted map[Key]Key
}

func newCorrespondence(pairs []Pair, extra, missing []Key) *Correspondence {
	c := &Correspondence{
		Pairs:       pairs,
		Extra:       extra,
		Missing:     missing,
		toTruth:     make(map[Key]Key, len(pairs)),
		toPredicted: make(map[Key]Key, len(pairs)),
	}
	for _, p := range pairs {
		c.toTruth[p.Predicted] = p.Truth
		c.toPredicted[p.Truth] = p.Predicted
	}
	return c
}

// Len returns the number of matched pairs.
func (c *Correspondence) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Pairs)
}

// Truth returns the truth key paired with a predicted key.
func (c *Correspondence) Truth(predicted Key) (Key, bool) {
	if c == nil {
		return identity.EmptyKey, false
	}
	k, ok := c.toTruth[predicted]
	return k, ok
}

// Predicted returns the predicted key paired with a truth key.
func (c *Correspondence) Predicted(truth Key) (Key, bool) {
	if c == nil {
		return identity.EmptyKey, false
	}
	k, ok := c.toPredicted[truth]
	return k, ok
}

// Count returns the number of pairs produced by method.
func (c *Correspondence) Count(method Method) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, p := range c.Pairs {
		if p.Method == method {
			n++
		}
	}
	return n
}

// Matcher finds correspondences between two name sets.
type Matcher struct {
	threshold      float64
	prefixMatch    bool
	maxComparisons int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold sets the minimum fuzzy score (0..100) for a pair.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 100 {
			m.threshold = threshold
		}
	}
}

// WithPrefixMatch lets a key that starts the other ("vic", "victor zhou")
// score at least the threshold.
func WithPrefixMatch(enabled bool) Option {
	return func(m *Matcher) {
		m.prefixMatch = enabled
	}
}

// WithMaxComparisons bounds the fuzzy phase. Above the bound only pairs
// sharing a token initial are scored; zero or less disables the bound.
func WithMaxComparisons(n int) Option {
	return func(m *Matcher) {
		m.maxComparisons = n
	}
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		threshold:      DefaultThreshold,
		prefixMatch:    true,
		maxComparisons: DefaultMaxComparisons,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the configured fuzzy threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// MatchCharts matches the employees of two charts.
func (m *Matcher) MatchCharts(predicted, truth *model.OrgChart) *Correspondence {
	return m.Match(predicted.Keys(), truth.Keys())
}

// Match pairs predicted keys with truth keys. Empty and repeated keys are
// ignored; input order decides ties.
func (m *Matcher) Match(predicted, truth []Key) *Correspondence {
	predicted, truth = distinct(predicted), distinct(truth)

	truthSet := make(map[Key]struct{}, len(truth))
	for _, k := range truth {
		truthSet[k] = struct{}{}
	}
	var pairs []Pair
	exact := make(map[Key]struct{})
	var restPred []Key
	for _, k := range predicted {
		if _, ok := truthSet[k]; ok {
			pairs = append(pairs, Pair{Predicted: k, Truth: k, Method: MethodExact, Score: 100})
			exact[k] = struct{}{}
			continue
		}
		restPred = append(restPred, k)
	}
	var restTruth []Key
	for _, k := range truth {
		if _, ok := exact[k]; !ok {
			restTruth = append(restTruth, k)
		}
	}

	usedPred := make([]bool, len(restPred))
	usedTruth := make([]bool, len(restTruth))
	for _, c := range m.candidates(restPred, restTruth) {
		if usedPred[c.i] || usedTruth[c.j] {
			continue
		}
		usedPred[c.i], usedTruth[c.j] = true, true
		pairs = append(pairs, Pair{Predicted: restPred[c.i], Truth: restTruth[c.j], Method: MethodFuzzy, Score: c.score})
	}

	var extra, missing []Key
	for i, k := range restPred {
		if !usedPred[i] {
			extra = append(extra, k)
		}
	}
	for j, k := range restTruth {
		if !usedTruth[j] {
			missing = append(missing, k)
		}
	}
	return newCorrespondence(pairs, extra, missing)
}

type candidate struct {
	i, j  int
	score float64
}

// candidates scores the eligible pairs at or above the threshold, ordered
// best first; ties keep predicted then truth order. Walking the result and
// skipping used names is the same as repeatedly taking the global maximum.
func (m *Matcher) candidates(pred, truth []Key) []candidate {
	var out []candidate
	consider := func(i, j int) {
		score := TokenSortRatio(pred[i], truth[j])
		if m.prefixMatch && score < m.threshold && isPrefixRelated(pred[i], truth[j]) {
			score = m.threshold
		}
		if score >= m.threshold {
			out = append(out, candidate{i: i, j: j, score: score})
		}
	}

	if m.maxComparisons <= 0 || len(pred)*len(truth) <= m.maxComparisons {
		for i := range pred {
			for j := range truth {
				consider(i, j)
			}
		}
	} else {
		buckets := make(map[rune][]int)
		for j, k := range truth {
			for _, r := range initials(k) {
				buckets[r] = append(buckets[r], j)
			}
		}
		seen := make([]int, len(truth))
		for i, k := range pred {
			for _, r := range initials(k) {
				for _, j := range buckets[r] {
					if seen[j] == i+1 {
						continue
					}
					seen[j] = i + 1
					consider(i, j)
				}
			}
		}
	}

	slices.SortFunc(out, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})
	return out
}

func distinct(keys []Key) []Key {
	seen := make(map[Key]struct{}, len(keys))
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if k.IsEmpty() {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
