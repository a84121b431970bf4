package resolve

import (
	"cmp"
	"math"

	"github.com/okian/orgchart/internal/domain/identity"
)

// Selection tags which rule picked a subject's manager candidate.
type Selection string

// Selection values. New tie-break policies add a value and a TieBreaker;
// cycle repair only reads the resulting Decision.
const (
	SelectionNone       Selection = "none"
	SelectionSingle     Selection = "single_assertion"
	SelectionConfidence Selection = "confidence_tiebreak"
	SelectionMajority   Selection = "majority"
	SelectionFirstSeen  Selection = "first_seen"
)

// Candidate aggregates every assertion that names the same manager for one
// subject.
type Candidate struct {
	Key        identity.Key // EmptyKey for null or unresolvable names
	Name       string       // first raw spelling seen
	Null       bool
	Confidence float64 // highest confidence among its assertions
	Count      int     // number of assertions naming it
	FirstSeen  int     // index of the first assertion naming it
}

// TieBreaker orders candidates that share the top confidence.
type TieBreaker interface {
	// Selection is recorded on decisions this tie-breaker settles.
	Selection() Selection
	// Compare returns a positive number when a should win over b, negative
	// when b should win, and zero when it cannot tell them apart.
	Compare(a, b Candidate) int
}

type byFrequency struct{}

func (byFrequency) Selection() Selection { return SelectionMajority }

func (byFrequency) Compare(a, b Candidate) int { return cmp.Compare(a.Count, b.Count) }

type byFirstSeen struct{}

func (byFirstSeen) Selection() Selection { return SelectionFirstSeen }

func (byFirstSeen) Compare(a, b Candidate) int { return cmp.Compare(b.FirstSeen, a.FirstSeen) }

// Built-in tie-breakers.
var (
	// ByFrequency prefers the candidate asserted most often for the subject.
	ByFrequency TieBreaker = byFrequency{}
	// ByFirstSeen prefers the candidate asserted earliest. It always settles
	// a tie and is appended implicitly when missing.
	ByFirstSeen TieBreaker = byFirstSeen{}
)

// DefaultTieBreakers is most-frequent first, then first-seen.
func DefaultTieBreakers() []TieBreaker {
	return []TieBreaker{ByFrequency, ByFirstSeen}
}

// confidence maps NaN to -Inf so malformed confidences never win.
func confidence(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// choose picks the winning candidate. cands must be non-empty and ordered by
// FirstSeen.
func choose(cands []Candidate, tieBreakers []TieBreaker) (Candidate, Selection) {
	if len(cands) == 1 {
		return cands[0], SelectionSingle
	}

	best := math.Inf(-1)
	for _, c := range cands {
		best = math.Max(best, c.Confidence)
	}
	top := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Confidence == best {
			top = append(top, c)
		}
	}
	if len(top) == 1 {
		return top[0], SelectionConfidence
	}

	for _, tb := range tieBreakers {
		lead := top[0]
		for _, c := range top[1:] {
			if tb.Compare(c, lead) > 0 {
				lead = c
			}
		}
		kept := top[:0]
		for _, c := range top {
			if tb.Compare(c, lead) == 0 {
				kept = append(kept, c)
			}
		}
		top = kept
		if len(top) == 1 {
			return top[0], tb.Selection()
		}
	}
	// Unreachable with ByFirstSeen in the chain; keep the earliest anyway.
	return top[0], SelectionFirstSeen
}
