// Package resolve turns conflicting manager assertions into one manager per
// employee, repairing self references, dangling names and reporting cycles.
//
// Resolve never fails: every anomaly demotes the affected employee to a root
// and leaves a Diagnostic behind.
package resolve

import (
	"fmt"
	"slices"

	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/model"
)

// Key aliases the canonical identity type.
type Key = identity.Key

// DiagnosticKind classifies a resolution anomaly.
type DiagnosticKind string

// Diagnostic kinds.
const (
	KindUnknownSubject    DiagnosticKind = "unknown_subject"
	KindUnresolvableName  DiagnosticKind = "unresolvable_name"
	KindDanglingReference DiagnosticKind = "dangling_reference"
	KindSelfReference     DiagnosticKind = "self_reference"
	KindNoAssertion       DiagnosticKind = "no_assertion"
	KindCycleBroken       DiagnosticKind = "cycle_broken"
)

// Diagnostic records an anomaly that was repaired locally.
type Diagnostic struct {
	Kind    DiagnosticKind
	Subject Key    // EmptyKey when the subject itself was unusable
	Name    string // raw name involved, when any
	Cycle   []Key  // members of a broken cycle
	Message string
}

// Decision is the per-subject outcome of candidate selection.
type Decision struct {
	Subject    Key
	Winner     Candidate
	Selection  Selection
	Assertions int
}

// Repair records one manager edge removed to break a cycle.
type Repair struct {
	Subject    Key
	Manager    Key
	Confidence float64
	Cycle      []Key
}

// Resolution is the finalized manager mapping plus everything needed to
// explain it.
type Resolution struct {
	// Managers maps every roster key to its manager; EmptyKey marks roots.
	Managers    map[Key]Key
	Display     map[Key]string
	Order       []Key
	Decisions   map[Key]Decision
	Diagnostics []Diagnostic
	Repairs     []Repair
}

// Roots returns roster keys without a manager, in roster order.
func (r *Resolution) Roots() []Key {
	var roots []Key
	for _, k := range r.Order {
		if r.Managers[k].IsEmpty() {
			roots = append(roots, k)
		}
	}
	return roots
}

// DiagnosticsOf returns diagnostics of the given kind.
func (r *Resolution) DiagnosticsOf(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Resolver selects one manager per employee.
type Resolver struct {
	normalizer  *identity.Normalizer
	tieBreakers []TieBreaker
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNormalizer sets the name normalizer (and therefore the alias table).
func WithNormalizer(n *identity.Normalizer) Option {
	return func(r *Resolver) {
		if n != nil {
			r.normalizer = n
		}
	}
}

// WithTieBreakers replaces the equal-confidence policy chain.
func WithTieBreakers(tbs ...TieBreaker) Option {
	return func(r *Resolver) {
		r.tieBreakers = slices.Clone(tbs)
	}
}

// New creates a Resolver with the default policy.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		normalizer:  identity.NewNormalizer(),
		tieBreakers: DefaultTieBreakers(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !slices.Contains(r.tieBreakers, ByFirstSeen) {
		r.tieBreakers = append(r.tieBreakers, ByFirstSeen)
	}
	return r
}

type candidateID struct {
	null bool
	key  Key
}

// Resolve picks a manager for every roster member. roster holds display
// names of known employees; assertions are processed in order, which is the
// first-seen order used for tie-breaks.
func (r *Resolver) Resolve(roster []string, assertions []model.ManagerAssertion) *Resolution {
	res := &Resolution{
		Managers:  make(map[Key]Key, len(roster)),
		Display:   make(map[Key]string, len(roster)),
		Order:     make([]Key, 0, len(roster)),
		Decisions: make(map[Key]Decision, len(roster)),
	}

	for _, name := range roster {
		k := r.normalizer.Key(name)
		if k.IsEmpty() {
			res.diagnose(Diagnostic{Kind: KindUnresolvableName, Name: name, Message: "roster name normalizes to nothing"})
			continue
		}
		if _, dup := res.Display[k]; dup {
			continue
		}
		res.Display[k] = name
		res.Order = append(res.Order, k)
		res.Managers[k] = identity.EmptyKey
	}

	grouped := r.group(res, assertions)

	for _, subject := range res.Order {
		cands := grouped[subject]
		if len(cands) == 0 {
			res.Decisions[subject] = Decision{Subject: subject, Winner: Candidate{Null: true, FirstSeen: -1}, Selection: SelectionNone}
			res.diagnose(Diagnostic{Kind: KindNoAssertion, Subject: subject, Message: "no manager assertion; treated as root"})
			continue
		}
		winner, sel := choose(cands, r.tieBreakers)
		total := 0
		for _, c := range cands {
			total += c.Count
		}
		res.Decisions[subject] = Decision{Subject: subject, Winner: winner, Selection: sel, Assertions: total}
		res.Managers[subject] = res.link(subject, winner)
	}

	res.repairCycles()
	return res
}

// group buckets assertions per known subject and candidate, keeping
// candidates in first-seen order.
func (r *Resolver) group(res *Resolution, assertions []model.ManagerAssertion) map[Key][]Candidate {
	grouped := make(map[Key][]Candidate, len(res.Order))
	index := make(map[Key]map[candidateID]int, len(res.Order))
	unknown := make(map[string]struct{})

	for seq, a := range assertions {
		subject := r.normalizer.Key(a.Subject)
		if _, ok := res.Display[subject]; !ok || subject.IsEmpty() {
			if _, seen := unknown[a.Subject]; !seen {
				unknown[a.Subject] = struct{}{}
				res.diagnose(Diagnostic{Kind: KindUnknownSubject, Subject: subject, Name: a.Subject, Message: "assertion subject is not on the roster"})
			}
			continue
		}

		id := candidateID{null: a.IsNull()}
		if !id.null {
			id.key = r.normalizer.Key(a.Manager)
		}
		conf := confidence(a.Confidence)

		if index[subject] == nil {
			index[subject] = make(map[candidateID]int)
		}
		if i, ok := index[subject][id]; ok {
			c := &grouped[subject][i]
			c.Count++
			if conf > c.Confidence {
				c.Confidence = conf
			}
			continue
		}
		index[subject][id] = len(grouped[subject])
		grouped[subject] = append(grouped[subject], Candidate{
			Key:        id.key,
			Name:       a.Manager,
			Null:       id.null,
			Confidence: conf,
			Count:      1,
			FirstSeen:  seq,
		})
	}
	return grouped
}

// link validates the winning candidate and returns the manager key, or
// EmptyKey with a diagnostic.
func (res *Resolution) link(subject Key, winner Candidate) Key {
	switch {
	case winner.Null:
		return identity.EmptyKey
	case winner.Key.IsEmpty():
		res.diagnose(Diagnostic{Kind: KindUnresolvableName, Subject: subject, Name: winner.Name,
			Message: "manager name normalizes to nothing; treated as root"})
		return identity.EmptyKey
	case winner.Key == subject:
		res.diagnose(Diagnostic{Kind: KindSelfReference, Subject: subject, Name: winner.Name,
			Message: "employee asserted as own manager; treated as root"})
		return identity.EmptyKey
	}
	if _, ok := res.Display[winner.Key]; !ok {
		res.diagnose(Diagnostic{Kind: KindDanglingReference, Subject: subject, Name: winner.Name,
			Message: fmt.Sprintf("manager %q is not a known employee; treated as root", winner.Name)})
		return identity.EmptyKey
	}
	return winner.Key
}

func (res *Resolution) diagnose(d Diagnostic) {
	res.Diagnostics = append(res.Diagnostics, d)
}
