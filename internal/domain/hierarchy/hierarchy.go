// Package hierarchy materializes validated org charts, either from a
// resolver mapping or from persisted document entries.
package hierarchy

import (
	"fmt"
	"slices"

	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/model"
	"github.com/okian/orgchart/internal/domain/resolve"
)

// Key aliases the canonical identity type.
type Key = identity.Key

// Build turns a resolution into an OrgChart. Any validation failure is
// wrapped in ErrInvariantViolation.
func Build(res *resolve.Resolution, opts ...Option) (*model.OrgChart, error) {
	if res == nil {
		return model.NewOrgChart(nil), nil
	}
	b := newBuilder(opts)

	annotations := make(map[Key]string, len(b.annotations))
	for name, text := range b.annotations {
		if k := b.normalizer.Key(name); !k.IsEmpty() {
			annotations[k] = text
		}
	}

	var siblings map[Key][]Key
	if b.siblings {
		siblings = make(map[Key][]Key)
		for _, k := range res.Order {
			if mgr := res.Managers[k]; !mgr.IsEmpty() {
				siblings[mgr] = append(siblings[mgr], k)
			}
		}
	}

	employees := make([]model.Employee, 0, len(res.Order))
	for _, k := range res.Order {
		e := model.Employee{
			Key:         k,
			DisplayName: res.Display[k],
			Manager:     res.Managers[k],
			Annotation:  annotations[k],
		}
		if !e.Manager.IsEmpty() {
			for _, peer := range siblings[e.Manager] {
				if peer != k {
					e.Teammates = append(e.Teammates, peer)
				}
			}
			slices.Sort(e.Teammates)
		}
		employees = append(employees, e)
	}

	chart := model.NewOrgChart(employees)
	if err := Validate(chart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}
	return chart, nil
}

// Validate re-checks every chart invariant: managers exist and are not the
// employee itself, direct reports mirror manager links, and every ancestor
// chain reaches a root within Len steps.
func Validate(chart *model.OrgChart) error {
	n := chart.Len()
	reports := 0
	for _, e := range chart.Employees() {
		if e.IsRoot() {
			continue
		}
		if e.Manager == e.Key {
			return fmt.Errorf("%w: %s", ErrSelfManaged, e.DisplayName)
		}
		if !chart.Has(e.Manager) {
			return fmt.Errorf("%w: %s reports to %s", ErrDanglingManager, e.DisplayName, e.Manager)
		}
	}
	for _, e := range chart.Employees() {
		for _, r := range e.DirectReports {
			if chart.Manager(r) != e.Key {
				return fmt.Errorf("%w: %s lists %s", ErrInconsistent, e.DisplayName, r)
			}
		}
		reports += len(e.DirectReports)
	}
	if reports != chart.Edges() {
		return fmt.Errorf("%w: %d reports for %d links", ErrInconsistent, reports, chart.Edges())
	}

	// Nodes proven to reach a root; walks stop as soon as they hit one.
	safe := make(map[Key]bool, n)
	var path []Key
	for _, start := range chart.Keys() {
		path = path[:0]
		cur := start
		for !cur.IsEmpty() && !safe[cur] {
			if len(path) > n {
				return fmt.Errorf("%w: through %s", ErrCycle, chart.DisplayName(start))
			}
			path = append(path, cur)
			cur = chart.Manager(cur)
		}
		for _, k := range path {
			safe[k] = true
		}
	}
	return nil
}

// FromEntries builds a chart from document entries. Unlike Build it trusts
// nothing: empty or duplicate names, unknown managers, self-management and
// cycles are all errors. Listed teammates are kept when they name other
// employees of the chart; listed direct reports are ignored in favour of the
// manager links.
func FromEntries(entries []model.Entry, opts ...Option) (*model.OrgChart, error) {
	b := newBuilder(opts)

	keys := make([]Key, len(entries))
	index := make(map[Key]int, len(entries))
	for i, en := range entries {
		k := b.normalizer.Key(en.Name)
		if k.IsEmpty() {
			return nil, fmt.Errorf("%w: entry %d (%q)", ErrEmptyName, i+1, en.Name)
		}
		if j, dup := index[k]; dup {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateEmployee, entries[j].Name, en.Name)
		}
		index[k] = i
		keys[i] = k
	}

	employees := make([]model.Employee, 0, len(entries))
	for i, en := range entries {
		e := model.Employee{Key: keys[i], DisplayName: en.Name, Annotation: en.Annotation}
		if en.Manager != "" {
			mgr := b.normalizer.Key(en.Manager)
			if _, ok := index[mgr]; !ok || mgr.IsEmpty() {
				return nil, fmt.Errorf("%w: %s reports to %q", ErrDanglingManager, en.Name, en.Manager)
			}
			if mgr == e.Key {
				return nil, fmt.Errorf("%w: %s", ErrSelfManaged, en.Name)
			}
			e.Manager = mgr
		}
		for _, name := range en.Teammates {
			t := b.normalizer.Key(name)
			if _, ok := index[t]; ok && t != e.Key && !slices.Contains(e.Teammates, t) {
				e.Teammates = append(e.Teammates, t)
			}
		}
		employees = append(employees, e)
	}

	chart := model.NewOrgChart(employees)
	if err := Validate(chart); err != nil {
		return nil, err
	}
	return chart, nil
}
