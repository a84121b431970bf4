// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"sort"
	"strings"

	"github.com/okian/orgchart/internal/domain/identity"
)

// Key aliases the canonical identity type for brevity.
type Key = identity.Key

// ManagerAssertion is one upstream claim about who manages Subject.
// An empty Manager means "no manager". Confidence only orders claims.
type ManagerAssertion struct {
	Subject    string
	Manager    string
	Confidence float64
}

// IsNull reports whether the assertion claims the subject has no manager.
func (a ManagerAssertion) IsNull() bool {
	return strings.TrimSpace(a.Manager) == ""
}

// Employee is one person in a chart.
type Employee struct {
	Key           Key
	DisplayName   string
	Manager       Key   // identity.EmptyKey for roots
	DirectReports []Key // derived by NewOrgChart
	Teammates     []Key
	Annotation    string
}

// IsRoot reports whether the employee has no manager.
func (e Employee) IsRoot() bool { return e.Manager.IsEmpty() }

func (e Employee) clone() Employee {
	e.DirectReports = slices.Clone(e.DirectReports)
	e.Teammates = slices.Clone(e.Teammates)
	return e
}

// OrgChart is an immutable rooted forest keyed by canonical identity.
// Construct it through the hierarchy package, which validates invariants.
type OrgChart struct {
	employees map[Key]Employee
	order     []Key
}

// NewOrgChart stores employees and derives direct reports from the Manager
// edges; any DirectReports on the input are ignored. It performs no
// validation.
func NewOrgChart(employees []Employee) *OrgChart {
	c := &OrgChart{
		employees: make(map[Key]Employee, len(employees)),
		order:     make([]Key, 0, len(employees)),
	}
	for _, e := range employees {
		e = e.clone()
		e.DirectReports = nil
		if _, dup := c.employees[e.Key]; !dup {
			c.order = append(c.order, e.Key)
		}
		c.employees[e.Key] = e
	}
	sort.Slice(c.order, func(i, j int) bool {
		return c.less(c.order[i], c.order[j])
	})

	// Walking in chart order keeps every report list sorted.
	for _, k := range c.order {
		mgr := c.employees[k].Manager
		if m, ok := c.employees[mgr]; ok && !mgr.IsEmpty() {
			m.DirectReports = append(m.DirectReports, k)
			c.employees[mgr] = m
		}
	}
	return c
}

func (c *OrgChart) less(a, b Key) bool {
	if a != b {
		return a < b
	}
	return c.employees[a].DisplayName < c.employees[b].DisplayName
}

// Len returns the number of employees.
func (c *OrgChart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Has reports whether k names an employee of the chart.
func (c *OrgChart) Has(k Key) bool {
	if c == nil {
		return false
	}
	_, ok := c.employees[k]
	return ok
}

// Get returns a copy of the employee for k.
func (c *OrgChart) Get(k Key) (Employee, bool) {
	if c == nil {
		return Employee{}, false
	}
	e, ok := c.employees[k]
	if !ok {
		return Employee{}, false
	}
	return e.clone(), true
}

// Keys returns employee keys in chart order.
func (c *OrgChart) Keys() []Key {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}

// Employees returns copies of all employees in chart order.
func (c *OrgChart) Employees() []Employee {
	if c == nil {
		return nil
	}
	out := make([]Employee, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.employees[k].clone())
	}
	return out
}

// Manager returns the manager key of k, or EmptyKey.
func (c *OrgChart) Manager(k Key) Key {
	if c == nil {
		return identity.EmptyKey
	}
	return c.employees[k].Manager
}

// DisplayName returns the display name of k, or "" when unknown.
func (c *OrgChart) DisplayName(k Key) string {
	if c == nil {
		return ""
	}
	return c.employees[k].DisplayName
}

// Roots returns the keys of employees without a manager, in chart order.
func (c *OrgChart) Roots() []Key {
	if c == nil {
		return nil
	}
	var roots []Key
	for _, k := range c.order {
		if c.employees[k].IsRoot() {
			roots = append(roots, k)
		}
	}
	return roots
}

// Edges returns the number of manager links.
func (c *OrgChart) Edges() int {
	n := 0
	for _, k := range c.Keys() {
		if !c.employees[k].IsRoot() {
			n++
		}
	}
	return n
}

// Entry is one employee block of a persisted chart document, before names
// are normalized. An empty Manager means no manager.
type Entry struct {
	Name          string
	Manager       string
	DirectReports []string
	Teammates     []string
	Annotation    string
}
