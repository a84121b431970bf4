package hierarchy

import "errors"

var (
	// ErrInvariantViolation is returned by Build when a resolved mapping
	// still breaks a tree invariant. It signals a resolver defect and must
	// not be swallowed.
	ErrInvariantViolation = errors.New("hierarchy invariant violated")

	ErrEmptyName         = errors.New("employee name is empty")
	ErrDuplicateEmployee = errors.New("duplicate employee")
	ErrDanglingManager   = errors.New("manager is not an employee of the chart")
	ErrSelfManaged       = errors.New("employee manages itself")
	ErrCycle             = errors.New("reporting cycle")
	ErrInconsistent      = errors.New("direct reports do not match manager links")
)
