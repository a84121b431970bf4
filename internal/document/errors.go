package document

import "errors"

// Parse errors. Every failure is fatal for the document.
var (
	ErrMissingHeader  = errors.New("section does not start with a '## Name' header")
	ErrEmptyName      = errors.New("employee header has no name")
	ErrMalformedField = errors.New("malformed field line")
	ErrDuplicateField = errors.New("field given twice")
	ErrInvalidJSON    = errors.New("invalid chart JSON")
	ErrUnknownFormat  = errors.New("unknown document format")
)
