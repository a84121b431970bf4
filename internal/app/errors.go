package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidInput wraps document and request parse failures.
	ErrInvalidInput = errors.New("invalid input")
)
