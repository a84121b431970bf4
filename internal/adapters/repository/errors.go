package repository

import "errors"

// Sentinel errors for artifact stores.
var (
	ErrNotFound      = errors.New("artifact not found")
	ErrUnknownDriver = errors.New("unknown store driver")
)
