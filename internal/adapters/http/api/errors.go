package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrEmptyBatch  = errors.New("batch has no pairs")
	ErrBatchLimit  = errors.New("batch too large")
	ErrRenderReply = errors.New("render response failed")
)
