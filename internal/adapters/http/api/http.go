// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/document"
	"github.com/okian/orgchart/internal/domain/hierarchy"
	"github.com/okian/orgchart/internal/domain/types"
)

// Request limits.
const (
	maxBodyBytes  = 16 << 20
	maxBatchPairs = 256
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EvaluateDependencies
	ResolveDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	evaluateHandler *EvaluateHandler
	resolveHandler  *ResolveHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		evaluateHandler: NewEvaluateHandler(deps),
		resolveHandler:  NewResolveHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evaluate/batch", MetricsMiddleware(s.evaluateHandler.HandleBatch, "evaluate_batch"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/resolve", MetricsMiddleware(s.resolveHandler.HandleResolve, "resolve"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if ec, ok := w.(errorCoder); ok {
		ec.setErrorCode(code)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps a service error onto a status code and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, hierarchy.ErrInvariantViolation):
		return http.StatusInternalServerError, "invariant_violation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decode reads a JSON request body, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return nil
}

// evaluateRequest is the body of POST /evaluate and one pair of a batch.
// Format applies to both documents and defaults to markdown.
type evaluateRequest struct {
	Predicted string `json:"predicted"`
	Truth     string `json:"truth"`
	Format    string `json:"format,omitempty"`
}

func (e evaluateRequest) toInput() (service.EvaluateInput, error) {
	f := document.FormatMarkdown
	if e.Format != "" {
		var err error
		if f, err = document.ParseFormat(e.Format); err != nil {
			return service.EvaluateInput{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	}
	return service.EvaluateInput{
		Predicted: service.Document{Body: []byte(e.Predicted), Format: f},
		Truth:     service.Document{Body: []byte(e.Truth), Format: f},
	}, nil
}

type batchRequest struct {
	Pairs []evaluateRequest `json:"pairs"`
}

type batchItem struct {
	Index      int               `json:"index"`
	Evaluation *types.Evaluation `json:"evaluation,omitempty"`
	Error      *errorResponse    `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItem `json:"results"`
	Failed  int         `json:"failed"`
}

type resolveRequest = types.AssertionSet

type resolveResponse struct {
	RunID       string             `json:"run_id"`
	Cached      bool               `json:"cached"`
	Employees   int                `json:"employees"`
	Roots       []string           `json:"roots"`
	Entries     []types.ChartEntry `json:"entries"`
	Markdown    string             `json:"markdown"`
	Diagnostics []types.Diagnostic `json:"diagnostics"`
}

// drain discards what is left of a body so the connection can be reused.
func drain(r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
}
