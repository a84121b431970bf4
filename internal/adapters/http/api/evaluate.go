package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/domain/types"
)

// EvaluateDependencies defines the interface for evaluation operations.
type EvaluateDependencies interface {
	Evaluate(ctx context.Context, in service.EvaluateInput) (*service.Evaluation, error)
	EvaluateBatch(ctx context.Context, pairs []service.EvaluateInput) []service.BatchResult
	RenderText(w io.Writer, ev *service.Evaluation) error
}

// EvaluateHandler handles evaluation requests.
type EvaluateHandler struct {
	deps EvaluateDependencies
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps EvaluateDependencies) *EvaluateHandler {
	return &EvaluateHandler{deps: deps}
}

// HandleEvaluate handles POST /evaluate requests. ?format=text returns the
// human-readable report instead of JSON.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	defer drain(r)

	var req evaluateRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ev, err := h.deps.Evaluate(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		var buf bytes.Buffer
		if err := h.deps.RenderText(&buf, ev); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%w: %w", ErrRenderReply, err))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, toEvaluation(ev))
}

// HandleBatch handles POST /evaluate/batch requests. Per-pair failures are
// reported inline; the request itself only fails on a malformed body.
func (h *EvaluateHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	defer drain(r)

	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	switch {
	case len(req.Pairs) == 0:
		writeError(w, http.StatusBadRequest, "bad_request", ErrEmptyBatch)
		return
	case len(req.Pairs) > maxBatchPairs:
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %d pairs, limit %d", ErrBatchLimit, len(req.Pairs), maxBatchPairs))
		return
	}

	items := make([]batchItem, len(req.Pairs))
	inputs := make([]service.EvaluateInput, 0, len(req.Pairs))
	valid := make([]int, 0, len(req.Pairs))
	for i, p := range req.Pairs {
		items[i].Index = i
		in, err := p.toInput()
		if err != nil {
			_, code := classify(err)
			items[i].Error = &errorResponse{Code: code, Message: err.Error()}
			continue
		}
		inputs = append(inputs, in)
		valid = append(valid, i)
	}

	for j, res := range h.deps.EvaluateBatch(r.Context(), inputs) {
		i := valid[j]
		if res.Err != nil {
			_, code := classify(res.Err)
			items[i].Error = &errorResponse{Code: code, Message: res.Err.Error()}
			continue
		}
		ev := toEvaluation(res.Evaluation)
		items[i].Evaluation = &ev
	}

	resp := batchResponse{Results: items}
	for _, it := range items {
		if it.Error != nil {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toEvaluation(ev *service.Evaluation) types.Evaluation {
	return types.Evaluation{
		RunID:  ev.RunID,
		Cached: ev.Cached,
		Report: types.ReportFromScoring(ev.Report),
	}
}
