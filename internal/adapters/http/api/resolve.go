package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/orgchart/internal/app"
	"github.com/okian/orgchart/internal/document"
	"github.com/okian/orgchart/internal/domain/types"
)

// ResolveDependencies defines the interface for resolution operations.
type ResolveDependencies interface {
	Resolve(ctx context.Context, in service.ResolveInput) (*service.ResolveResult, error)
}

// ResolveHandler handles resolve requests.
type ResolveHandler struct {
	deps ResolveDependencies
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(deps ResolveDependencies) *ResolveHandler {
	return &ResolveHandler{deps: deps}
}

// HandleResolve handles POST /resolve requests.
func (h *ResolveHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	defer drain(r)

	var req resolveRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if len(req.Roster) == 0 && len(req.Assertions) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: roster and assertions are both empty", ErrBadRequest))
		return
	}

	res, err := h.deps.Resolve(r.Context(), service.ResolveInput{
		Roster:      req.Roster,
		Assertions:  types.AssertionsToModel(req.Assertions),
		Annotations: req.Annotations,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var md strings.Builder
	if err := document.Render(&md, res.Chart); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("%w: %w", ErrRenderReply, err))
		return
	}

	resp := resolveResponse{
		RunID:       res.RunID,
		Cached:      res.Cached,
		Employees:   res.Chart.Len(),
		Roots:       []string{},
		Entries:     []types.ChartEntry{},
		Markdown:    md.String(),
		Diagnostics: res.Diagnostics,
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []types.Diagnostic{}
	}
	for _, k := range res.Chart.Roots() {
		resp.Roots = append(resp.Roots, res.Chart.DisplayName(k))
	}
	for _, e := range document.Entries(res.Chart) {
		resp.Entries = append(resp.Entries, types.EntryFromModel(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
