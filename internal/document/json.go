package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/orgchart/internal/domain/model"
	"github.com/okian/orgchart/internal/domain/types"
)

// ParseJSON reads a chart from either a bare entry list or an object with
// an "entries" field.
func ParseJSON(r io.Reader) ([]model.Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var wire []types.ChartEntry
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &wire)
	} else {
		var chart types.Chart
		err = json.Unmarshal(raw, &chart)
		wire = chart.Entries
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	entries := make([]model.Entry, 0, len(wire))
	for _, e := range wire {
		entries = append(entries, e.ToModel())
	}
	return entries, nil
}

// RenderJSON writes chart as an indented {"entries": [...]} document.
func RenderJSON(w io.Writer, chart *model.OrgChart) error {
	entries := Entries(chart)
	doc := types.Chart{Entries: make([]types.ChartEntry, 0, len(entries))}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, types.EntryFromModel(e))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
