// Package report renders evaluation reports for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/okian/orgchart/internal/domain/scoring"
	"github.com/okian/orgchart/internal/domain/types"
)

// Default list limits for the text report.
const (
	DefaultNameLimit  = 10
	DefaultErrorLimit = 5
)

// Option configures Text.
type Option func(*options)

type options struct {
	nameLimit  int
	errorLimit int
	runID      string
}

// WithNameLimit caps the missing and extra name lists.
func WithNameLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.nameLimit = n
		}
	}
}

// WithErrorLimit caps the errors shown per category.
func WithErrorLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.errorLimit = n
		}
	}
}

// WithRunID prints the evaluation run id in the title.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// Text writes the human-readable summary.
func Text(w io.Writer, r *scoring.Report, opts ...Option) error {
	o := options{nameLimit: DefaultNameLimit, errorLimit: DefaultErrorLimit}
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	b.WriteString("ORG CHART EVALUATION RESULTS")
	if o.runID != "" {
		fmt.Fprintf(&b, " (%s)", o.runID)
	}
	b.WriteString("\n\n")

	names := newTable(true)
	names.AppendHeader(table.Row{"Name matching", ""})
	names.AppendRows([]table.Row{
		{"Ground truth names", r.Coverage.TruthTotal},
		{"Predicted names", r.Coverage.PredictedTotal},
		{"Matched", fmt.Sprintf("%d (%.1f%%)", r.Coverage.Matched, r.CoveragePercent())},
		{"Unmatched (ground truth)", len(r.Coverage.Missing)},
		{"Unmatched (predicted)", len(r.Coverage.Extra)},
	})
	b.WriteString(names.Render())
	b.WriteString("\n")

	writeNames(&b, "Missing from predicted", r.Coverage.Missing, o.nameLimit)
	writeNames(&b, "Extra in predicted", r.Coverage.Extra, o.nameLimit)

	acc := newTable(true)
	acc.AppendHeader(table.Row{"Manager relationships", ""})
	acc.AppendRow(table.Row{"Employee coverage", fmt.Sprintf("%.1f%% (%d/%d)", r.CoveragePercent(), r.Coverage.Matched, r.Coverage.TruthTotal)})
	acc.AppendRow(table.Row{"Accuracy", fmt.Sprintf("%.1f%% (%d/%d)", r.AccuracyPercent(), r.Correct, r.Scored)})
	acc.AppendSeparator()
	for _, c := range scoring.Categories() {
		acc.AppendRow(table.Row{humanize(string(c)), r.Categories[c]})
	}
	b.WriteString("\n")
	b.WriteString(acc.Render())
	b.WriteString("\n")

	for _, c := range scoring.Categories() {
		errs := r.ErrorsOf(c)
		if len(errs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", humanize(string(c)), len(errs))
		t := newTable(false)
		t.AppendHeader(table.Row{"Employee", "Expected", "Got"})
		for _, e := range errs[:min(len(errs), o.errorLimit)] {
			t.AppendRow(table.Row{e.Employee, orNone(e.TrueManager), orNone(e.PredictedManager)})
		}
		if more := len(errs) - o.errorLimit; more > 0 {
			t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", more), "", ""})
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nName matching: %.1f%%  Manager accuracy: %.1f%%\n", r.CoveragePercent(), r.AccuracyPercent())

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes the structured payload.
func JSON(w io.Writer, r *scoring.Report) error {
	return writeJSON(w, types.ReportFromScoring(r))
}

// Evaluation writes a report together with its run metadata.
func Evaluation(w io.Writer, runID string, cached bool, r *scoring.Report) error {
	return writeJSON(w, types.Evaluation{RunID: runID, Cached: cached, Report: types.ReportFromScoring(r)})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a light-boxed table; numeric right-aligns the second
// column of two-column summaries.
func newTable(numeric bool) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	if numeric {
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	}
	return t
}

func writeNames(b *strings.Builder, heading string, names []string, limit int) {
	if len(names) == 0 {
		return
	}
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	fmt.Fprintf(b, "\n%s (%d):\n", heading, len(sorted))
	for _, n := range sorted[:min(len(sorted), limit)] {
		fmt.Fprintf(b, "  - %s\n", n)
	}
	if more := len(sorted) - limit; more > 0 {
		fmt.Fprintf(b, "  ... and %d more\n", more)
	}
}

func humanize(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
