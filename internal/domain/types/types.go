// Package types contains the JSON wire shapes shared by the CLI and the
// HTTP API.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/okian/orgchart/internal/domain/model"
	"github.com/okian/orgchart/internal/domain/resolve"
	"github.com/okian/orgchart/internal/domain/scoring"
)

// Assertion is one upstream manager claim. A null or missing manager means
// the subject has no manager.
type Assertion struct {
	Subject    string  `json:"subject"`
	Manager    *string `json:"manager"`
	Confidence float64 `json:"confidence"`
}

// ToModel converts the wire assertion.
func (a Assertion) ToModel() model.ManagerAssertion {
	m := model.ManagerAssertion{Subject: a.Subject, Confidence: a.Confidence}
	if a.Manager != nil {
		m.Manager = *a.Manager
	}
	return m
}

// AssertionsToModel converts a batch of wire assertions.
func AssertionsToModel(in []Assertion) []model.ManagerAssertion {
	out := make([]model.ManagerAssertion, len(in))
	for i, a := range in {
		out[i] = a.ToModel()
	}
	return out
}

// AssertionSet is the input of one resolution. An empty Roster is derived
// from the assertion subjects.
type AssertionSet struct {
	Roster      []string          `json:"roster,omitempty"`
	Assertions  []Assertion       `json:"assertions"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// DecodeAssertionSet reads either a full AssertionSet object or a bare
// list of assertions.
func DecodeAssertionSet(raw []byte) (AssertionSet, error) {
	var set AssertionSet
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &set.Assertions); err != nil {
			return AssertionSet{}, fmt.Errorf("decode assertions: %w", err)
		}
		return set, nil
	}
	if err := json.Unmarshal(trimmed, &set); err != nil {
		return AssertionSet{}, fmt.Errorf("decode assertion set: %w", err)
	}
	return set, nil
}

// ChartEntry is one employee of a chart document.
type ChartEntry struct {
	Name          string   `json:"name"`
	Manager       *string  `json:"manager"`
	DirectReports []string `json:"direct_reports"`
	Teammates     []string `json:"teammates"`
	WorkingOn     string   `json:"working_on"`
}

// Chart is the JSON document form of an org chart.
type Chart struct {
	Entries []ChartEntry `json:"entries"`
}

// ToModel converts the wire entry.
func (e ChartEntry) ToModel() model.Entry {
	out := model.Entry{
		Name:          e.Name,
		DirectReports: e.DirectReports,
		Teammates:     e.Teammates,
		Annotation:    e.WorkingOn,
	}
	if e.Manager != nil {
		out.Manager = *e.Manager
	}
	return out
}

// EntryFromModel converts a document entry; empty values become null.
func EntryFromModel(e model.Entry) ChartEntry {
	return ChartEntry{
		Name:          e.Name,
		Manager:       Nullable(e.Manager),
		DirectReports: nonEmpty(e.DirectReports),
		Teammates:     nonEmpty(e.Teammates),
		WorkingOn:     e.Annotation,
	}
}

// Diagnostic is a resolution anomaly with display names.
type Diagnostic struct {
	Kind    string   `json:"kind"`
	Subject string   `json:"subject,omitempty"`
	Name    string   `json:"name,omitempty"`
	Cycle   []string `json:"cycle,omitempty"`
	Message string   `json:"message"`
}

// DiagnosticsFromResolution converts resolver diagnostics.
func DiagnosticsFromResolution(res *resolve.Resolution) []Diagnostic {
	out := make([]Diagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		wire := Diagnostic{
			Kind:    string(d.Kind),
			Subject: res.Display[d.Subject],
			Name:    d.Name,
			Message: d.Message,
		}
		for _, k := range d.Cycle {
			wire.Cycle = append(wire.Cycle, res.Display[k])
		}
		out = append(out, wire)
	}
	return out
}

// Coverage is the coverage section of a report.
type Coverage struct {
	TruthTotal     int      `json:"total_ground_truth"`
	PredictedTotal int      `json:"total_predicted"`
	Matched        int      `json:"matched"`
	CoveragePct    float64  `json:"coverage_pct"`
	Missing        []string `json:"missing_from_predicted"`
	Extra          []string `json:"extra_in_predicted"`
}

// ManagerError is one mis-scored relationship.
type ManagerError struct {
	Employee string  `json:"employee"`
	Expected *string `json:"expected_manager"`
	Got      *string `json:"got_manager"`
	Type     string  `json:"type"`
}

// Managers is the relationship accuracy section of a report.
type Managers struct {
	Accuracy   float64        `json:"accuracy"`
	Correct    int            `json:"correct"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	Errors     []ManagerError `json:"errors"`
}

// Match is one name correspondence.
type Match struct {
	Predicted string  `json:"predicted"`
	Truth     string  `json:"ground_truth"`
	Method    string  `json:"method"`
	Score     float64 `json:"score"`
	Category  string  `json:"category"`
}

// Report is the structured evaluation payload. Percentages are rounded to
// two decimals.
type Report struct {
	Coverage Coverage `json:"coverage"`
	Managers Managers `json:"managers"`
	Matches  []Match  `json:"matches"`
}

// ReportFromScoring converts a scoring report.
func ReportFromScoring(r *scoring.Report) Report {
	out := Report{
		Coverage: Coverage{
			TruthTotal:     r.Coverage.TruthTotal,
			PredictedTotal: r.Coverage.PredictedTotal,
			Matched:        r.Coverage.Matched,
			CoveragePct:    round2(r.CoveragePercent()),
			Missing:        orEmpty(r.Coverage.Missing),
			Extra:          orEmpty(r.Coverage.Extra),
		},
		Managers: Managers{
			Accuracy:   round2(r.AccuracyPercent()),
			Correct:    r.Correct,
			Total:      r.Scored,
			Categories: make(map[string]int, len(r.Categories)),
			Errors:     make([]ManagerError, 0, len(r.Errors)),
		},
		Matches: make([]Match, 0, len(r.Matches)),
	}
	for c, n := range r.Categories {
		out.Managers.Categories[string(c)] = n
	}
	for _, e := range r.Errors {
		out.Managers.Errors = append(out.Managers.Errors, ManagerError{
			Employee: e.Employee,
			Expected: Nullable(e.TrueManager),
			Got:      Nullable(e.PredictedManager),
			Type:     string(e.Category),
		})
	}
	for _, m := range r.Matches {
		out.Matches = append(out.Matches, Match{
			Predicted: m.Predicted,
			Truth:     m.Truth,
			Method:    string(m.Method),
			Score:     round2(m.Score),
			Category:  string(m.Category),
		})
	}
	return out
}

// Evaluation wraps a report with its run metadata.
type Evaluation struct {
	RunID  string `json:"run_id"`
	Cached bool   `json:"cached"`
	Report Report `json:"report"`
}

// Nullable returns nil for an empty string.
func Nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
