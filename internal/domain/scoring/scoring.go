// Package scoring compares a predicted chart with a ground-truth chart
// through a name correspondence.
package scoring

import (
	"github.com/okian/orgchart/internal/domain/matching"
	"github.com/okian/orgchart/internal/domain/model"
)

// Category classifies one matched employee's manager relationship.
type Category string

// Relationship categories.
const (
	CategoryCorrect        Category = "correct"
	CategoryWrongManager   Category = "wrong_manager"
	CategoryMissingManager Category = "missing_manager"
	CategoryExtraManager   Category = "extra_manager"
)

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{CategoryCorrect, CategoryWrongManager, CategoryMissingManager, CategoryExtraManager}
}

// ErrorRecord describes one mis-scored relationship with display names.
// Managers are empty when absent.
type ErrorRecord struct {
	Employee         string
	PredictedManager string
	TrueManager      string
	Category         Category
}

// MatchRecord is one matched employee with its relationship outcome.
type MatchRecord struct {
	Predicted string
	Truth     string
	Method    matching.Method
	Score     float64
	Category  Category
}

// Coverage summarizes how much of the ground truth was found.
type Coverage struct {
	TruthTotal     int
	PredictedTotal int
	Matched        int
	Ratio          float64  // Matched / TruthTotal, 0 for an empty truth
	Missing        []string // truth display names without a match
	Extra          []string // predicted display names without a match
}

// Report is the complete evaluation result.
type Report struct {
	Coverage   Coverage
	Correct    int
	Scored     int
	Accuracy   float64 // Correct / Scored, 0 when nothing was scored
	Categories map[Category]int
	Errors     []ErrorRecord
	Matches    []MatchRecord
}

// CoveragePercent returns coverage as a percentage.
func (r *Report) CoveragePercent() float64 { return 100 * r.Coverage.Ratio }

// AccuracyPercent returns manager accuracy as a percentage.
func (r *Report) AccuracyPercent() float64 { return 100 * r.Accuracy }

// ErrorsOf returns error records of one category, in scoring order.
func (r *Report) ErrorsOf(c Category) []ErrorRecord {
	var out []ErrorRecord
	for _, e := range r.Errors {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Score computes coverage and manager relationship accuracy. Unmatched
// employees count toward coverage only.
func Score(corr *matching.Correspondence, predicted, truth *model.OrgChart) *Report {
	r := &Report{
		Coverage: Coverage{
			TruthTotal:     truth.Len(),
			PredictedTotal: predicted.Len(),
			Matched:        corr.Len(),
		},
		Categories: make(map[Category]int, len(Categories())),
	}
	for _, c := range Categories() {
		r.Categories[c] = 0
	}
	if r.Coverage.TruthTotal > 0 {
		r.Coverage.Ratio = float64(r.Coverage.Matched) / float64(r.Coverage.TruthTotal)
	}
	if corr != nil {
		for _, k := range corr.Missing {
			r.Coverage.Missing = append(r.Coverage.Missing, truth.DisplayName(k))
		}
		for _, k := range corr.Extra {
			r.Coverage.Extra = append(r.Coverage.Extra, predicted.DisplayName(k))
		}
	}

	var pairs []matching.Pair
	if corr != nil {
		pairs = corr.Pairs
	}
	for _, p := range pairs {
		cat := classify(corr, predicted.Manager(p.Predicted), truth.Manager(p.Truth))
		r.Categories[cat]++
		r.Scored++
		r.Matches = append(r.Matches, MatchRecord{
			Predicted: predicted.DisplayName(p.Predicted),
			Truth:     truth.DisplayName(p.Truth),
			Method:    p.Method,
			Score:     p.Score,
			Category:  cat,
		})
		if cat == CategoryCorrect {
			r.Correct++
			continue
		}
		r.Errors = append(r.Errors, ErrorRecord{
			Employee:         truth.DisplayName(p.Truth),
			PredictedManager: predicted.DisplayName(predicted.Manager(p.Predicted)),
			TrueManager:      truth.DisplayName(truth.Manager(p.Truth)),
			Category:         cat,
		})
	}
	if r.Scored > 0 {
		r.Accuracy = float64(r.Correct) / float64(r.Scored)
	}
	return r
}

// classify maps the predicted manager into truth space and compares it with
// the true manager. A predicted manager that matched nobody is wrong.
func classify(corr *matching.Correspondence, predictedMgr, trueMgr model.Key) Category {
	switch {
	case predictedMgr.IsEmpty() && trueMgr.IsEmpty():
		return CategoryCorrect
	case predictedMgr.IsEmpty():
		return CategoryMissingManager
	case trueMgr.IsEmpty():
		return CategoryExtraManager
	}
	if mapped, ok := corr.Truth(predictedMgr); ok && mapped == trueMgr {
		return CategoryCorrect
	}
	return CategoryWrongManager
}
