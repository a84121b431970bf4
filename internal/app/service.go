// Package service wires the resolution and evaluation engines to the
// artifact store, the batch pool, logging and metrics. The HTTP API and the
// CLI both drive it.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	workerpool "github.com/okian/orgchart/internal/adapters/mq/worker"
	"github.com/okian/orgchart/internal/adapters/repository"
	"github.com/okian/orgchart/internal/config"
	"github.com/okian/orgchart/internal/document"
	"github.com/okian/orgchart/internal/domain/hierarchy"
	"github.com/okian/orgchart/internal/domain/identity"
	"github.com/okian/orgchart/internal/domain/matching"
	"github.com/okian/orgchart/internal/domain/model"
	"github.com/okian/orgchart/internal/domain/resolve"
	"github.com/okian/orgchart/internal/domain/scoring"
	"github.com/okian/orgchart/internal/domain/types"
	"github.com/okian/orgchart/internal/report"
	"github.com/okian/orgchart/pkg/logger"
	"github.com/okian/orgchart/pkg/metrics"
)

// Evaluation outcomes recorded in metrics.
const (
	outcomeOK         = "ok"
	outcomeCached     = "cached"
	outcomeParseError = "parse_error"
)

// Document is a chart document body with its format.
type Document struct {
	Body   []byte
	Format document.Format
}

// EvaluateInput pairs a predicted chart document with its ground truth.
type EvaluateInput struct {
	Predicted Document
	Truth     Document
}

// Evaluation is one scored comparison.
type Evaluation struct {
	RunID  string
	Cached bool
	Report *scoring.Report
}

// BatchResult is the outcome of one pair of a batch, in input order.
type BatchResult struct {
	Evaluation *Evaluation
	Err        error
}

// ResolveInput is everything the aggregator consumes. An empty Roster is
// derived from the assertion subjects. Annotations map display names to
// free-text "working on" notes.
type ResolveInput struct {
	Roster      []string
	Assertions  []model.ManagerAssertion
	Annotations map[string]string
}

// ResolveResult is a finalized chart plus the diagnostics that explain it.
type ResolveResult struct {
	RunID       string
	Cached      bool
	Chart       *model.OrgChart
	Diagnostics []types.Diagnostic
}

// resolveArtifact is the cached form of a ResolveResult. The chart is kept
// in its JSON document form, which round-trips every display name.
type resolveArtifact struct {
	Chart       json.RawMessage    `json:"chart"`
	Diagnostics []types.Diagnostic `json:"diagnostics"`
}

// Service implements the API dependencies for the evaluation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	normalizer *identity.Normalizer
	resolver   *resolve.Resolver
	matcher    *matching.Matcher
	pool       *workerpool.Pool

	// Configuration
	storeDriver    string
	storePath      string
	storeCapacity  int
	threshold      float64
	prefixMatch    bool
	maxComparisons int
	tieBreak       string
	aliases        map[string]string
	workerCount    int
	version        int
	nameLimit      int
	errorLimit     int

	// State
	started     bool
	resolutions atomic.Int64
	evaluations atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration. The engines are
// usable immediately; Start attaches the artifact store.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:    repository.DriverMemory,
		threshold:      matching.DefaultThreshold,
		prefixMatch:    true,
		maxComparisons: matching.DefaultMaxComparisons,
		tieBreak:       config.TieBreakFrequency,
		workerCount:    runtime.NumCPU(),
		version:        1,
		nameLimit:      report.DefaultNameLimit,
		errorLimit:     report.DefaultErrorLimit,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}

	s.normalizer = identity.NewNormalizer(identity.WithAliases(s.aliases))
	s.resolver = resolve.New(
		resolve.WithNormalizer(s.normalizer),
		resolve.WithTieBreakers(tieBreakers(s.tieBreak)...),
	)
	s.matcher = matching.New(
		matching.WithThreshold(s.threshold),
		matching.WithPrefixMatch(s.prefixMatch),
		matching.WithMaxComparisons(s.maxComparisons),
	)
	s.pool = workerpool.NewPool(
		workerpool.WithName("batch"),
		workerpool.WithSize(s.workerCount),
		workerpool.WithLogger(s.logger),
	)
	return s
}

func tieBreakers(policy string) []resolve.TieBreaker {
	if policy == config.TieBreakFirstSeen {
		return []resolve.TieBreaker{resolve.ByFirstSeen}
	}
	return resolve.DefaultTieBreakers()
}

// Options maps a loaded configuration onto service options.
func Options(cfg *config.Config) []Option {
	return []Option{
		WithStoreDriver(cfg.StoreDriver, cfg.StorePath, cfg.StoreCapacity),
		WithMatchThreshold(cfg.MatchThreshold),
		WithPrefixMatch(cfg.PrefixMatch),
		WithMaxFuzzyComparisons(cfg.MaxFuzzyComparisons),
		WithTieBreak(cfg.TieBreak),
		WithAliases(cfg.Aliases),
		WithWorkerCount(cfg.WorkerCount),
		WithPipelineVersion(cfg.PipelineVersion),
		WithReportLimits(cfg.ReportNameLimit, cfg.ReportErrorLimit),
	}
}

// Start opens the artifact store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting orgchart service...")

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeDriver, s.storePath, repository.WithCapacity(s.storeCapacity))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using artifact store", logger.String("driver", s.storeDriver))
	}

	s.started = true
	s.logger.Info(ctx, "orgchart service started",
		logger.Int("workers", s.pool.Size()),
		logger.Float64("matchThreshold", s.threshold),
		logger.String("tieBreak", s.tieBreak),
		logger.Int("aliases", s.normalizer.Aliases()),
	)
	return nil
}

// Stop closes the artifact store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping orgchart service...")
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
	}

	s.started = false
	s.logger.Info(context.Background(), "orgchart service stopped")
}

// Resolve aggregates assertions into a validated chart. Anomalies become
// diagnostics; only an invariant violation after repair is an error.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (*ResolveResult, error) {
	key := ""
	if payload, err := json.Marshal(in); err == nil {
		key = repository.ContentKey(repository.StageResolve, s.version, s.fingerprint(), payload)
	}

	if raw, ok := s.lookup(ctx, repository.StageResolve, key); ok {
		var art resolveArtifact
		if err := json.Unmarshal(raw, &art); err == nil {
			chart, err := document.LoadChart(bytes.NewReader(art.Chart), document.FormatJSON, hierarchy.WithNormalizer(s.normalizer))
			if err == nil {
				return &ResolveResult{RunID: uuid.NewString(), Cached: true, Chart: chart, Diagnostics: art.Diagnostics}, nil
			}
		}
		s.logger.Warn(ctx, "discarding unreadable cached chart", logger.String("key", key))
	}

	roster := in.Roster
	if len(roster) == 0 {
		roster = resolve.RosterFromAssertions(in.Assertions)
	}
	res := s.resolver.Resolve(roster, in.Assertions)

	chart, err := hierarchy.Build(res,
		hierarchy.WithNormalizer(s.normalizer),
		hierarchy.WithAnnotations(in.Annotations),
	)
	if err != nil {
		metrics.RecordInvariantViolation()
		s.logger.Error(ctx, "resolved chart violates invariants", logger.Error(err))
		return nil, err
	}

	metrics.RecordResolution(chart.Len())
	for _, d := range res.Diagnostics {
		metrics.RecordDiagnostic(string(d.Kind))
	}
	for range res.Repairs {
		metrics.RecordCycleRepair()
	}
	s.resolutions.Add(1)

	out := &ResolveResult{
		RunID:       uuid.NewString(),
		Chart:       chart,
		Diagnostics: types.DiagnosticsFromResolution(res),
	}
	s.logger.Info(ctx, "chart resolved",
		logger.String("run", out.RunID),
		logger.Int("employees", chart.Len()),
		logger.Int("roots", len(chart.Roots())),
		logger.Int("diagnostics", len(out.Diagnostics)),
		logger.Int("repairs", len(res.Repairs)),
	)

	var doc bytes.Buffer
	if err := document.RenderJSON(&doc, chart); err == nil {
		if raw, err := json.Marshal(resolveArtifact{Chart: doc.Bytes(), Diagnostics: out.Diagnostics}); err == nil {
			s.save(ctx, key, raw)
		}
	}
	return out, nil
}

// Evaluate parses both documents, matches names and scores manager
// relationships. A document that fails to parse aborts the run with
// ErrInvalidInput; nothing is scored partially.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	key := repository.ContentKey(repository.StageEvaluate, s.version,
		s.fingerprint(),
		[]byte(in.Predicted.Format), in.Predicted.Body,
		[]byte(in.Truth.Format), in.Truth.Body,
	)

	if raw, ok := s.lookup(ctx, repository.StageEvaluate, key); ok {
		var r scoring.Report
		if err := json.Unmarshal(raw, &r); err == nil {
			metrics.RecordEvaluation(outcomeCached)
			s.evaluations.Add(1)
			return &Evaluation{RunID: runID, Cached: true, Report: &r}, nil
		}
		s.logger.Warn(ctx, "discarding unreadable cached report", logger.String("key", key))
	}

	predicted, err := s.load(in.Predicted, "predicted")
	if err != nil {
		metrics.RecordEvaluation(outcomeParseError)
		s.logger.Warn(ctx, "evaluation aborted", logger.String("run", runID), logger.Error(err))
		return nil, err
	}
	truth, err := s.load(in.Truth, "ground truth")
	if err != nil {
		metrics.RecordEvaluation(outcomeParseError)
		s.logger.Warn(ctx, "evaluation aborted", logger.String("run", runID), logger.Error(err))
		return nil, err
	}

	corr := s.matcher.MatchCharts(predicted, truth)
	r := scoring.Score(corr, predicted, truth)

	metrics.RecordEvaluation(outcomeOK)
	metrics.RecordMatches(string(matching.MethodExact), corr.Count(matching.MethodExact))
	metrics.RecordMatches(string(matching.MethodFuzzy), corr.Count(matching.MethodFuzzy))
	metrics.ObserveScores(r.Coverage.Ratio, r.Accuracy)
	for c, n := range r.Categories {
		metrics.RecordRelationships(string(c), n)
	}
	s.evaluations.Add(1)

	s.logger.Info(ctx, "evaluation finished",
		logger.String("run", runID),
		logger.Int("truth", r.Coverage.TruthTotal),
		logger.Int("predicted", r.Coverage.PredictedTotal),
		logger.Int("matched", r.Coverage.Matched),
		logger.Float64("coverage", r.CoveragePercent()),
		logger.Float64("accuracy", r.AccuracyPercent()),
	)

	if raw, err := json.Marshal(r); err == nil {
		s.save(ctx, key, raw)
	}
	return &Evaluation{RunID: runID, Report: r}, nil
}

// EvaluateBatch evaluates every pair on the batch pool. A failing pair
// never affects the others.
func (s *Service) EvaluateBatch(ctx context.Context, pairs []EvaluateInput) []BatchResult {
	jobs := make([]workerpool.Job[*Evaluation], len(pairs))
	for i, in := range pairs {
		jobs[i] = func(ctx context.Context) (*Evaluation, error) {
			return s.Evaluate(ctx, in)
		}
	}

	results := workerpool.Run(ctx, s.pool, jobs)
	out := make([]BatchResult, len(results))
	failed := 0
	for i, r := range results {
		out[i] = BatchResult{Evaluation: r.Value, Err: r.Err}
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info(ctx, "batch finished", logger.Int("pairs", len(pairs)), logger.Int("failed", failed))
	return out
}

// RenderText writes the human-readable report for ev.
func (s *Service) RenderText(w io.Writer, ev *Evaluation) error {
	return report.Text(w, ev.Report,
		report.WithRunID(ev.RunID),
		report.WithNameLimit(s.nameLimit),
		report.WithErrorLimit(s.errorLimit),
	)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.pool.Size(),
		"matchThreshold":  s.threshold,
		"tieBreak":        s.tieBreak,
		"pipelineVersion": s.version,
		"resolutions":     s.resolutions.Load(),
		"evaluations":     s.evaluations.Load(),
		"cacheHits":       s.cacheHits.Load(),
		"cacheMisses":     s.cacheMisses.Load(),
	}

	if s.started && s.store != nil {
		entries := s.store.Count(context.Background())
		stats["storeDriver"] = s.storeDriver
		stats["storeEntries"] = entries
		metrics.UpdateStoreEntries(entries)
	}
	metrics.UpdateWorkerCount(s.pool.Size())

	return stats
}

func (s *Service) load(doc Document, role string) (*model.OrgChart, error) {
	chart, err := document.LoadChart(bytes.NewReader(doc.Body), doc.Format, hierarchy.WithNormalizer(s.normalizer))
	if err != nil {
		return nil, fmt.Errorf("%w: %s document: %w", ErrInvalidInput, role, err)
	}
	return chart, nil
}

// lookup reads a cached artifact. Store failures count as misses.
func (s *Service) lookup(ctx context.Context, stage, key string) ([]byte, bool) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil || key == "" {
		return nil, false
	}

	raw, err := store.Get(ctx, key)
	switch {
	case err == nil:
		s.cacheHits.Add(1)
		metrics.RecordStoreLookup(stage, true)
		return raw, true
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn(ctx, "artifact lookup failed", logger.String("key", key), logger.Error(err))
	}
	s.cacheMisses.Add(1)
	metrics.RecordStoreLookup(stage, false)
	return nil, false
}

func (s *Service) save(ctx context.Context, key string, raw []byte) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil || key == "" {
		return
	}
	if err := store.Put(ctx, key, raw); err != nil {
		s.logger.Warn(ctx, "artifact store failed", logger.String("key", key), logger.Error(err))
	}
}

// fingerprint captures every setting that changes engine output.
func (s *Service) fingerprint() []byte {
	aliases := make([]string, 0, len(s.aliases))
	for a, c := range s.aliases {
		aliases = append(aliases, a+"="+c)
	}
	slices.Sort(aliases)
	return fmt.Appendf(nil, "threshold=%g prefix=%t max=%d tie=%s aliases=%q",
		s.threshold, s.prefixMatch, s.maxComparisons, s.tieBreak, aliases)
}
