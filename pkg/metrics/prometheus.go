// Package metrics provides Prometheus metrics for the orgchart service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the orgchart service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	ratioBuckets     []float64
	registry         prometheus.Registerer

	// Resolution metrics
	resolutions       prometheus.Counter
	resolvedEmployees prometheus.Histogram
	diagnostics       *prometheus.CounterVec
	cycleRepairs      prometheus.Counter
	invariantErrors   prometheus.Counter

	// Evaluation metrics
	evaluations     *prometheus.CounterVec
	matches         *prometheus.CounterVec
	coverage        prometheus.Histogram
	managerAccuracy prometheus.Histogram
	errorCategories *prometheus.CounterVec

	// Store metrics
	storeLookups *prometheus.CounterVec
	storeEntries prometheus.Gauge

	// Batch metrics
	batchJobs       *prometheus.CounterVec
	batchJobLatency prometheus.Histogram
	workerCount     prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "orgchart",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		ratioBuckets:     prometheus.LinearBuckets(0.1, 0.1, 10),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.resolutions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolutions_total",
		Help:      "Total number of assertion sets resolved into a chart",
	})

	m.resolvedEmployees = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolved_employees",
		Help:      "Number of employees per resolved chart",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	m.diagnostics = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "diagnostics_total",
		Help:      "Resolution diagnostics by kind",
	}, []string{"kind"})

	m.cycleRepairs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycle_repairs_total",
		Help:      "Manager edges removed to break reporting cycles",
	})

	m.invariantErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invariant_violations_total",
		Help:      "Hierarchy validation failures after resolution",
	})

	m.evaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluations_total",
		Help:      "Evaluations by outcome",
	}, []string{"outcome"})

	m.matches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "name_matches_total",
		Help:      "Name correspondences by match method",
	}, []string{"method"})

	m.coverage = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "coverage_ratio",
		Help:      "Fraction of ground-truth employees matched per evaluation",
		Buckets:   m.ratioBuckets,
	})

	m.managerAccuracy = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "manager_accuracy_ratio",
		Help:      "Manager relationship accuracy per evaluation",
		Buckets:   m.ratioBuckets,
	})

	m.errorCategories = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "relationship_outcomes_total",
		Help:      "Scored manager relationships by category",
	}, []string{"category"})

	m.storeLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "lookups_total",
		Help:      "Artifact store lookups by stage and result",
	}, []string{"stage", "result"})

	m.storeEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "entries",
		Help:      "Artifacts currently held in the store",
	})

	m.batchJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "batch",
		Name:      "jobs_total",
		Help:      "Batch evaluation jobs by outcome",
	}, []string{"outcome"})

	m.batchJobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "batch",
		Name:      "job_latency_milliseconds",
		Help:      "Latency of a single batch evaluation job in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "batch",
		Name:      "worker_count",
		Help:      "Configured number of batch workers",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses by endpoint, type and severity",
	}, []string{"endpoint", "error_type", "severity"})
}

// RecordResolution records one finished resolution of the given size.
func RecordResolution(employees int) {
	globalManager.resolutions.Inc()
	globalManager.resolvedEmployees.Observe(float64(employees))
}

// RecordDiagnostic counts a resolution diagnostic of the given kind.
func RecordDiagnostic(kind string) {
	globalManager.diagnostics.WithLabelValues(kind).Inc()
}

// RecordCycleRepair counts one removed cycle edge.
func RecordCycleRepair() {
	globalManager.cycleRepairs.Inc()
}

// RecordInvariantViolation counts a hierarchy validation failure.
func RecordInvariantViolation() {
	globalManager.invariantErrors.Inc()
}

// RecordEvaluation counts an evaluation by outcome ("ok", "parse_error", ...).
func RecordEvaluation(outcome string) {
	globalManager.evaluations.WithLabelValues(outcome).Inc()
}

// RecordMatches adds n correspondences found with method.
func RecordMatches(method string, n int) {
	globalManager.matches.WithLabelValues(method).Add(float64(n))
}

// ObserveScores records the headline numbers of an evaluation.
func ObserveScores(coverage, accuracy float64) {
	globalManager.coverage.Observe(coverage)
	globalManager.managerAccuracy.Observe(accuracy)
}

// RecordRelationships adds n scored relationships of the given category.
func RecordRelationships(category string, n int) {
	globalManager.errorCategories.WithLabelValues(category).Add(float64(n))
}

// RecordStoreLookup records a store lookup for stage; hit=false means miss.
func RecordStoreLookup(stage string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.storeLookups.WithLabelValues(stage, result).Inc()
}

// UpdateStoreEntries sets the number of stored artifacts.
func UpdateStoreEntries(count int) {
	globalManager.storeEntries.Set(float64(count))
}

// RecordBatchJob records a batch job outcome and its latency.
func RecordBatchJob(outcome string, latencyMs float64) {
	globalManager.batchJobs.WithLabelValues(outcome).Inc()
	globalManager.batchJobLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured batch worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType, severity).Inc()
}

// GetRegistry returns the custom metrics registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
