package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for readiness operations.
type Metrics struct {
	AssessmentsCreated   prometheus.Counter
	AssessmentsCompleted prometheus.Counter
	RiskFlagsDetected    *prometheus.CounterVec
	RiskFlagsResolved    *prometheus.CounterVec
	AutoResolutions      *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	ScoreDistribution    prometheus.Histogram

	FactEventsProcessed  *prometheus.CounterVec
	ConcurrencyConflicts prometheus.Counter

	SweepDuration    prometheus.Histogram
	SweepFlagsClosed prometheus.Counter

	// Performance metrics
	StoreOperationLatency *prometheus.HistogramVec
	CacheHits             prometheus.Counter
	CacheMisses           prometheus.Counter
}

// New registers and returns readiness metrics collectors.
func New() *Metrics {
	return &Metrics{
		AssessmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mirathi_assessments_created_total",
			Help: "Total number of readiness assessments created",
		}),
		AssessmentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mirathi_assessments_completed_total",
			Help: "Total number of readiness assessments marked complete",
		}),
		RiskFlagsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mirathi_risk_flags_detected_total",
			Help: "Total number of risk flags detected, labeled by severity and category",
		}, []string{"severity", "category"}),
		RiskFlagsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mirathi_risk_flags_resolved_total",
			Help: "Total number of risk flags resolved, labeled by resolution method",
		}, []string{"method"}),
		AutoResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mirathi_auto_resolutions_total",
			Help: "Total number of risk flags auto-resolved, labeled by trigger event",
		}, []string{"trigger"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mirathi_status_transitions_total",
			Help: "Total number of readiness status transitions, labeled by from and to status",
		}, []string{"from", "to"}),
		ScoreDistribution: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mirathi_readiness_score",
			Help:    "Distribution of readiness scores after recalculation",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		FactEventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mirathi_fact_events_processed_total",
			Help: "Total number of inbound fact events processed, labeled by event type and outcome",
		}, []string{"event_type", "outcome"}),
		ConcurrencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mirathi_concurrency_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts on assessment saves",
		}),

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mirathi_sweep_duration_seconds",
			Help:    "Duration of auto-resolve timeout sweep runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		SweepFlagsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mirathi_sweep_flags_closed_total",
			Help: "Total number of risk flags closed by the timeout sweep",
		}),

		// Performance metrics
		StoreOperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirathi_assessment_store_operation_latency_seconds",
			Help:    "Latency of assessment store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mirathi_assessment_cache_hits_total",
			Help: "Total number of assessment snapshot cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mirathi_assessment_cache_misses_total",
			Help: "Total number of assessment snapshot cache misses",
		}),
	}
}

func (m *Metrics) IncrementAssessmentsCreated() {
	m.AssessmentsCreated.Inc()
}

func (m *Metrics) IncrementAssessmentsCompleted() {
	m.AssessmentsCompleted.Inc()
}

func (m *Metrics) IncrementRiskFlagsDetected(severity, category string) {
	m.RiskFlagsDetected.WithLabelValues(severity, category).Inc()
}

func (m *Metrics) IncrementRiskFlagsResolved(method string) {
	m.RiskFlagsResolved.WithLabelValues(method).Inc()
}

func (m *Metrics) IncrementAutoResolutions(trigger string, count int) {
	m.AutoResolutions.WithLabelValues(trigger).Add(float64(count))
}

func (m *Metrics) IncrementStatusTransitions(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveScore(score int) {
	m.ScoreDistribution.Observe(float64(score))
}

func (m *Metrics) IncrementFactEventsProcessed(eventType, outcome string) {
	m.FactEventsProcessed.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) IncrementConcurrencyConflicts() {
	m.ConcurrencyConflicts.Inc()
}

// ObserveSweep records the duration of one sweep run and how many flags it
// closed.
func (m *Metrics) ObserveSweep(start time.Time, flagsClosed int) {
	m.SweepDuration.Observe(time.Since(start).Seconds())
	m.SweepFlagsClosed.Add(float64(flagsClosed))
}

// ObserveStoreOperationLatency records the latency of a store operation.
func (m *Metrics) ObserveStoreOperationLatency(operation string, durationSeconds float64) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}
