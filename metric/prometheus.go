package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/scalareval"
)

var _ scalareval.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements scalareval.MetricsCollector on top of
// client_golang counters and histograms.
type PrometheusCollector struct {
	evaluations *prometheus.CounterVec
	evalLatency *prometheus.HistogramVec
	chunks      *prometheus.CounterVec
	chunkTime   *prometheus.HistogramVec
	matchAny    *prometheus.CounterVec
	matchTime   *prometheus.HistogramVec
	setsChecked *prometheus.CounterVec
	setsMatched *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers its metrics with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := prometheus.ExponentialBuckets(0.0001, 4, 10)

	c := &PrometheusCollector{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluate calls by backend and outcome.",
		}, []string{"backend", "status"}),
		evalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluate_duration_seconds",
			Help:      "End-to-end Evaluate latency.",
			Buckets:   buckets,
		}, []string{"backend"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Evaluated chunks by backend.",
		}, []string{"backend"}),
		chunkTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Per-chunk evaluation time.",
			Buckets:   buckets,
		}, []string{"backend"}),
		matchAny: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_any_total",
			Help:      "MatchAny calls by backend and outcome.",
		}, []string{"backend", "status"}),
		matchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_any_duration_seconds",
			Help:      "End-to-end MatchAny latency.",
			Buckets:   buckets,
		}, []string{"backend"}),
		setsChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_any_sets_checked_total",
			Help:      "Sets probed by MatchAny.",
		}, []string{"backend"}),
		setsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_any_sets_matched_total",
			Help:      "Sets that matched a MatchAny probe.",
		}, []string{"backend"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Backend fallbacks at engine construction.",
		}, []string{"from", "to"}),
	}

	reg.MustRegister(
		c.evaluations, c.evalLatency,
		c.chunks, c.chunkTime,
		c.matchAny, c.matchTime, c.setsChecked, c.setsMatched,
		c.fallbacks,
	)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordEvaluate implements scalareval.MetricsCollector.
func (c *PrometheusCollector) RecordEvaluate(backend string, _ int, duration time.Duration, err error) {
	c.evaluations.WithLabelValues(backend, status(err)).Inc()
	c.evalLatency.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordChunk implements scalareval.MetricsCollector.
func (c *PrometheusCollector) RecordChunk(backend string, duration time.Duration) {
	c.chunks.WithLabelValues(backend).Inc()
	c.chunkTime.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordMatchAny implements scalareval.MetricsCollector.
func (c *PrometheusCollector) RecordMatchAny(backend string, sets, matches int, duration time.Duration, err error) {
	c.matchAny.WithLabelValues(backend, status(err)).Inc()
	c.matchTime.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		return
	}
	c.setsChecked.WithLabelValues(backend).Add(float64(sets))
	c.setsMatched.WithLabelValues(backend).Add(float64(matches))
}

// RecordFallback implements scalareval.MetricsCollector.
func (c *PrometheusCollector) RecordFallback(from, to string) {
	c.fallbacks.WithLabelValues(from, to).Inc()
}
