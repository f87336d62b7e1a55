package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/smartspendr/bfa-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	adviceResults   *prometheus.CounterVec
	syncFlushes     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spendr_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendr_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendr_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendr_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		adviceResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendr_advice_results_total",
				Help: "Advice responses by source (agent or fallback).",
			},
			[]string{"source"},
		),
		syncFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendr_sync_flushes_total",
				Help: "Queued mutations flushed to the store, by result.",
			},
			[]string{"result"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spendr_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrAdviceResult records an advice response by its source, "agent" or
// "fallback".
func (m *Metrics) IncrAdviceResult(source string) {
	m.adviceResults.WithLabelValues(source).Inc()
}

// IncrSyncFlush records a sync-queue replay attempt: "ok", "failed", or
// "dropped" for payloads that can never be applied.
func (m *Metrics) IncrSyncFlush(result string) {
	m.syncFlushes.WithLabelValues(result).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetOpsSnapshot returns a summary of the current counter values suitable
// for the GET /v1/status endpoint.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	resourceHits := getCounterValue(m.cacheHits, "resource")
	resourceMisses := getCounterValue(m.cacheMisses, "resource")
	agentAnswers := getCounterValue(m.adviceResults, "agent")
	fallbackAnswers := getCounterValue(m.adviceResults, "fallback")

	errorRate := float64(0)
	hitRate := float64(0)
	fallbackRate := float64(0)

	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if resourceHits+resourceMisses > 0 {
		hitRate = resourceHits / (resourceHits + resourceMisses)
	}
	if agentAnswers+fallbackAnswers > 0 {
		fallbackRate = fallbackAnswers / (agentAnswers + fallbackAnswers)
	}

	return &domain.OpsMetrics{
		TotalRequests:      int64(totalRequests),
		ErrorRate:          errorRate,
		ResourceHitRate:    hitRate,
		AdviceFallbackRate: fallbackRate,
		SyncFlushed:        int64(getCounterValue(m.syncFlushes, "ok")),
		SyncFailed:         int64(getCounterValue(m.syncFlushes, "failed")),
		Period:             "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
