package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	evaluationsRecordedTotal prometheus.Counter
	batchOperationsTotal     *prometheus.CounterVec
	reportCacheRequestsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_recorded_total",
			Help: "Total number of evaluation rows written to the ledger.",
		})

		batchOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_operations_total",
			Help: "Administrative batch operations by kind.",
		}, []string{"operation"})

		reportCacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_cache_requests_total",
			Help: "Weekly report cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			evaluationsRecordedTotal,
			batchOperationsTotal,
			reportCacheRequestsTotal,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// EvaluationsRecorded counts ledger inserts.
func EvaluationsRecorded() prometheus.Counter {
	RegisterMetrics()
	return evaluationsRecordedTotal
}

// BatchOperations counts administrative batch runs.
func BatchOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return batchOperationsTotal
}

// ReportCacheRequests counts report cache hits and misses.
func ReportCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return reportCacheRequestsTotal
}
