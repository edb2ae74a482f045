package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	evaluationsAssignedTotal  prometheus.Counter
	evaluationsCompletedTotal prometheus.Counter
	resultsCacheHitsTotal     prometheus.Counter

	notificationsPublishedTotal *prometheus.CounterVec
	sseClientsActive            prometheus.Gauge

	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors. Safe to call from
// multiple code paths; registration happens once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationsAssignedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_assigned_total",
			Help: "Total number of peer evaluation pairs created.",
		})

		evaluationsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_completed_total",
			Help: "Total number of peer evaluations with submitted marks.",
		})

		resultsCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_results_cache_hits_total",
			Help: "Total number of exam result reads answered from cache.",
		})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications published, by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_sse_clients",
			Help: "Number of currently connected notification stream clients.",
		})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_uploads_total",
			Help: "Total number of accepted submission uploads, by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_uploads_rejected_total",
			Help: "Total number of rejected submission uploads, by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "submission_upload_latency_seconds",
			Help:    "Latency distribution for submission uploads.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			evaluationsAssignedTotal, evaluationsCompletedTotal, resultsCacheHitsTotal,
			notificationsPublishedTotal, sseClientsActive,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// EvaluationsAssignedTotal exposes the counter for created evaluation pairs.
func EvaluationsAssignedTotal() prometheus.Counter {
	RegisterMetrics()
	return evaluationsAssignedTotal
}

// EvaluationsCompletedTotal exposes the counter for completed evaluations.
func EvaluationsCompletedTotal() prometheus.Counter {
	RegisterMetrics()
	return evaluationsCompletedTotal
}

// ResultsCacheHits exposes the counter for cached result reads.
func ResultsCacheHits() prometheus.Counter {
	RegisterMetrics()
	return resultsCacheHitsTotal
}

// NotificationsPublishedTotal exposes the counter for published notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// SSEClientsActive exposes the gauge for connected stream clients.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// UploadRequests exposes the counter for accepted uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
