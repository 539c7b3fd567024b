// Package metrics exposes Prometheus metrics for the API service and
// the retention sweeper.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	httpActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	reportsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reports_submitted_total",
			Help: "Total number of reports submitted",
		},
	)

	reportClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_claims_total",
			Help: "Total number of claim attempts",
		},
		[]string{"outcome"}, // "claimed", "conflict", "error"
	)

	reviewsFiledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_filed_total",
			Help: "Total number of reviews filed",
		},
		[]string{"result"},
	)

	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_sweep_runs_total",
			Help: "Total number of retention sweep runs",
		},
		[]string{"outcome"}, // "deleted", "noop", "error"
	)

	sweepDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_sweep_deleted_reports_total",
			Help: "Total number of reports deleted by the retention sweep",
		},
	)

	queueSnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_feed_snapshots_total",
			Help: "Total number of queue snapshots delivered to consumers",
		},
	)
)

func init() {
	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpActiveConnections,
		reportsSubmittedTotal,
		reportClaimsTotal,
		reviewsFiledTotal,
		sweepRunsTotal,
		sweepDeletedTotal,
		queueSnapshotsTotal,
		systemCPUPercent,
		systemMemoryPercent,
		goGoroutines,
	)
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records counter and duration for one request.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// IncActiveConnections bumps the in-flight request gauge.
func IncActiveConnections() {
	httpActiveConnections.Inc()
}

// DecActiveConnections releases the in-flight request gauge.
func DecActiveConnections() {
	httpActiveConnections.Dec()
}

// RecordSubmission counts an accepted report submission.
func RecordSubmission() {
	reportsSubmittedTotal.Inc()
}

// RecordClaim counts a claim attempt by outcome.
func RecordClaim(outcome string) {
	reportClaimsTotal.WithLabelValues(outcome).Inc()
}

// RecordReview counts a filed review by classification.
func RecordReview(result string) {
	reviewsFiledTotal.WithLabelValues(result).Inc()
}

// RecordSweep counts a sweep run and the reports it deleted.
func RecordSweep(outcome string, deleted int) {
	sweepRunsTotal.WithLabelValues(outcome).Inc()
	if deleted > 0 {
		sweepDeletedTotal.Add(float64(deleted))
	}
}

// RecordQueueSnapshot counts a snapshot delivered to a feed consumer.
func RecordQueueSnapshot() {
	queueSnapshotsTotal.Inc()
}
