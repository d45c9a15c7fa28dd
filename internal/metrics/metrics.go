// Package metrics provides Prometheus instrumentation for the WalletScore services.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletscore",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "walletscore",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ScoringAttemptsTotal counts completion attempts by outcome
	// (accepted, invalid_json, out_of_range, formula_mismatch, service_error).
	ScoringAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletscore",
			Name:      "scoring_attempts_total",
			Help:      "Total model scoring attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// ScoringFallbacksTotal counts scores produced by the deterministic fallback.
	ScoringFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walletscore",
		Name:      "scoring_fallbacks_total",
		Help:      "Total scores produced by the deterministic fallback path.",
	})

	// ScoresIssuedTotal counts signed scores issued by the oracle.
	ScoresIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walletscore",
		Name:      "scores_issued_total",
		Help:      "Total signed scores issued.",
	})

	// CompletionDuration observes completion service round-trip latency.
	CompletionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walletscore",
		Name:      "completion_duration_seconds",
		Help:      "Completion service request duration in seconds.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	// AdmissionsTotal counts score submissions by result
	// (admitted, bad_environment_signature, bad_ownership_signature,
	// unknown_signer, duplicate_timestamp, invalid_request).
	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletscore",
			Name:      "admissions_total",
			Help:      "Total score submissions by admission result.",
		},
		[]string{"result"},
	)

	// SignerRegistrationsTotal counts enclave signer registrations by result.
	SignerRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walletscore",
			Name:      "signer_registrations_total",
			Help:      "Total attestation-based signer registrations by result.",
		},
		[]string{"result"},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletscore", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletscore", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletscore", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletscore", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletscore", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walletscore", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ScoringAttemptsTotal,
		ScoringFallbacksTotal,
		ScoresIssuedTotal,
		CompletionDuration,
		AdmissionsTotal,
		SignerRegistrationsTotal,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
