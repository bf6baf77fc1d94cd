// Package telemetry provides application-level observability for the admin console.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served by the side-channel HTTP server started by cmd/server:
//
//	GET http(s)://<host>:<ADMIN_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Console mutations and cache refetches, by entity and outcome
//   - Promotional image uploads and login attempts, by outcome
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/admin/users/:id)
// rather than the raw request URL so record ids never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Console metrics.
//
// MutationsTotal has labels {entity, operation, result} where result is one of
// success, rejected (precondition, validation or unknown id) and error (store failure).
// A rising error series means writes are being swallowed and operators see
// "nothing happened".
//
// RefetchTotal has labels {entity, result}. A failed refetch keeps the previous cache,
// so a steady error rate means the console is serving stale lists.
//
// Example PromQL queries:
//   - Failed writes per entity:   sum by (entity) (rate(console_mutations_total{result="error"}[15m]))
//   - Stale caches:               increase(console_refetch_total{result="error"}[30m]) > 0
var (
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_mutations_total",
			Help: "Total number of console mutations, by entity, operation, and result.",
		},
		[]string{"entity", "operation", "result"},
	)

	RefetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_refetch_total",
			Help: "Total number of collection refetches, by entity and result.",
		},
		[]string{"entity", "result"},
	)
)

// UploadsTotal counts promotional image uploads by result
// (success, rejected, collision, error).
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_uploads_total",
		Help: "Total number of promotional image uploads, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts session gate login attempts by result (success, failure, error).
//
// Example PromQL queries:
//   - Brute force alert:  increase(console_logins_total{result="failure"}[5m]) > 20
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_logins_total",
		Help: "Total number of admin login attempts, by result.",
	},
	[]string{"result"},
)

// DBOpenConnections tracks the number of open connections held by the pool.
// It is sampled every 30 seconds by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// CollectDBStats samples the pool statistics every interval until ctx is done.
// Run it in its own goroutine:
//
//	safego.Go("db-stats", func() { telemetry.CollectDBStats(ctx, database.DB, 30*time.Second) })
func CollectDBStats(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.PingContext(ctx); err != nil {
				slog.Warn("db stats collector: database unreachable", "error", err)
				continue
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}
}
