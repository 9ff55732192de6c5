package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive    prometheus.Gauge
	DBConnectionsIdle      prometheus.Gauge
	DBConnectionsWaitCount prometheus.Gauge

	// Business metrics
	TiersTotal              *prometheus.GaugeVec
	SubscriptionsTotal      *prometheus.GaugeVec
	MonthlyRecurringRevenue prometheus.Gauge
	CheckoutSessionsTotal   *prometheus.CounterVec
	FeatureGateDenialsTotal *prometheus.CounterVec
}

const namespace = "backer"

// NewMetrics creates all collectors and registers them on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	f := promauto.With(registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return f.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return f.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	return &Metrics{
		HTTPRequestsTotal:   counter("http_requests_total", "Total number of HTTP requests", "method", "route", "status"),
		HTTPRequestDuration: histogram("http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets, "method", "route"),
		HTTPResponseSize:    histogram("http_response_size_bytes", "HTTP response size in bytes", prometheus.ExponentialBuckets(100, 10, 6), "method", "route"),

		StorageOperationsTotal:   counter("storage_operations_total", "Total number of storage operations", "operation", "status"),
		StorageOperationDuration: histogram("storage_operation_duration_seconds", "Storage operation duration in seconds", prometheus.DefBuckets, "operation"),

		CacheHitsTotal:   counter("cache_hits_total", "Total number of cache hits", "cache", "layer"),
		CacheMissesTotal: counter("cache_misses_total", "Total number of cache misses", "cache"),

		DBConnectionsActive:    gauge("db_connections_active", "Number of in-use database connections"),
		DBConnectionsIdle:      gauge("db_connections_idle", "Number of idle database connections"),
		DBConnectionsWaitCount: gauge("db_connections_wait_count", "Total number of connections waited for"),

		TiersTotal:              gaugeVec("subscription_tiers_total", "Number of non-archived subscription tiers by type", "type"),
		SubscriptionsTotal:      gaugeVec("subscriptions_total", "Number of subscriptions by status", "status"),
		MonthlyRecurringRevenue: gauge("monthly_recurring_revenue_cents", "Sum of active subscription prices in cents"),
		CheckoutSessionsTotal:   counter("checkout_sessions_total", "Total number of checkout sessions created", "status"),
		FeatureGateDenialsTotal: counter("feature_gate_denials_total", "Requests rejected by a feature flag gate", "flag"),
	}
}

// The Record helpers are no-ops on a nil *Metrics so components can run
// without a registry in tests.

// RecordCacheHit counts a cache hit on the given layer
func (m *Metrics) RecordCacheHit(cache, layer string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(cache, layer).Inc()
}

// RecordCacheMiss counts a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordStorageOperation records a storage operation outcome and duration
func (m *Metrics) RecordStorageOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordCheckoutSession counts a checkout session attempt
func (m *Metrics) RecordCheckoutSession(err error) {
	if m == nil {
		return
	}
	status := "created"
	if err != nil {
		status = "failed"
	}
	m.CheckoutSessionsTotal.WithLabelValues(status).Inc()
}

// RecordFeatureGateDenial counts a request rejected by a flag
func (m *Metrics) RecordFeatureGateDenial(flag string) {
	if m == nil {
		return
	}
	m.FeatureGateDenialsTotal.WithLabelValues(flag).Inc()
}

// RecordDBStats copies connection pool statistics into the gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaitCount.Set(float64(stats.WaitCount))
}

// sizeRecorder captures status code and response size
type sizeRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *sizeRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *sizeRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the matched mux route template, keeping label
// cardinality bounded by the number of routes
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Use it as mux middleware so the route template is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &sizeRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
