package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageErrorsTotal       *prometheus.CounterVec

	// Authentication metrics
	LoginsTotal          *prometheus.CounterVec
	TokensIssuedTotal    prometheus.Counter
	TokensRejectedTotal  *prometheus.CounterVec
	BlacklistHitsTotal   prometheus.Counter
	ActiveSessionsSample prometheus.Gauge

	// Session store metrics
	SessionStoreOpsTotal    *prometheus.CounterVec
	SessionStoreErrorsTotal *prometheus.CounterVec

	// Dictionary cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Scheduler metrics
	MaintenanceScansTotal      prometheus.Counter
	NotificationsCreatedTotal  prometheus.Counter
	MaintenanceScanErrorsTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agrifleet_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"entity", "operation"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agrifleet_storage_operation_duration_seconds",
				Help:    "Storage operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity", "operation"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"entity", "operation"},
		),

		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agrifleet_tokens_issued_total",
				Help: "Total number of JWTs issued",
			},
		),
		TokensRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_tokens_rejected_total",
				Help: "Tokens rejected by the authentication gate, by reason",
			},
			[]string{"reason"},
		),
		BlacklistHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agrifleet_blacklist_hits_total",
				Help: "Requests carrying a blacklisted token",
			},
		),
		ActiveSessionsSample: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "agrifleet_active_sessions",
				Help: "Last sampled number of active session records",
			},
		),

		SessionStoreOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_session_store_operations_total",
				Help: "Session store operations by type",
			},
			[]string{"operation"},
		),
		SessionStoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_session_store_errors_total",
				Help: "Session store errors by operation",
			},
			[]string{"operation"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_cache_hits_total",
				Help: "Cache hits by level",
			},
			[]string{"level"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agrifleet_cache_misses_total",
				Help: "Cache misses by level",
			},
			[]string{"level"},
		),

		MaintenanceScansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agrifleet_maintenance_scans_total",
				Help: "Completed maintenance-due scans",
			},
		),
		NotificationsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agrifleet_notifications_created_total",
				Help: "Notifications created by the scheduler",
			},
		),
		MaintenanceScanErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agrifleet_maintenance_scan_errors_total",
				Help: "Failed maintenance-due scans",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "agrifleet_db_connections_active",
				Help: "Active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "agrifleet_db_connections_idle",
				Help: "Idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.StorageErrorsTotal,
		m.LoginsTotal,
		m.TokensIssuedTotal,
		m.TokensRejectedTotal,
		m.BlacklistHitsTotal,
		m.ActiveSessionsSample,
		m.SessionStoreOpsTotal,
		m.SessionStoreErrorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.MaintenanceScansTotal,
		m.NotificationsCreatedTotal,
		m.MaintenanceScanErrorsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStorageOperation records a storage call with its duration and outcome
func (m *Metrics) ObserveStorageOperation(entity, operation string, duration time.Duration, err error) {
	m.StorageOperationsTotal.WithLabelValues(entity, operation).Inc()
	m.StorageOperationDuration.WithLabelValues(entity, operation).Observe(duration.Seconds())
	if err != nil {
		m.StorageErrorsTotal.WithLabelValues(entity, operation).Inc()
	}
}

// HTTPMiddleware instruments request counts and latency.
// Route templates (not raw paths) are used to bound label cardinality.
func (m *Metrics) HTTPMiddleware(routeTemplate func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if routeTemplate != nil {
				if tmpl := routeTemplate(r); tmpl != "" {
					path = tmpl
				}
			}

			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
