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

	// Billing provider metrics
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec
	ProviderErrorsTotal  *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationsTotal *prometheus.CounterVec
	DriftRepairsTotal    prometheus.Counter

	// Provisioning metrics
	SetupIntentsTotal     prometheus.Counter
	DefaultMethodSetTotal prometheus.Counter
	InvoicesIssuedTotal   *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	AccountsTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payschool_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payschool_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ProviderCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payschool_billing_provider_calls_total",
				Help: "Total number of billing provider API calls",
			},
			[]string{"operation"},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payschool_billing_provider_call_duration_seconds",
				Help:    "Billing provider API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ProviderErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payschool_billing_provider_errors_total",
				Help: "Total number of billing provider API errors",
			},
			[]string{"operation"},
		),

		ReconciliationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payschool_billing_reconciliations_total",
				Help: "Total number of billing customer reconciliations by outcome",
			},
			[]string{"outcome"},
		),
		DriftRepairsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payschool_billing_drift_repairs_total",
				Help: "Total number of repaired billing customer drifts",
			},
		),

		SetupIntentsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payschool_billing_setup_intents_total",
				Help: "Total number of created setup intents",
			},
		),
		DefaultMethodSetTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payschool_billing_default_method_set_total",
				Help: "Total number of default payment method updates",
			},
		),
		InvoicesIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payschool_billing_invoices_issued_total",
				Help: "Total number of issued invoices by terminal status",
			},
			[]string{"status"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "payschool_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "payschool_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		AccountsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "payschool_accounts_total",
				Help: "Total number of registered accounts",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProviderCallsTotal,
		m.ProviderCallDuration,
		m.ProviderErrorsTotal,
		m.ReconciliationsTotal,
		m.DriftRepairsTotal,
		m.SetupIntentsTotal,
		m.DefaultMethodSetTotal,
		m.InvoicesIssuedTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.AccountsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint on the given mux
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// UpdateDBStats copies database pool statistics into gauges
func (m *Metrics) UpdateDBStats(inUse, idle int) {
	m.DBConnectionsActive.Set(float64(inUse))
	m.DBConnectionsIdle.Set(float64(idle))
}
