package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	upstreamRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	logins           *prometheus.CounterVec
	passwordResets   *prometheus.CounterVec
	emailsSent       *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remessa_upstream_requests_total",
			Help: "Upstream market data calls by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remessa_cache_lookups_total",
			Help: "Quote cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)
	r.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remessa_fallbacks_total",
			Help: "Fallback paths taken by the market orchestrator",
		},
		[]string{"kind"},
	)
	r.logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remessa_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
	r.passwordResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remessa_password_resets_total",
			Help: "Password reset requests and redemptions by result",
		},
		[]string{"stage", "result"},
	)
	r.emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remessa_emails_sent_total",
			Help: "Outgoing emails by status",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.upstreamRequests)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.fallbacks)
	reg.MustRegister(r.logins)
	reg.MustRegister(r.passwordResets)
	reg.MustRegister(r.emailsSent)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordUpstream records one upstream call.
func (r *Registry) RecordUpstream(provider, operation, outcome string) {
	r.upstreamRequests.WithLabelValues(provider, operation, outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Registry) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordFallback records a fallback path being taken.
func (r *Registry) RecordFallback(kind string) {
	r.fallbacks.WithLabelValues(kind).Inc()
}

// RecordLogin records a login attempt.
func (r *Registry) RecordLogin(result string) {
	r.logins.WithLabelValues(result).Inc()
}

// RecordPasswordReset records a reset request or redemption.
func (r *Registry) RecordPasswordReset(stage, result string) {
	r.passwordResets.WithLabelValues(stage, result).Inc()
}

// RecordEmail records an outgoing email.
func (r *Registry) RecordEmail(status string) {
	r.emailsSent.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
