package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the onboarding service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Onboarding flow metrics.
	OnboardingSavesTotal *prometheus.CounterVec
	OnboardingReadsTotal prometheus.Counter
	SaveDuration         prometheus.Histogram

	// Access gate metrics.
	GateRejectionsTotal *prometheus.CounterVec

	// Auth metrics.
	AuthFailuresTotal  prometheus.Counter
	AuthSuccessesTotal prometheus.Counter

	// Identity-provider management API metrics.
	VerificationEmailsTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onboard_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		OnboardingSavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_onboarding_saves_total",
			Help: "Total number of onboarding save attempts by outcome.",
		}, []string{"status"}),

		OnboardingReadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onboard_onboarding_reads_total",
			Help: "Total number of onboarding state reads.",
		}),

		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "onboard_onboarding_save_duration_seconds",
			Help:    "Duration of onboarding save transactions in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		GateRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_gate_rejections_total",
			Help: "Total number of access gate rejections by reason.",
		}, []string{"reason"}),

		AuthFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onboard_auth_failures_total",
			Help: "Total number of token verification failures.",
		}),

		AuthSuccessesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onboard_auth_successes_total",
			Help: "Total number of successful token verifications.",
		}),

		VerificationEmailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onboard_verification_emails_total",
			Help: "Total number of verification email jobs by outcome.",
		}, []string{"status"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onboard_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.OnboardingSavesTotal,
		m.OnboardingReadsTotal,
		m.SaveDuration,
		m.GateRejectionsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.VerificationEmailsTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// IncHTTPRequest records a completed HTTP request.
func (m *Metrics) IncHTTPRequest(method, pathPattern string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveHTTPRequest records a request's duration and response size.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, seconds float64, responseBytes int) {
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
	m.HTTPResponseSize.WithLabelValues(method, pathPattern).Observe(float64(responseBytes))
}

// IncOnboardingSave increments the save counter with the given outcome
// ("ok" or "error").
func (m *Metrics) IncOnboardingSave(status string) {
	m.OnboardingSavesTotal.WithLabelValues(status).Inc()
}

// IncOnboardingRead increments the read counter.
func (m *Metrics) IncOnboardingRead() {
	m.OnboardingReadsTotal.Inc()
}

// ObserveSaveDuration records how long a save transaction took.
func (m *Metrics) ObserveSaveDuration(seconds float64) {
	m.SaveDuration.Observe(seconds)
}

// IncGateRejection increments the gate rejection counter for the given
// rejection reason.
func (m *Metrics) IncGateRejection(reason string) {
	m.GateRejectionsTotal.WithLabelValues(reason).Inc()
}

// IncAuthFailure increments the token verification failure counter.
func (m *Metrics) IncAuthFailure() {
	m.AuthFailuresTotal.Inc()
}

// IncAuthSuccess increments the token verification success counter.
func (m *Metrics) IncAuthSuccess() {
	m.AuthSuccessesTotal.Inc()
}

// IncVerificationEmail increments the verification email counter with the
// given outcome ("ok" or "error").
func (m *Metrics) IncVerificationEmail(status string) {
	m.VerificationEmailsTotal.WithLabelValues(status).Inc()
}
