package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for device operations. A nil
// *Metrics or one built with metrics disabled records nothing.
type Metrics struct {
	config MetricsConfig

	// Operation metrics
	operationsStarted   *prometheus.CounterVec
	operationsCompleted *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec

	// Command path metrics
	commandAttempts   *prometheus.CounterVec
	conditionFailures *prometheus.CounterVec

	// Config path metrics
	reconciles   *prometheus.CounterVec
	linesPushed  *prometheus.CounterVec
	policyDenied *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Session metrics
	activeSessions prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_started_total",
				Help:      "Total number of device operations started",
			},
			[]string{"operation"},
		),
		operationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_completed_total",
				Help:      "Total number of device operations completed",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of device operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation", "status"},
		),

		commandAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_attempts_total",
				Help:      "Total number of command batch executions, retries included",
			},
			[]string{"host"},
		),
		conditionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "condition_failures_total",
				Help:      "Total number of wait_for conditions left unsatisfied after all attempts",
			},
			[]string{"host"},
		),

		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciles_total",
				Help:      "Total number of configuration reconciliations by outcome",
			},
			[]string{"host", "changed"},
		),
		linesPushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_lines_pushed_total",
				Help:      "Total number of configuration commands pushed to devices",
			},
			[]string{"host"},
		),
		policyDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_denials_total",
				Help:      "Total number of command batches rejected by policy",
			},
			[]string{"host", "policy"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Current number of open device sessions",
			},
		),
	}

	registry.MustRegister(
		m.operationsStarted,
		m.operationsCompleted,
		m.operationDuration,
		m.commandAttempts,
		m.conditionFailures,
		m.reconciles,
		m.linesPushed,
		m.policyDenied,
		m.errorsByClass,
		m.errorsByCode,
		m.activeSessions,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// Operation Metrics

// RecordOperationStarted increments the counter for started operations.
func (m *Metrics) RecordOperationStarted(operation string) {
	if !m.enabled() {
		return
	}
	m.operationsStarted.WithLabelValues(operation).Inc()
}

// RecordOperationCompleted records a completed operation with its status and duration.
func (m *Metrics) RecordOperationCompleted(operation, status string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.operationsCompleted.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// Command Metrics

// RecordCommandAttempt counts one execution of a command batch.
func (m *Metrics) RecordCommandAttempt(host string) {
	if !m.enabled() {
		return
	}
	m.commandAttempts.WithLabelValues(host).Inc()
}

// RecordConditionFailures counts conditions left unsatisfied.
func (m *Metrics) RecordConditionFailures(host string, n int) {
	if !m.enabled() || n == 0 {
		return
	}
	m.conditionFailures.WithLabelValues(host).Add(float64(n))
}

// Config Metrics

// RecordReconcile records the outcome of a configuration reconciliation.
func (m *Metrics) RecordReconcile(host string, changed bool, pushed int) {
	if !m.enabled() {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	m.reconciles.WithLabelValues(host, label).Inc()
	if pushed > 0 {
		m.linesPushed.WithLabelValues(host).Add(float64(pushed))
	}
}

// RecordPolicyDenied records a rejected command batch.
func (m *Metrics) RecordPolicyDenied(host, policy string) {
	if !m.enabled() {
		return
	}
	m.policyDenied.WithLabelValues(host, policy).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if !m.enabled() {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Session Metrics

// SessionOpened increments the open session gauge.
func (m *Metrics) SessionOpened() {
	if !m.enabled() {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *Metrics) SessionClosed() {
	if !m.enabled() {
		return
	}
	m.activeSessions.Dec()
}

// Registry exposes the underlying registry, nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics. It returns
// the server so the caller can shut it down, or nil when metrics are
// disabled.
func (m *Metrics) StartMetricsServer() *http.Server {
	if !m.enabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("address", m.config.ListenAddress).Msg("metrics server error")
		}
	}()

	return server
}
