package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProvisionMetrics tracks keytab provisioning activity.
type ProvisionMetrics struct {
	requests       *prometheus.CounterVec
	errors         *prometheus.CounterVec
	keytabEntries  prometheus.Counter
	requestSeconds prometheus.Histogram
}

// NewProvisionMetrics creates Prometheus-backed provisioning metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called); all
// recording methods are nil-safe.
func NewProvisionMetrics() *ProvisionMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &ProvisionMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "secret_operator_provision_requests_total",
				Help: "Keytab provisioning requests by operation",
			},
			[]string{"operation"},
		),
		errors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "secret_operator_provision_errors_total",
				Help: "Failed keytab provisioning requests by operation",
			},
			[]string{"operation"},
		),
		keytabEntries: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "secret_operator_keytab_entries_written_total",
				Help: "Keytab entries written to provisioned keytabs",
			},
		),
		requestSeconds: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "secret_operator_provision_duration_seconds",
				Help:    "Wall time of provisioning requests",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordRequest counts one provisioning request for the given operation.
func (m *ProvisionMetrics) RecordRequest(operation string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation).Inc()
}

// RecordError counts one failed provisioning request.
func (m *ProvisionMetrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation).Inc()
}

// RecordKeytabEntries counts entries written to a keytab.
func (m *ProvisionMetrics) RecordKeytabEntries(n int) {
	if m == nil {
		return
	}
	m.keytabEntries.Add(float64(n))
}

// ObserveRequestDuration records the wall time of one request in seconds.
func (m *ProvisionMetrics) ObserveRequestDuration(seconds float64) {
	if m == nil {
		return
	}
	m.requestSeconds.Observe(seconds)
}
