package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CredentialCacheMetrics tracks hit/miss/save behavior of credential caches.
type CredentialCacheMetrics struct {
	hits         *prometheus.CounterVec
	misses       *prometheus.CounterVec
	saveFailures *prometheus.CounterVec
}

// NewCredentialCacheMetrics creates Prometheus-backed cache metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called); all
// recording methods are nil-safe.
func NewCredentialCacheMetrics() *CredentialCacheMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &CredentialCacheMetrics{
		hits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "secret_operator_credential_cache_hits_total",
				Help: "Credentials served from the cache without regeneration",
			},
			[]string{"cache"},
		),
		misses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "secret_operator_credential_cache_misses_total",
				Help: "Cache misses that invoked the credential generator",
			},
			[]string{"cache"},
		),
		saveFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "secret_operator_credential_cache_save_failures_total",
				Help: "Failed attempts to persist a generated credential",
			},
			[]string{"cache"},
		),
	}
}

// RecordHit records a credential served from the local cache state.
func (m *CredentialCacheMetrics) RecordHit(cache string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(cache).Inc()
}

// RecordMiss records a cache miss that ran the generator.
func (m *CredentialCacheMetrics) RecordMiss(cache string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(cache).Inc()
}

// RecordSaveFailure records a failed persist of a generated credential.
func (m *CredentialCacheMetrics) RecordSaveFailure(cache string) {
	if m == nil {
		return
	}
	m.saveFailures.WithLabelValues(cache).Inc()
}
