// Package metrics provides Prometheus instrumentation for the secret
// operator.
//
// Metrics are opt-in: nothing is registered until InitRegistry is called.
// Constructors return nil when metrics are disabled, and every recording
// method is safe to call on a nil receiver, so instrumented code pays no
// attention (and almost no cost) to whether metrics are on.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
)

// InitRegistry creates the metrics registry with the standard Go and process
// collectors. Calling it more than once is a no-op.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return
	}
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return registry != nil
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// Handler returns an HTTP handler serving the registry, or nil when metrics
// are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
