package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRecorder increments counters for application events.
type MetricsRecorder interface {
	Increment(event string)
}

// NopMetrics discards every event.
type NopMetrics struct{}

// Increment does nothing.
func (NopMetrics) Increment(string) {}

// CounterMetrics implements MetricsRecorder with in-memory counts.
type CounterMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

// NewCounterMetrics constructs an in-memory metrics recorder.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]int64)}
}

// Increment increases the counter for the given event.
func (recorder *CounterMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

// Count returns the current value for the given event.
func (recorder *CounterMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

// Snapshot returns a copy of all recorded counters.
func (recorder *CounterMetrics) Snapshot() map[string]int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	clone := make(map[string]int64, len(recorder.counts))
	for key, value := range recorder.counts {
		clone[key] = value
	}
	return clone
}

// PrometheusMetrics exports events as a labelled Prometheus counter.
type PrometheusMetrics struct {
	events   *prometheus.CounterVec
	registry *prometheus.Registry
}

// NewPrometheusMetrics registers the event counter on a dedicated registry.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of application events by name",
		},
		[]string{"event"},
	)
	registry.MustRegister(events)
	return &PrometheusMetrics{events: events, registry: registry}
}

// Increment adds one to the counter labelled with the event name.
func (recorder *PrometheusMetrics) Increment(event string) {
	recorder.events.WithLabelValues(strings.TrimSpace(event)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (recorder *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(recorder.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (recorder *PrometheusMetrics) Registry() *prometheus.Registry {
	return recorder.registry
}
