package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the workflow counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	protocolsAllocated *prometheus.CounterVec
	protocolConflicts  prometheus.Counter
	requestMoves       *prometheus.CounterVec
	reorders           *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		protocolsAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tramita",
			Name:      "protocols_allocated_total",
			Help:      "Protocol numbers allocated, by prefix.",
		}, []string{"prefix"}),
		protocolConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tramita",
			Name:      "protocol_conflicts_total",
			Help:      "Protocol allocations aborted by a unique constraint.",
		}),
		requestMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tramita",
			Name:      "request_moves_total",
			Help:      "Requests moved between stages, by resulting status.",
		}, []string{"status"}),
		reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tramita",
			Name:      "reorders_total",
			Help:      "Bulk reorder operations, by scope.",
		}, []string{"scope"}),
	}

	m.registry.MustRegister(
		m.protocolsAllocated,
		m.protocolConflicts,
		m.requestMoves,
		m.reorders,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ProtocolAllocated(prefix string) {
	if m == nil {
		return
	}
	m.protocolsAllocated.WithLabelValues(prefix).Inc()
}

func (m *Metrics) ProtocolConflict() {
	if m == nil {
		return
	}
	m.protocolConflicts.Inc()
}

func (m *Metrics) RequestMoved(status string) {
	if m == nil {
		return
	}
	m.requestMoves.WithLabelValues(status).Inc()
}

func (m *Metrics) Reordered(scope string) {
	if m == nil {
		return
	}
	m.reorders.WithLabelValues(scope).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
