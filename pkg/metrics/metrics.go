// Package metrics exposes the Prometheus instrumentation for the front end.
// A nil *Metrics is valid and counts nothing, so callers never have to guard
// for the metrics listener being disabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	reloads  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepost",
		Name:      "requests_total",
		Help:      "Requests dispatched, by routing outcome.",
	}, []string{"outcome"})

	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatepost",
		Name:      "config_reloads_total",
		Help:      "Configuration reload attempts, by result.",
	}, []string{"result"})

	registry.MustRegister(requests, reloads)

	return &Metrics{
		registry: registry,
		requests: requests,
		reloads:  reloads,
	}
}

// CountRequest records one dispatched request. Outcomes: matched, not_found,
// no_path, proxy_error.
func (m *Metrics) CountRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// CountReload records one reload attempt. Results: applied, invalid,
// restart_required.
func (m *Metrics) CountReload(result string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
