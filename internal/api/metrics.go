package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Combination outcomes recorded by Metrics.Combinations.
const (
	outcomeNew         = "new"
	outcomeKnown       = "known"
	outcomeInvalid     = "invalid"
	outcomeUnknown     = "unknown_element"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	Combinations    *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Combinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cauldron",
				Subsystem: "combine",
				Name:      "total",
				Help:      "Combination requests by outcome",
			},
			[]string{"outcome"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cauldron",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method, and status code",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cauldron",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Combinations,
		m.Requests,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
