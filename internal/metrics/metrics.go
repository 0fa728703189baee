// Package metrics exposes Prometheus collectors for the HTTP API, the item
// transitions and the realtime hub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flipi"

// Metrics holds collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight    prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	accrualFailures prometheus.Counter
	pointsAwarded   prometheus.Counter
	realtimeClients prometheus.Gauge
	realtimeEvents  *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "transitions_total",
			Help:      "Item lifecycle transitions by kind and outcome.",
		}, []string{"transition", "outcome"}),
		accrualFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "points",
			Name:      "accrual_failures_total",
			Help:      "Point awards that failed after a successful handover.",
		}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "points",
			Name:      "awarded_total",
			Help:      "Total points awarded to givers.",
		}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "clients",
			Help:      "Connected realtime clients.",
		}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Change events published to the realtime hub.",
		}, []string{"table", "type"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.accrualFailures,
		m.pointsAwarded,
		m.realtimeClients,
		m.realtimeEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge and returns a func that
// records the finished request. pattern is the matched route; unmatched
// requests share one label value.
func (m *Metrics) RequestStarted() func(method, pattern string, status int) {
	start := time.Now()
	m.httpInFlight.Inc()
	return func(method, pattern string, status int) {
		m.httpInFlight.Dec()
		if pattern == "" {
			pattern = "unmatched"
		}
		m.httpRequests.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, pattern).Observe(time.Since(start).Seconds())
	}
}

// Transition counts one request or give attempt.
func (m *Metrics) Transition(name, outcome string) {
	m.transitions.WithLabelValues(name, outcome).Inc()
}

// TransitionCounter returns the counter for one transition outcome.
func (m *Metrics) TransitionCounter(name, outcome string) prometheus.Counter {
	return m.transitions.WithLabelValues(name, outcome)
}

// AccrualFailures returns the accrual failure counter.
func (m *Metrics) AccrualFailures() prometheus.Counter {
	return m.accrualFailures
}

// AccrualFailed counts a point award that could not be written.
func (m *Metrics) AccrualFailed() {
	m.accrualFailures.Inc()
}

// PointsAwarded adds to the awarded points total.
func (m *Metrics) PointsAwarded(n int) {
	m.pointsAwarded.Add(float64(n))
}

// ClientConnected and ClientDisconnected track realtime connections.
func (m *Metrics) ClientConnected()    { m.realtimeClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.realtimeClients.Dec() }

// EventPublished counts a realtime change event.
func (m *Metrics) EventPublished(table, typ string) {
	m.realtimeEvents.WithLabelValues(table, typ).Inc()
}
