// Package metrics provides Prometheus-based metrics collection for
// lansweep, covering scan engine activity and API request handling.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lansweep"

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	activeScans   prometheus.Gauge
	attemptsTotal *prometheus.CounterVec
	attemptTime   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a metrics instance with its own registry, including the
// standard Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Completed scan runs by terminal status.",
		}, []string{"status"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of completed scans.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		activeScans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "active",
			Help:      "Whether a scan is currently running.",
		}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "attempts_total",
			Help:      "Connection attempts by classified outcome.",
		}, []string{"outcome"}),
		attemptTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "connect_latency_seconds",
			Help:      "Connect latency of open ports.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request handling duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.activeScans,
		m.attemptsTotal,
		m.attemptTime,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScanStarted marks a scan as active.
func (m *Metrics) ScanStarted() {
	m.activeScans.Set(1)
}

// ScanFinished records a completed scan and its duration.
func (m *Metrics) ScanFinished(cancelled bool, duration time.Duration) {
	m.activeScans.Set(0)
	status := "done"
	if cancelled {
		status = "cancelled"
	}
	m.scansTotal.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())
}

// AttemptResolved records one resolved connection attempt.
func (m *Metrics) AttemptResolved(outcome string, latency time.Duration) {
	m.attemptsTotal.WithLabelValues(outcome).Inc()
	if outcome == "open" {
		m.attemptTime.Observe(latency.Seconds())
	}
}

// RequestObserved records one handled API request.
func (m *Metrics) RequestObserved(method, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, status).Inc()
	m.httpDuration.WithLabelValues(method).Observe(duration.Seconds())
}
