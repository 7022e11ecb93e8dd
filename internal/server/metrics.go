package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded by the metrics.
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// Metrics collects counters for archive loads and tiering runs.
type Metrics struct {
	registry    *prometheus.Registry
	loads       *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	assignments prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_tiering_archive_loads_total",
			Help: "Archive loads by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rate_tiering_runs_total",
			Help: "Tiering runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rate_tiering_run_duration_seconds",
			Help:    "Duration of tiering runs.",
			Buckets: prometheus.DefBuckets,
		}),
		assignments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rate_tiering_assignments",
			Help: "Tier assignments in the current result.",
		}),
	}
	m.registry.MustRegister(m.loads, m.runs, m.runDuration, m.assignments)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeLoad(err error) {
	if err != nil {
		m.loads.WithLabelValues(outcomeError).Inc()
		return
	}
	m.loads.WithLabelValues(outcomeOK).Inc()
	m.assignments.Set(0)
}

func (m *Metrics) observeRun(start time.Time, assignments int, err error) {
	m.runDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		m.runs.WithLabelValues(outcomeError).Inc()
		return
	case assignments == 0:
		m.runs.WithLabelValues(outcomeEmpty).Inc()
	default:
		m.runs.WithLabelValues(outcomeOK).Inc()
	}
	m.assignments.Set(float64(assignments))
}
