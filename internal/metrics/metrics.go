// Package metrics exposes build and dev-server counters in the Prometheus
// format. Each Metrics value owns its registry, so tests and multiple
// servers in one process never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one gulpc process.
type Metrics struct {
	registry *prometheus.Registry

	taskRuns     *prometheus.CounterVec
	taskFailures *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	reloads      prometheus.Counter
	streams      prometheus.Counter
	clients      prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		taskRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gulpc_task_runs_total",
			Help: "Total task runs, by task name.",
		}, []string{"task"}),
		taskFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gulpc_task_failures_total",
			Help: "Task runs that ended with an error, by task name.",
		}, []string{"task"}),
		taskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gulpc_task_duration_seconds",
			Help:    "Task run duration, by task name.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"task"}),
		reloads: f.NewCounter(prometheus.CounterOpts{
			Name: "gulpc_reloads_total",
			Help: "Reload signals sent to browser clients.",
		}),
		streams: f.NewCounter(prometheus.CounterOpts{
			Name: "gulpc_streams_total",
			Help: "Changed-file notifications sent to browser clients.",
		}),
		clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "gulpc_devserver_clients",
			Help: "Browser clients connected to the reload channel.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TaskStarted counts a run. It implements task.Observer.
func (m *Metrics) TaskStarted(name string) {
	m.taskRuns.WithLabelValues(name).Inc()
}

// TaskFinished records the run duration and, when err is set, a failure.
// It implements task.Observer.
func (m *Metrics) TaskFinished(name string, d time.Duration, err error) {
	m.taskDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		m.taskFailures.WithLabelValues(name).Inc()
	}
}

// ReloadSent counts a reload broadcast.
func (m *Metrics) ReloadSent() { m.reloads.Inc() }

// StreamSent counts a changed-file broadcast.
func (m *Metrics) StreamSent() { m.streams.Inc() }

// ClientConnected increments the connected client gauge.
func (m *Metrics) ClientConnected() { m.clients.Inc() }

// ClientDisconnected decrements the connected client gauge.
func (m *Metrics) ClientDisconnected() { m.clients.Dec() }
