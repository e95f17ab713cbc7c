package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	StudentRuns    *prometheus.CounterVec
	StudentErrors  *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	QueueJobs      *prometheus.CounterVec
	ScrapeDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		StudentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eclassbot",
			Name:      "student_runs_total",
			Help:      "Per-student scrape runs by mode and outcome.",
		}, []string{"mode", "outcome"}),
		StudentErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eclassbot",
			Name:      "student_errors_total",
			Help:      "Per-student scrape failures by error kind.",
		}, []string{"kind"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eclassbot",
			Name:      "notifications_total",
			Help:      "Notifications handed to the chat transport by outcome.",
		}, []string{"outcome"}),
		QueueJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eclassbot",
			Name:      "queue_jobs_total",
			Help:      "Deferred jobs processed by type and outcome.",
		}, []string{"type", "outcome"}),
		ScrapeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eclassbot",
			Name:      "scrape_duration_seconds",
			Help:      "Wall time of a batch or single-student scrape.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"mode"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StudentRuns,
		m.StudentErrors,
		m.Notifications,
		m.QueueJobs,
		m.ScrapeDuration,
	)
	return m
}

func (m *Metrics) ObserveScrape(mode string, start time.Time) {
	m.ScrapeDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
