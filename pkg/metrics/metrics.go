// Package metrics defines the Prometheus metric collectors used across the
// tool and exposes an HTTP handler for scraping while a run is in progress.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	AnnotationsSampled prometheus.Counter
	SamplesTaken       *prometheus.CounterVec
	ImageDecodes       *prometheus.CounterVec
	DecodeDuration     prometheus.Histogram
	ImageCacheHits     prometheus.Counter
	ImageCacheMisses   prometheus.Counter
	TaskFailures       *prometheus.CounterVec
	TasksInFlight      prometheus.Gauge
	RunDuration        prometheus.Histogram
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all collectors and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnnotationsSampled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bordercolor_annotations_sampled_total",
				Help: "Total annotations whose border rings were sampled.",
			},
		),
		SamplesTaken: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bordercolor_samples_total",
				Help: "Total pixels sampled by ring (inset, outset).",
			},
			[]string{"ring"},
		),
		ImageDecodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bordercolor_image_decodes_total",
				Help: "Total image decode attempts by status.",
			},
			[]string{"status"},
		),
		DecodeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bordercolor_image_decode_duration_seconds",
				Help:    "Image open and decode latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		ImageCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bordercolor_image_cache_hits_total",
				Help: "Total decoded-image cache hits.",
			},
		),
		ImageCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bordercolor_image_cache_misses_total",
				Help: "Total decoded-image cache misses.",
			},
		),
		TaskFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bordercolor_task_failures_total",
				Help: "Sampling task failures by error kind.",
			},
			[]string{"kind"},
		),
		TasksInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bordercolor_tasks_in_flight",
				Help: "Number of sampling tasks currently running.",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bordercolor_run_duration_seconds",
				Help:    "Wall time of the parallel sampling phase.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
			},
		),
	}

	reg.MustRegister(
		m.AnnotationsSampled,
		m.SamplesTaken,
		m.ImageDecodes,
		m.DecodeDuration,
		m.ImageCacheHits,
		m.ImageCacheMisses,
		m.TaskFailures,
		m.TasksInFlight,
		m.RunDuration,
	)

	return m
}

func (m *Metrics) ObserveSample(inset, outset int) {
	if m == nil {
		return
	}
	m.AnnotationsSampled.Inc()
	m.SamplesTaken.WithLabelValues("inset").Add(float64(inset))
	m.SamplesTaken.WithLabelValues("outset").Add(float64(outset))
}

func (m *Metrics) ObserveDecode(start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ImageDecodes.WithLabelValues(status).Inc()
	m.DecodeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.ImageCacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.ImageCacheMisses.Inc()
}

func (m *Metrics) TaskFailed(kind string) {
	if m == nil {
		return
	}
	m.TaskFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksInFlight.Inc()
}

func (m *Metrics) TaskDone() {
	if m == nil {
		return
	}
	m.TasksInFlight.Dec()
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
