package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firefly-engineering/firefly-forage/packages/forage-blocks/internal/provider"
)

const namespace = "forage_blocks"

// Collector holds the provider metrics. It implements provider.Observer.
type Collector struct {
	registry *prometheus.Registry

	// JobsSubmitted counts blocks accepted by a provider.
	JobsSubmitted *prometheus.CounterVec

	// JobsRejected counts submissions refused at capacity.
	JobsRejected *prometheus.CounterVec

	// Jobs tracks blocks by current status.
	Jobs *prometheus.GaugeVec

	// Transitions counts status changes by target status.
	Transitions *prometheus.CounterVec

	// JobDuration tracks time from submission to a terminal status.
	JobDuration *prometheus.HistogramVec

	// StatusPolls counts status refresh cycles.
	StatusPolls *prometheus.CounterVec

	now func() time.Time
}

var _ provider.Observer = (*Collector)(nil)

// New creates a Collector registered on its own registry, together with
// the Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newCollector(reg)
}

func newCollector(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		JobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "submitted_total",
				Help:      "Total number of blocks submitted",
			},
			[]string{"provider"},
		),
		JobsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "rejected_total",
				Help:      "Total number of submissions refused because the provider was at capacity",
			},
			[]string{"provider"},
		),
		Jobs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "current",
				Help:      "Number of blocks by status",
			},
			[]string{"provider", "status"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "transitions_total",
				Help:      "Total number of block status changes by target status",
			},
			[]string{"provider", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Time from submission to a terminal status",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 16), // 1s to ~9h
			},
			[]string{"provider", "status"},
		),
		StatusPolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "monitor",
				Name:      "polls_total",
				Help:      "Total number of status refresh cycles",
			},
			[]string{"provider"},
		),
		now: time.Now,
	}
}

// Registry returns the registry the collector's metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) JobSubmitted(rec provider.JobRecord) {
	c.JobsSubmitted.WithLabelValues(rec.Label).Inc()
	c.Jobs.WithLabelValues(rec.Label, string(rec.Status)).Inc()
}

func (c *Collector) JobRejected(label string) {
	c.JobsRejected.WithLabelValues(label).Inc()
}

func (c *Collector) JobTransitioned(rec provider.JobRecord, from provider.Status) {
	c.Jobs.WithLabelValues(rec.Label, string(from)).Dec()
	c.Jobs.WithLabelValues(rec.Label, string(rec.Status)).Inc()
	c.Transitions.WithLabelValues(rec.Label, string(rec.Status)).Inc()

	if rec.Status.Terminal() && !from.Terminal() && !rec.SubmittedAt.IsZero() {
		c.JobDuration.WithLabelValues(rec.Label, string(rec.Status)).
			Observe(c.now().Sub(rec.SubmittedAt).Seconds())
	}
}

// RecordPoll counts one status refresh cycle for label.
func (c *Collector) RecordPoll(label string) {
	c.StatusPolls.WithLabelValues(label).Inc()
}
