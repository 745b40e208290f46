// Package prometheus exports dispatch metrics with the Prometheus client.
package prometheus

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fwojciec/fastlane"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fastlane"

// Session outcomes reported by fastlane_sessions_total.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Collector counts events and session outcomes and records how long the
// early trigger, the last field and the final result took. Handle is safe for concurrent
// use, so one Collector can observe many sessions.
type Collector struct {
	events         *prometheus.CounterVec
	sessions       *prometheus.CounterVec
	triggerElapsed prometheus.Histogram
	allElapsed     prometheus.Histogram
	finalElapsed   prometheus.Histogram
}

// Interface compliance check.
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector with its metrics initialized.
func NewCollector() *Collector {
	buckets := prometheus.ExponentialBuckets(0.05, 2, 10)
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dispatch events by type.",
		}, []string{"event"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished sessions by outcome.",
		}, []string{"outcome"}),
		triggerElapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trigger_elapsed_seconds",
			Help:      "Time from session start to the early trigger.",
			Buckets:   buckets,
		}),
		allElapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "all_complete_elapsed_seconds",
			Help:      "Time from session start until every declared field was complete.",
			Buckets:   buckets,
		}),
		finalElapsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_elapsed_seconds",
			Help:      "Time from session start to the final result.",
			Buckets:   buckets,
		}),
	}
	for _, o := range []string{OutcomeCompleted, OutcomeFailed, OutcomeCancelled} {
		c.sessions.WithLabelValues(o)
	}
	return c
}

// Handle records one event. It has the signature of an ingest event handler.
func (c *Collector) Handle(e fastlane.Event) {
	c.events.WithLabelValues(fastlane.EventName(e)).Inc()
	switch ev := e.(type) {
	case fastlane.EventEarlyTriggerFired:
		c.triggerElapsed.Observe(ev.Elapsed.Seconds())
	case fastlane.EventAllComplete:
		c.allElapsed.Observe(ev.Elapsed.Seconds())
	case fastlane.EventFinalCompleted:
		c.finalElapsed.Observe(ev.Elapsed.Seconds())
		c.sessions.WithLabelValues(OutcomeCompleted).Inc()
	case fastlane.EventProducerFailed:
		c.sessions.WithLabelValues(OutcomeFailed).Inc()
	case fastlane.EventCancelled:
		c.sessions.WithLabelValues(OutcomeCancelled).Inc()
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.events.Describe(ch)
	c.sessions.Describe(ch)
	c.triggerElapsed.Describe(ch)
	c.allElapsed.Describe(ch)
	c.finalElapsed.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.events.Collect(ch)
	c.sessions.Collect(ch)
	c.triggerElapsed.Collect(ch)
	c.allElapsed.Collect(ch)
	c.finalElapsed.Collect(ch)
}

// Register adds the collector to reg. Registering the same collector twice
// is not an error.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) && are.ExistingCollector == c {
			return nil
		}
		return fmt.Errorf("register metrics: %w", err)
	}
	return nil
}

// NewRegistry returns a registry holding c plus the Go runtime and process
// collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		return nil, err
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, nil
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
