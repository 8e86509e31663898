// Package metrics exposes Prometheus collectors for migration runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tablegate"

// Run outcomes used as the "outcome" label.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Collector records migration runs.
type Collector struct {
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	StatementsApplied prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg keeps
// them unregistered; they still count.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Schema gate runs by outcome",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of schema gate runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StatementsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_applied_total",
			Help:      "DDL statements committed by schema gate runs",
		}),
	}

	if reg != nil {
		reg.MustRegister(c.RunsTotal, c.RunDuration, c.StatementsApplied)
	}
	return c
}

// ObserveRun records one finished run.
func (c *Collector) ObserveRun(outcome string, d time.Duration, statements int) {
	if c == nil {
		return
	}
	c.RunsTotal.WithLabelValues(outcome).Inc()
	c.RunDuration.Observe(d.Seconds())
	if statements > 0 {
		c.StatementsApplied.Add(float64(statements))
	}
}
