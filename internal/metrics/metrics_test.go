package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveRun(OutcomeApplied, 120*time.Millisecond, 3)
	c.ObserveRun(OutcomeSkipped, time.Millisecond, 0)
	c.ObserveRun(OutcomeSkipped, time.Millisecond, 0)

	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues(OutcomeApplied)); got != 1 {
		t.Errorf("applied runs = %v", got)
	}
	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues(OutcomeSkipped)); got != 2 {
		t.Errorf("skipped runs = %v", got)
	}
	if got := testutil.ToFloat64(c.StatementsApplied); got != 3 {
		t.Errorf("statements = %v", got)
	}
	if n := testutil.CollectAndCount(c.RunDuration); n != 1 {
		t.Errorf("duration series = %d", n)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"tablegate_runs_total", "tablegate_run_duration_seconds", "tablegate_statements_applied_total"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveRun(OutcomeFailed, time.Second, 1)
}

func TestUnregistered(t *testing.T) {
	c := New(nil)
	c.ObserveRun(OutcomeNoop, time.Second, 0)
	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues(OutcomeNoop)); got != 1 {
		t.Errorf("noop runs = %v", got)
	}
}
