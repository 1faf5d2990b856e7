package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushReporter publishes every scenario snapshot to a Prometheus pushgateway,
// grouped by scenario so runs of different scenarios do not overwrite each other.
type PushReporter struct {
	URL    string
	Job    string
	Engine string
}

func (r *PushReporter) Name() string { return "pushgateway" }

func (r *PushReporter) Report(ctx context.Context, snapshot Snapshot) error {
	if snapshot.Empty() {
		return nil
	}
	registry := prometheus.NewRegistry()
	timings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sqlite_spike",
		Name:      "timer_milliseconds",
		Help:      "Latency statistics of timed database operations.",
	}, []string{"timer", "stat"})
	counts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sqlite_spike",
		Name:      "timer_operations",
		Help:      "Number of timed database operations.",
	}, []string{"timer"})
	sizes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sqlite_spike",
		Name:      "size_bytes",
		Help:      "Size of database files after the scenario.",
	}, []string{"name"})
	registry.MustRegister(timings, counts, sizes)

	for _, t := range snapshot.Timers {
		counts.WithLabelValues(t.Name).Set(float64(t.Count))
		for stat, value := range map[string]float64{
			"min":  t.MinMs,
			"max":  t.MaxMs,
			"mean": t.MeanMs,
			"p50":  t.P50Ms,
			"p95":  t.P95Ms,
			"p99":  t.P99Ms,
			"sum":  t.SumMs,
		} {
			timings.WithLabelValues(t.Name, stat).Set(value)
		}
	}
	for _, g := range snapshot.Gauges {
		sizes.WithLabelValues(g.Name).Set(float64(g.Value))
	}

	job := r.Job
	if job == "" {
		job = "sqlite-spike"
	}
	pusher := push.New(r.URL, job).
		Gatherer(registry).
		Grouping("scenario", snapshot.Scenario)
	if r.Engine != "" {
		pusher = pusher.Grouping("engine", r.Engine)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push to %v: %w", r.URL, err)
	}
	return nil
}
