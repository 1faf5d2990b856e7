package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

const failedSuffix = ".failed"

type TimerStat struct {
	Name   string
	Count  int64
	MinMs  float64
	MaxMs  float64
	MeanMs float64
	P50Ms  float64
	P95Ms  float64
	P99Ms  float64
	SumMs  float64
}

type GaugeStat struct {
	Name  string
	Value int64
}

// Snapshot is everything a scenario recorded, ordered by metric name.
type Snapshot struct {
	Scenario string
	Timers   []TimerStat
	Gauges   []GaugeStat
}

func (s Snapshot) Empty() bool { return len(s.Timers) == 0 && len(s.Gauges) == 0 }

type Reporter interface {
	Name() string
	Report(ctx context.Context, snapshot Snapshot) error
}

// Sink collects timing samples and sizes for the running scenario and hands
// them to the reporters on Flush.
type Sink struct {
	registry  metrics.Registry
	reporters []Reporter
}

func NewSink(reporters ...Reporter) *Sink {
	return &Sink{registry: metrics.NewRegistry(), reporters: reporters}
}

// Record files failed operations under a separate timer so they never skew
// the latency of successful ones.
func (s *Sink) Record(sample TimingSample) {
	name := sample.Label
	if sample.Failed {
		name += failedSuffix
	}
	metrics.GetOrRegisterTimer(name, s.registry).Update(sample.Duration)
}

func (s *Sink) RecordAll(samples []TimingSample) {
	for _, sample := range samples {
		s.Record(sample)
	}
}

func (s *Sink) RecordSize(label string, bytes int64) {
	metrics.GetOrRegisterGauge(label, s.registry).Update(bytes)
}

// Time runs op, records its sample and returns the op error.
func (s *Sink) Time(label string, op func() error) error {
	sample, err := Measure(label, op)
	s.Record(sample)
	return err
}

func (s *Sink) Snapshot(scenario string) Snapshot {
	snapshot := Snapshot{Scenario: scenario}
	s.registry.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case metrics.Timer:
			t := m.Snapshot()
			pct := t.Percentiles([]float64{0.50, 0.95, 0.99})
			snapshot.Timers = append(snapshot.Timers, TimerStat{
				Name:   name,
				Count:  t.Count(),
				MinMs:  toMs(float64(t.Min())),
				MaxMs:  toMs(float64(t.Max())),
				MeanMs: toMs(t.Mean()),
				P50Ms:  toMs(pct[0]),
				P95Ms:  toMs(pct[1]),
				P99Ms:  toMs(pct[2]),
				SumMs:  toMs(float64(t.Sum())),
			})
		case metrics.Gauge:
			snapshot.Gauges = append(snapshot.Gauges, GaugeStat{Name: name, Value: m.Value()})
		}
	})
	slices.SortFunc(snapshot.Timers, func(a, b TimerStat) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(snapshot.Gauges, func(a, b GaugeStat) int { return strings.Compare(a.Name, b.Name) })
	return snapshot
}

// Flush reports the scenario snapshot to every reporter and resets the sink.
// The registry is cleared even when a reporter fails so the next scenario
// starts empty.
func (s *Sink) Flush(ctx context.Context, scenario string) (Snapshot, error) {
	snapshot := s.Snapshot(scenario)
	defer s.registry.UnregisterAll()
	for _, reporter := range s.reporters {
		if err := reporter.Report(ctx, snapshot); err != nil {
			return snapshot, fmt.Errorf("%w: reporter %v: %w", ErrMetricsFlush, reporter.Name(), err)
		}
	}
	return snapshot, nil
}

func toMs(ns float64) float64 {
	return ns / float64(time.Millisecond)
}
