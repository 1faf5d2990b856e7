package main

import (
	"context"

	"go.uber.org/zap"
)

type LogReporter struct {
	Logger *zap.SugaredLogger
}

func (r *LogReporter) Name() string { return "log" }

func (r *LogReporter) Report(_ context.Context, snapshot Snapshot) error {
	logger := r.Logger
	if logger == nil {
		logger = Logger
	}
	logger = logger.With("scenario", snapshot.Scenario)
	if snapshot.Empty() {
		logger.Infof("no metrics recorded")
		return nil
	}
	for _, t := range snapshot.Timers {
		logger.Infof(
			"timer %v: count=%v min=%.3fms mean=%.3fms p50=%.3fms p95=%.3fms p99=%.3fms max=%.3fms",
			t.Name, t.Count, t.MinMs, t.MeanMs, t.P50Ms, t.P95Ms, t.P99Ms, t.MaxMs,
		)
	}
	for _, g := range snapshot.Gauges {
		logger.Infof("size %v: %v b, %v kb, %v mb", g.Name, g.Value, g.Value/1024, g.Value/1024/1024)
	}
	return nil
}
