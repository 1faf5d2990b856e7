package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

type Benchmark struct {
	Warmup      int
	ClearCaches bool
}

func clearCaches() error {
	switch runtime.GOOS {
	case "linux":
		if err := exec.Command("sync").Run(); err != nil {
			return err
		}
		if err := exec.Command("sh", "-c", "echo 3 | sudo tee /proc/sys/vm/drop_caches").Run(); err != nil {
			return err
		}
		return nil
	case "darwin":
		if err := exec.Command("sync").Run(); err != nil {
			return err
		}
		if err := exec.Command("purge").Run(); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("unable to clear caches for platform '%v'", runtime.GOOS)
}

func (b *Benchmark) clearCachesIfNeeded() error {
	if !b.ClearCaches {
		return nil
	}
	Logger.Info("clear caches")
	return clearCaches()
}

// WarmupScenario runs the scenario Warmup times against a sink without
// reporters, so nothing measured here reaches the report.
func (b *Benchmark) WarmupScenario(ctx context.Context, scenario Scenario, env ScenarioEnv) error {
	env.Sink = NewSink()
	defer env.Sink.Flush(ctx, scenario.Name())
	for i := 0; i < b.Warmup; i++ {
		Logger.Infof("running warmup #%v/%v of %v", i+1, b.Warmup, scenario.Name())
		if err := scenario.Run(ctx, &env); err != nil {
			return fmt.Errorf("warmup #%v failed: %w", i, err)
		}
	}
	return nil
}
