package main

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
)

type Scenario interface {
	Name() string
	Run(ctx context.Context, env *ScenarioEnv) error
}

// ScenarioEnv is what a scenario may touch: its own directory, the engine,
// the SQL text and the sink of the current run.
type ScenarioEnv struct {
	Dir        string
	Engine     Engine
	Statements Statements
	Sink       *Sink
	Logger     *zap.SugaredLogger
}

func (e *ScenarioEnv) Path(name string) string {
	return filepath.Join(e.Dir, name)
}
