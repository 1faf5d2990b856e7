package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	timerCreate       = "sqlite-db-create"
	timerCreateMany   = "sqlite-db-create-many"
	timerProvision    = "sqlite-provision"
	timerAppend       = "sqlite-append-on-batch"
	sizeDatabase      = "sqlite-db-size"
	sizeManyDirectory = "sqlite-db-create-many-dir"
	sizeBatchFile     = "sqlite-batch-file-size"
)

func Scenarios(config Config) []Scenario {
	scenarios := []Scenario{
		&ScenarioDatabaseSize{},
		&ScenarioCreateDatabase{Iterations: config.Iterations},
		&ScenarioCreateManyDatabases{Count: config.Iterations},
		&ScenarioCreateSingleDb{},
	}
	for _, rows := range config.BatchSizes {
		scenarios = append(scenarios, &ScenarioBatchInsert{
			Rows:           rows,
			Samples:        config.Samples,
			UseTransaction: config.UseTransaction,
		})
	}
	return scenarios
}

// SelectScenarios keeps scenarios in declaration order. A name matches
// exactly, or by prefix before the parameter list: "BatchInsertAndSingleAppend"
// selects every batch size.
func SelectScenarios(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	selected := make([]Scenario, 0)
	matched := make(map[string]bool, len(names))
	for _, scenario := range all {
		base, _, _ := strings.Cut(scenario.Name(), "(")
		for _, name := range names {
			if name == scenario.Name() || name == base {
				selected = append(selected, scenario)
				matched[name] = true
				break
			}
		}
	}
	for _, name := range names {
		if !matched[name] {
			return nil, fmt.Errorf("%w: unknown scenario %q", ErrInvalidConfig, name)
		}
	}
	return selected, nil
}

func logFileSize(env *ScenarioEnv, path string, length int64) {
	env.Logger.Infof("file size %v: %v b, %v kb, %v mb", path, length, length/1024, length/1024/1024)
}

// ScenarioDatabaseSize reports the footprint of an empty database with the schema applied.
type ScenarioDatabaseSize struct{}

func (s *ScenarioDatabaseSize) Name() string { return "DatabaseSize" }
func (s *ScenarioDatabaseSize) Run(ctx context.Context, env *ScenarioEnv) error {
	path := env.Path("database-size.db")
	handle, err := Provision(ctx, env.Engine, path)
	if err != nil {
		return err
	}
	defer handle.Close()

	if err := ApplySchema(ctx, handle, env.Statements.Create); err != nil {
		return err
	}
	length, err := MeasureFileSize(path)
	if err != nil {
		return err
	}
	logFileSize(env, path, length)
	env.Sink.RecordSize(sizeDatabase, length)
	return nil
}

// ScenarioCreateDatabase times schema creation on the same path, removing the
// file between iterations.
type ScenarioCreateDatabase struct {
	Iterations int
}

func (s *ScenarioCreateDatabase) Name() string { return "TimeToCreateDatabase" }
func (s *ScenarioCreateDatabase) Run(ctx context.Context, env *ScenarioEnv) error {
	path := env.Path("create.db")
	if err := RemoveDatabase(path); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrStorageOpen, path, err)
	}
	handle := NewHandle(env.Engine, path)
	defer handle.Close()

	for i := 0; i < s.Iterations; i++ {
		err := env.Sink.Time(timerCreate, func() error {
			return ApplySchema(ctx, handle, env.Statements.Create)
		})
		if err != nil {
			return fmt.Errorf("iteration #%v: %w", i, err)
		}
		if err := RemoveDatabase(path); err != nil {
			return fmt.Errorf("%w: %v: %w", ErrStorageOpen, path, err)
		}
	}
	env.Logger.Infof("created database %v times", s.Iterations)
	return nil
}

// ScenarioCreateManyDatabases creates Count distinct files in one directory,
// never holding more than one of them open.
type ScenarioCreateManyDatabases struct {
	Count int
}

func (s *ScenarioCreateManyDatabases) Name() string { return "TimeToCreateManyDatabases" }
func (s *ScenarioCreateManyDatabases) Run(ctx context.Context, env *ScenarioEnv) error {
	dir := env.Path(uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v: %w", ErrStorageOpen, dir, err)
	}

	for i := 0; i < s.Count; i++ {
		handle := NewHandle(env.Engine, filepath.Join(dir, strconv.Itoa(i)))
		err := env.Sink.Time(timerCreateMany, func() error {
			return ApplySchema(ctx, handle, env.Statements.Create)
		})
		handle.Close()
		if err != nil {
			return fmt.Errorf("database #%v: %w", i, err)
		}
	}

	total, err := MeasureDirSize(dir)
	if err != nil {
		return err
	}
	env.Logger.Infof("directory size %v: %v mb (%v databases)", dir, total/1024/1024, s.Count)
	env.Sink.RecordSize(sizeManyDirectory, total)
	return nil
}

// ScenarioCreateSingleDb times dropping and recreating the schema of an
// existing database as one unit.
type ScenarioCreateSingleDb struct{}

func (s *ScenarioCreateSingleDb) Name() string { return "TimeToCreateSingleDB" }
func (s *ScenarioCreateSingleDb) Run(ctx context.Context, env *ScenarioEnv) error {
	handle, err := Provision(ctx, env.Engine, env.Path("spike1.db"))
	if err != nil {
		return err
	}
	defer handle.Close()

	if err := ApplySchema(ctx, handle, env.Statements.Create); err != nil {
		return err
	}
	return env.Sink.Time(timerProvision, func() error {
		if err := ApplySchema(ctx, handle, env.Statements.Drop); err != nil {
			return err
		}
		return ApplySchema(ctx, handle, env.Statements.Create)
	})
}

// ScenarioBatchInsert bulk inserts Rows rows and then measures Samples single
// appends on top of them.
type ScenarioBatchInsert struct {
	Rows           int
	Samples        int
	UseTransaction bool
}

func (s *ScenarioBatchInsert) Name() string {
	return fmt.Sprintf("BatchInsertAndSingleAppend(%v)", s.Rows)
}

func (s *ScenarioBatchInsert) Run(ctx context.Context, env *ScenarioEnv) error {
	config := ScenarioConfig{
		TargetPath:     env.Path(fmt.Sprintf("sqlite-spike-batch-%v.db", s.Rows)),
		RowCount:       s.Rows,
		UseTransaction: s.UseTransaction,
		SampleCount:    s.Samples,
	}
	if err := config.Validate(); err != nil {
		return err
	}

	handle, err := Provision(ctx, env.Engine, config.TargetPath)
	if err != nil {
		return err
	}
	defer handle.Close()

	if err := ApplySchema(ctx, handle, env.Statements.Create); err != nil {
		return err
	}
	if err := BulkInsert(ctx, handle, env.Statements.Insert, config.RowCount, config.UseTransaction); err != nil {
		return err
	}
	env.Logger.Infof("inserted %v rows (transaction: %v)", config.RowCount, config.UseTransaction)

	samples, err := TimedSingleAppends(ctx, handle, env.Statements.Insert, timerAppend, config.SampleCount)
	env.Sink.RecordAll(samples)
	if err != nil {
		return err
	}
	if err := handle.Close(); err != nil {
		return fmt.Errorf("%w: close %v: %w", ErrInsert, config.TargetPath, err)
	}

	length, err := MeasureFileSize(config.TargetPath)
	if err != nil {
		return err
	}
	logFileSize(env, config.TargetPath, length)
	env.Sink.RecordSize(sizeBatchFile, length)
	return nil
}
