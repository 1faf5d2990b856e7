package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Unit string

const Milliseconds Unit = "ms"

type ScenarioConfig struct {
	TargetPath     string
	RowCount       int
	UseTransaction bool
	SampleCount    int
}

func (c ScenarioConfig) Validate() error {
	if c.TargetPath == "" {
		return fmt.Errorf("%w: empty target path", ErrInvalidConfig)
	}
	if c.RowCount < 0 {
		return fmt.Errorf("%w: negative row count %v", ErrInvalidConfig, c.RowCount)
	}
	if c.SampleCount < 0 {
		return fmt.Errorf("%w: negative sample count %v", ErrInvalidConfig, c.SampleCount)
	}
	return nil
}

// TimingSample is the measured latency of exactly one completed operation.
// Failed is set when the operation returned an error.
type TimingSample struct {
	Label    string
	Duration time.Duration
	Unit     Unit
	Failed   bool
}

// Measure brackets op with a timer. The sample is produced on every exit path,
// including errors.
func Measure(label string, op func() error) (TimingSample, error) {
	start := time.Now()
	err := op()
	sample := TimingSample{
		Label:    label,
		Duration: time.Since(start),
		Unit:     Milliseconds,
		Failed:   err != nil,
	}
	return sample, err
}

// Provision removes whatever is stored at path and opens a fresh database there.
func Provision(ctx context.Context, engine Engine, path string) (*Handle, error) {
	if err := RemoveDatabase(path); err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrStorageOpen, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrStorageOpen, path, err)
	}
	handle := NewHandle(engine, path)
	if err := handle.Open(ctx); err != nil {
		return nil, err
	}
	return handle, nil
}

// RemoveDatabase deletes the database file together with its journal files.
func RemoveDatabase(path string) error {
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		err := os.Remove(path + suffix)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplySchema executes ddl as one command and leaves the handle closed.
func ApplySchema(ctx context.Context, handle *Handle, ddl string) error {
	if err := handle.Open(ctx); err != nil {
		return err
	}
	_, err := handle.DB().ExecContext(ctx, ddl)
	closeErr := handle.Close()
	if err != nil {
		return fmt.Errorf("%w: %v: %w", ErrSchema, handle.Path, err)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close %v: %w", ErrSchema, handle.Path, closeErr)
	}
	return nil
}

type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// BulkInsert writes rowCount rows with fresh identifiers. With useTransaction
// all rows are committed at once at serializable isolation, any failed row
// rolls the whole batch back.
func BulkInsert(ctx context.Context, handle *Handle, insert string, rowCount int, useTransaction bool) error {
	if err := handle.Open(ctx); err != nil {
		return err
	}
	if !useTransaction {
		return insertRows(ctx, handle.DB(), insert, rowCount)
	}
	tx, err := handle.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrInsert, err)
	}
	defer tx.Rollback()

	if err := insertRows(ctx, tx, insert, rowCount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %v rows: %w", ErrInsert, rowCount, err)
	}
	return nil
}

func insertRows(ctx context.Context, target preparer, insert string, rowCount int) error {
	stmt, err := target.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrInsert, err)
	}
	defer stmt.Close()

	for i := 0; i < rowCount; i++ {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), time.Now().UTC()); err != nil {
			return fmt.Errorf("%w: row #%v: %w", ErrInsert, i, err)
		}
	}
	return nil
}

// TimedSingleAppends inserts sampleCount rows one by one outside of any
// transaction and times each insert on its own. On failure the samples taken
// so far are returned together with the error, the last one marked as failed.
func TimedSingleAppends(ctx context.Context, handle *Handle, insert string, label string, sampleCount int) ([]TimingSample, error) {
	if err := handle.Open(ctx); err != nil {
		return nil, err
	}
	stmt, err := handle.DB().PrepareContext(ctx, insert)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare: %w", ErrInsert, err)
	}
	defer stmt.Close()

	samples := make([]TimingSample, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		id, created := uuid.NewString(), time.Now().UTC()
		sample, err := Measure(label, func() error {
			_, err := stmt.ExecContext(ctx, id, created)
			return err
		})
		samples = append(samples, sample)
		if err != nil {
			return samples, fmt.Errorf("%w: append #%v: %w", ErrInsert, i, err)
		}
	}
	return samples, nil
}

func MeasureFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %v", ErrNotFound, path)
	} else if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// MeasureDirSize sums the sizes of the regular files directly inside dir.
func MeasureDirSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %v", ErrNotFound, dir)
	} else if err != nil {
		return 0, err
	}
	total := int64(0)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
