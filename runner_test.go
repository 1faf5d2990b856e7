package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func forEachEngine(t *testing.T, f func(t *testing.T, engine Engine)) {
	for _, engine := range engines {
		t.Run(engine.Name(), func(t *testing.T) { f(t, engine) })
	}
}

func schemedHandle(t *testing.T, engine Engine) *Handle {
	t.Helper()
	ctx := context.Background()
	handle, err := Provision(ctx, engine, filepath.Join(t.TempDir(), "test.db"))
	require.Nil(t, err)
	t.Cleanup(func() { handle.Close() })
	require.Nil(t, ApplySchema(ctx, handle, createTablesSql))
	return handle
}

func queryInt(t *testing.T, handle *Handle, query string) int {
	t.Helper()
	require.Nil(t, handle.Open(context.Background()))
	var n int
	require.Nil(t, handle.DB().QueryRow(query).Scan(&n))
	return n
}

func TestProvisionRemovesStaleFile(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		path := filepath.Join(t.TempDir(), "stale.db")
		require.Nil(t, os.WriteFile(path, []byte("definitely not a database file"), 0o644))

		handle, err := Provision(context.Background(), engine, path)
		require.Nil(t, err)
		defer handle.Close()
		require.Nil(t, ApplySchema(context.Background(), handle, createTablesSql))
		require.Equal(t, 0, queryInt(t, handle, "SELECT COUNT(*) FROM messages_2"))
	})
}

func TestProvisionUnwritablePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.Nil(t, os.WriteFile(file, nil, 0o644))

	_, err := Provision(context.Background(), &EngineSqlite3{}, filepath.Join(file, "nested", "test.db"))
	require.ErrorIs(t, err, ErrStorageOpen)
}

func TestApplySchemaIdempotent(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		handle := schemedHandle(t, engine)
		schema := func() int {
			return queryInt(t, handle, "SELECT COUNT(*) FROM sqlite_master")
		}
		before := schema()
		require.Nil(t, handle.Close())

		require.Nil(t, ApplySchema(context.Background(), handle, createTablesSql))
		require.False(t, handle.IsOpen())
		require.Equal(t, before, schema())
		require.Equal(t, 1, queryInt(t, handle, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'messages_2'"))
	})
}

func TestApplySchemaMalformed(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		handle := schemedHandle(t, engine)
		err := ApplySchema(context.Background(), handle, "CREATE TABLE broken (")
		require.ErrorIs(t, err, ErrSchema)
		require.False(t, handle.IsOpen())
	})
}

func TestBulkInsertRowCount(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		cases := []struct {
			rows           int
			useTransaction bool
		}{
			{0, true}, {1, true}, {100, true}, {5000, true},
			{0, false}, {50, false},
		}
		for _, c := range cases {
			handle := schemedHandle(t, engine)
			require.Nil(t, BulkInsert(context.Background(), handle, insertMessageSql, c.rows, c.useTransaction))
			require.Equal(t, c.rows, queryInt(t, handle, "SELECT COUNT(*) FROM messages_2"))
			require.Equal(t, c.rows, queryInt(t, handle, "SELECT COUNT(DISTINCT id) FROM messages_2"))
		}
	})
}

func TestBulkInsertRollsBackOnFailure(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		handle := schemedHandle(t, engine)
		// every row gets the same id, the second one violates UNIQUE(id)
		insert := "INSERT INTO messages (id, created) VALUES (substr(?, 1, 0) || 'fixed', ?)"
		err := BulkInsert(context.Background(), handle, insert, 10, true)
		require.ErrorIs(t, err, ErrInsert)
		require.Equal(t, 0, queryInt(t, handle, "SELECT COUNT(*) FROM messages"))
	})
}

func TestTimedSingleAppends(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		for _, count := range []int{0, 1, 25} {
			handle := schemedHandle(t, engine)
			samples, err := TimedSingleAppends(context.Background(), handle, insertMessageSql, timerAppend, count)
			require.Nil(t, err)
			require.Len(t, samples, count)
			for _, sample := range samples {
				require.Equal(t, timerAppend, sample.Label)
				require.Equal(t, Milliseconds, sample.Unit)
				require.False(t, sample.Failed)
				require.GreaterOrEqual(t, sample.Duration.Nanoseconds(), int64(0))
			}
			require.Equal(t, count, queryInt(t, handle, "SELECT COUNT(*) FROM messages_2"))
		}
	})
}

func TestTimedSingleAppendsFailure(t *testing.T) {
	handle := schemedHandle(t, &EngineSqlite3{})
	insert := "INSERT INTO messages (id, created) VALUES (substr(?, 1, 0) || 'fixed', ?)"
	samples, err := TimedSingleAppends(context.Background(), handle, insert, timerAppend, 5)
	require.ErrorIs(t, err, ErrInsert)
	require.Len(t, samples, 2)
	require.False(t, samples[0].Failed)
	require.True(t, samples[1].Failed)
}

func TestMeasureFileSize(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		handle := schemedHandle(t, engine)
		size, err := MeasureFileSize(handle.Path)
		require.Nil(t, err)
		require.Greater(t, size, int64(0))

		again, err := MeasureFileSize(handle.Path)
		require.Nil(t, err)
		require.Equal(t, size, again)

		pageSize := queryInt(t, handle, "PRAGMA page_size")
		pageCount := queryInt(t, handle, "PRAGMA page_count")
		require.Equal(t, int64(pageSize*pageCount), size)
	})
}

func TestProvisionUriSpecialChars(t *testing.T) {
	forEachEngine(t, func(t *testing.T, engine Engine) {
		require.Equal(t, "file:/x/a%23b%3fc d%2520.db?cache=shared&mode=rwc", engine.DSN("/x/a#b?c d%20.db"))

		parent := t.TempDir()
		path := filepath.Join(parent, "a#b?c d%20", "x.db")
		handle, err := Provision(context.Background(), engine, path)
		require.Nil(t, err)
		defer handle.Close()
		require.Nil(t, ApplySchema(context.Background(), handle, createTablesSql))

		size, err := MeasureFileSize(path)
		require.Nil(t, err)
		require.Greater(t, size, int64(0))

		entries, err := os.ReadDir(parent)
		require.Nil(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "a#b?c d%20", entries[0].Name())
	})
}

func TestMeasureFileSizeRemovedOutOfBand(t *testing.T) {
	handle := schemedHandle(t, &EngineSqlite3{})
	require.Nil(t, RemoveDatabase(handle.Path))

	_, err := MeasureFileSize(handle.Path)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMeasureDirSize(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "b"), make([]byte, 23), 0o644))
	require.Nil(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	size, err := MeasureDirSize(dir)
	require.Nil(t, err)
	require.Equal(t, int64(123), size)

	_, err = MeasureDirSize(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScenarioConfigValidate(t *testing.T) {
	require.Nil(t, ScenarioConfig{TargetPath: "x.db"}.Validate())
	require.ErrorIs(t, ScenarioConfig{}.Validate(), ErrInvalidConfig)
	require.ErrorIs(t, ScenarioConfig{TargetPath: "x.db", RowCount: -1}.Validate(), ErrInvalidConfig)
	require.ErrorIs(t, ScenarioConfig{TargetPath: "x.db", SampleCount: -1}.Validate(), ErrInvalidConfig)
}
