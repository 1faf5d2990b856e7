package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/mattn/go-sqlite3"
)

type Engine interface {
	Name() string
	Driver() string
	DSN(path string) string
}

type EngineSqlite3 struct{}

func (e *EngineSqlite3) Name() string           { return "sqlite3" }
func (e *EngineSqlite3) Driver() string         { return "sqlite3" }
func (e *EngineSqlite3) DSN(path string) string { return sharedCacheDSN(path) }

// EngineSqlite is the pure Go build of the same engine.
type EngineSqlite struct{}

func (e *EngineSqlite) Name() string           { return "sqlite" }
func (e *EngineSqlite) Driver() string         { return "sqlite" }
func (e *EngineSqlite) DSN(path string) string { return sharedCacheDSN(path) }

var engines = []Engine{&EngineSqlite3{}, &EngineSqlite{}}

func EngineByName(name string) (Engine, error) {
	for _, engine := range engines {
		if engine.Name() == name {
			return engine, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, name)
}

// uriPathEscaper escapes the characters that end or alter the path part of
// an SQLite URI filename.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func sharedCacheDSN(path string) string {
	query := url.Values{}
	query.Set("cache", "shared")
	query.Set("mode", "rwc")
	return fmt.Sprintf("file:%v?%v", uriPathEscaper.Replace(path), query.Encode())
}

// Handle owns at most one open connection to the database file at Path.
type Handle struct {
	Path   string
	Engine Engine
	db     *sql.DB
}

func NewHandle(engine Engine, path string) *Handle {
	return &Handle{Path: path, Engine: engine}
}

func (h *Handle) IsOpen() bool { return h.db != nil }

func (h *Handle) DB() *sql.DB { return h.db }

func (h *Handle) Open(ctx context.Context) error {
	if h.db != nil {
		return nil
	}
	db, err := sql.Open(h.Engine.Driver(), h.Engine.DSN(h.Path))
	if err != nil {
		return fmt.Errorf("%w: %v: %w", ErrStorageOpen, h.Path, err)
	}
	db.SetMaxOpenConns(1)
	// sql.Open is lazy, the file is only created on the first connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v: %w", ErrStorageOpen, h.Path, err)
	}
	h.db = db
	return nil
}

func (h *Handle) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
