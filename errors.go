package main

import "errors"

// Every scenario step wraps one of these, callers match them with errors.Is.
var (
	ErrStorageOpen   = errors.New("storage open failed")
	ErrSchema        = errors.New("schema failed")
	ErrInsert        = errors.New("insert failed")
	ErrNotFound      = errors.New("not found")
	ErrMetricsFlush  = errors.New("metrics flush failed")
	ErrInvalidConfig = errors.New("invalid config")
)
