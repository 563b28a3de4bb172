//go:build sqlite_fast
// +build sqlite_fast

package storage

// This file is compiled when building with CGO and the sqlite_fast tag.
// It uses the C SQLite driver for faster scans on large caches.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_fast" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
