//go:build sqlite_vec
// +build sqlite_vec

package storage

// Built with CGO and the sqlite_vec tag, the store loads through
// github.com/mattn/go-sqlite3 and ranks vectors in SQL with the sqlite-vec
// extension's vec_distance_cosine.
//
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver the store opens
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports whether vec_distance_cosine can be used
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
