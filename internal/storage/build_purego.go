//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// The default build uses the pure Go modernc.org/sqlite driver. No C
// toolchain is needed; cosine similarity is computed in Go over every stored
// vector, which is fine for single-repository corpora.
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver the store opens
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether vec_distance_cosine can be used
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
