// Package storage persists chunk embeddings and answers nearest-neighbour
// queries for the dense index.
//
// Three backends implement Store:
//   - SQLiteStore: a single database file, the default
//   - ChromaStore: a Chroma collection over HTTP
//   - PgVectorStore: a PostgreSQL table with a pgvector column
//
// # Database Schema
//
// The SQLite schema is versioned with semantic versions and migrated on open:
//   - schema_version: applied migrations
//   - vectors: id, source, path, tag, content, little-endian float32 vector
//     blob, dimension and JSON metadata
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and computes cosine similarity in
// Go. Building with the sqlite_vec tag switches to github.com/mattn/go-sqlite3
// and ranks inside SQLite with vec_distance_cosine.
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, storage.Config{
//	    Backend:    storage.BackendSQLite,
//	    SQLitePath: "~/.coderag/vectors.db",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Replace(ctx, "https://github.com/org/repo", records)
//	hits, err := store.Query(ctx, queryVector, 5)
//
// Replace is transactional for SQLite and pgvector: concurrent queries see
// either the previous records of a source or the new ones, never a mix.
// Chroma has no transactions, so a query racing a Replace may see a partial
// source.
//
// Hits are ordered by similarity descending, ties by id ascending. Stored
// vectors whose dimension differs from the query are ignored.
package storage
