package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"
)

// SQLiteStore implements Store on a single SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	closed atomic.Bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer; this also keeps ":memory:"
	// databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and migrates it
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

const upsertVectorSQL = `
	INSERT INTO vectors (id, source, path, tag, content, vector, dimension, metadata, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source = excluded.source,
		path = excluded.path,
		tag = excluded.tag,
		content = excluded.content,
		vector = excluded.vector,
		dimension = excluded.dimension,
		metadata = excluded.metadata,
		updated_at = excluded.updated_at
`

// upsertWithQuerier writes records through one prepared statement
func (s *SQLiteStore) upsertWithQuerier(ctx context.Context, q querier, records []Record) error {
	stmt, err := q.PrepareContext(ctx, upsertVectorSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, r := range records {
		meta, err := encodeMetadata(r.Metadata)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, r.ID, r.Source, r.Path, string(r.Tag), r.Text,
			serializeVector(r.Vector), len(r.Vector), meta, now)
		if err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
		}
	}
	return nil
}

// Upsert inserts or overwrites records in one transaction
func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.upsertWithQuerier(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace deletes every record of source and writes records in the same
// transaction. Readers see either the old or the new set.
func (s *SQLiteStore) Replace(ctx context.Context, source string, records []Record) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE source = ?", source); err != nil {
		return fmt.Errorf("failed to delete source %s: %w", source, err)
	}
	if err := s.upsertWithQuerier(ctx, tx, records); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace: %w", err)
	}
	return nil
}

// Query ranks stored vectors by cosine similarity. Vectors whose dimension
// differs from the query are ignored.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}
	return queryVectors(ctx, s.db, vector, k)
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// Sources lists the distinct sources that have stored records
func (s *SQLiteStore) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT source FROM vectors ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
