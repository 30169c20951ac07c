package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// PgVectorStore implements Store on PostgreSQL with the pgvector extension.
// Vectors are ranked by the <=> cosine distance operator.
type PgVectorStore struct {
	db    *sql.DB
	table string // quoted identifier
}

// NewPgVectorStore connects with lib/pq and creates the table if needed
func NewPgVectorStore(ctx context.Context, dsn, table string) (*PgVectorStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: pgvector store needs a database URL", types.ErrInvalidInput)
	}
	if table == "" {
		table = DefaultCollection
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PgVectorStore{db: db, table: pq.QuoteIdentifier(table)}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			path TEXT NOT NULL,
			tag TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			metadata JSONB,
			dimension INTEGER NOT NULL,
			embedding vector NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source)`,
			pq.QuoteIdentifier(strings.Trim(s.table, `"`)+"_source_idx"), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare pgvector schema: %w", err)
		}
	}
	return nil
}

func (s *PgVectorStore) upsertSQL() string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, source, path, tag, content, metadata, dimension, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector, now())
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			path = EXCLUDED.path,
			tag = EXCLUDED.tag,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			dimension = EXCLUDED.dimension,
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`, s.table)
}

func (s *PgVectorStore) write(ctx context.Context, tx *sql.Tx, records []Record) error {
	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		var meta []byte
		if len(r.Metadata) > 0 {
			if meta, err = json.Marshal(r.Metadata); err != nil {
				return fmt.Errorf("failed to encode metadata: %w", err)
			}
		}
		_, err := stmt.ExecContext(ctx, r.ID, r.Source, r.Path, string(r.Tag), r.Text,
			nullableJSON(meta), len(r.Vector), vectorLiteral(r.Vector))
		if err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", r.ID, err)
		}
	}
	return nil
}

// Upsert inserts or overwrites records in one transaction
func (s *PgVectorStore) Upsert(ctx context.Context, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.write(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace swaps a source's records inside one transaction
func (s *PgVectorStore) Replace(ctx context.Context, source string, records []Record) error {
	if err := validateRecords(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE source = $1", s.table), source); err != nil {
		return fmt.Errorf("failed to delete source %s: %w", source, err)
	}
	if err := s.write(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit()
}

// Query ranks records of the query's dimension by cosine similarity
func (s *PgVectorStore) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, source, path, tag, content, metadata,
			1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		WHERE dimension = $2
		ORDER BY embedding <=> $1::vector, id
		LIMIT $3
	`, s.table)
	rows, err := s.db.QueryContext(ctx, query, vectorLiteral(vector), len(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		var tag string
		var meta []byte
		if err := rows.Scan(&h.ID, &h.Source, &h.Path, &tag, &h.Text, &meta, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		h.Tag = types.LanguageTag(tag)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortHits(hits)
	return hits, nil
}

// Count returns the number of stored records
func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// Close closes the connection pool
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

// vectorLiteral renders v in pgvector's text format, e.g. [0.1,0.2]
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
