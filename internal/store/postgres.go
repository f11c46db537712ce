package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore implements Store backed by PostgreSQL + pgvector, for
// deployments that already run Postgres and want the index server-side.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with a lib/pq DSN and initializes the schema with
// embeddings of the given dimension.
func OpenPostgres(dsn string, dim int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunks (
    id         BIGSERIAL PRIMARY KEY,
    location   TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL DEFAULT '',
    start_line INTEGER NOT NULL DEFAULT 1,
    context    TEXT NOT NULL DEFAULT '',
    docstring  TEXT NOT NULL DEFAULT '',
    document   TEXT NOT NULL,
    full_code  TEXT NOT NULL DEFAULT '',
    embedding  vector(%d) NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`, dim)
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) InsertChunks(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO chunks (location, name, kind, start_line, context, docstring, document, full_code, embedding) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(
			e.Location, e.Name, e.Kind, e.StartLine, e.Context, e.Docstring,
			e.Document, e.FullCode, pgvector.NewVector(e.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", e.Location, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Query(embedding []float32, limit int) ([]Hit, error) {
	rows, err := s.db.Query(`
		SELECT id, embedding <=> $1 AS distance, location, name, kind, start_line, context, docstring, document, full_code
		FROM chunks
		ORDER BY distance
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		err := rows.Scan(
			&h.ID, &h.Distance,
			&h.Location, &h.Name, &h.Kind, &h.StartLine,
			&h.Context, &h.Docstring, &h.Document, &h.FullCode,
		)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *PostgresStore) All() ([]Row, error) {
	rows, err := s.db.Query(`
		SELECT id, location, name, kind, start_line, context, docstring, document, full_code
		FROM chunks ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		err := rows.Scan(
			&r.ID, &r.Location, &r.Name, &r.Kind, &r.StartLine,
			&r.Context, &r.Docstring, &r.Document, &r.FullCode,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

func (s *PostgresStore) Reset() error {
	_, err := s.db.Exec("DELETE FROM chunks")
	return err
}

func (s *PostgresStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = $1", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *PostgresStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value",
		key, value,
	)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
