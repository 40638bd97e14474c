package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/provtrack/internal/record"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	location TEXT PRIMARY KEY,
	subject  TEXT NOT NULL DEFAULT '',
	seq      INTEGER NOT NULL,
	doc      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_subject ON records(subject);
CREATE INDEX IF NOT EXISTS idx_records_seq ON records(seq);
`

// SQLite stores one row per record; seq carries the write order.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Load() ([]record.Record, error) {
	rows, err := s.conn.Query(`SELECT doc FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		rec, err := record.Unmarshal([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("store: load: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Save upserts changed in one transaction and moves it, in order, to the end
// of the write order.
func (s *SQLite) Save(changed []record.Record, _ []record.Record) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var seq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM records`).Scan(&seq); err != nil {
		return fmt.Errorf("store: next seq: %w", err)
	}

	for _, rec := range changed {
		doc, err := record.Marshal(rec)
		if err != nil {
			return fmt.Errorf("store: encode: %w", err)
		}
		subject, _ := rec.String(record.FieldSubject)
		seq++

		_, err = tx.Exec(`
			INSERT INTO records (location, subject, seq, doc)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(location) DO UPDATE SET
				subject = excluded.subject,
				seq     = excluded.seq,
				doc     = excluded.doc
		`, rec.Location().String(), subject, seq, string(doc))
		if err != nil {
			return fmt.Errorf("store: upsert record: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
