package termcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cache_entries (
	subject   TEXT PRIMARY KEY,
	synced_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS terms (
	subject     TEXT NOT NULL REFERENCES cache_entries(subject) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	id          TEXT NOT NULL,
	kazakh      TEXT NOT NULL,
	russian     TEXT NOT NULL,
	english     TEXT NOT NULL,
	description TEXT NOT NULL,
	PRIMARY KEY (subject, position)
);

CREATE INDEX IF NOT EXISTS idx_terms_id ON terms(id);
`

// SQLiteBackend stores entries in a SQLite database. Each subject is one
// row in cache_entries; its terms are kept in row order in terms.
type SQLiteBackend struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("termcache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("termcache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("termcache: apply schema: %w", err)
	}
	return &SQLiteBackend{conn: conn}, nil
}

// Ping checks the database connection.
func (db *SQLiteBackend) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Load reads the subject's entry with its terms in stored order.
func (db *SQLiteBackend) Load(ctx context.Context, subject models.Subject) (*Entry, error) {
	var syncedMs int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT synced_at FROM cache_entries WHERE subject = ?`, string(subject)).Scan(&syncedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrCacheMiss
	}
	if err != nil {
		return nil, &apperr.CacheError{Op: "load entry", Cause: err}
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kazakh, russian, english, description
		FROM terms
		WHERE subject = ?
		ORDER BY position
	`, string(subject))
	if err != nil {
		return nil, &apperr.CacheError{Op: "load terms", Cause: err}
	}
	defer rows.Close()

	e := &Entry{Subject: subject, SyncedAt: time.UnixMilli(syncedMs), Terms: []models.Term{}}
	for rows.Next() {
		t := models.Term{Subject: subject}
		if err := rows.Scan(&t.ID, &t.Kazakh, &t.Russian, &t.English, &t.Description); err != nil {
			return nil, &apperr.CacheError{Op: "scan term", Cause: err}
		}
		e.Terms = append(e.Terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperr.CacheError{Op: "load terms", Cause: err}
	}
	return e, nil
}

// Save replaces the subject's entry and terms within a transaction.
func (db *SQLiteBackend) Save(ctx context.Context, e *Entry) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &apperr.CacheError{Op: "begin tx", Cause: err}
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cache_entries (subject, synced_at)
		VALUES (?, ?)
		ON CONFLICT(subject) DO UPDATE SET synced_at = excluded.synced_at
	`, string(e.Subject), e.SyncedAt.UnixMilli())
	if err != nil {
		return &apperr.CacheError{Op: "upsert entry", Cause: err}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE subject = ?`, string(e.Subject)); err != nil {
		return &apperr.CacheError{Op: "delete terms", Cause: err}
	}
	if len(e.Terms) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO terms (subject, position, id, kazakh, russian, english, description)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return &apperr.CacheError{Op: "prepare term insert", Cause: err}
		}
		defer stmt.Close()
		for i, t := range e.Terms {
			if _, err := stmt.ExecContext(ctx, string(e.Subject), i, t.ID, t.Kazakh, t.Russian, t.English, t.Description); err != nil {
				return &apperr.CacheError{Op: "insert term", Cause: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &apperr.CacheError{Op: "commit", Cause: err}
	}
	return nil
}

// Clear removes every entry in one transaction.
func (db *SQLiteBackend) Clear(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &apperr.CacheError{Op: "begin tx", Cause: err}
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM terms`); err != nil {
		return &apperr.CacheError{Op: "clear terms", Cause: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return &apperr.CacheError{Op: "clear entries", Cause: err}
	}
	if err := tx.Commit(); err != nil {
		return &apperr.CacheError{Op: "commit", Cause: err}
	}
	return nil
}

// Close closes the underlying database connection.
func (db *SQLiteBackend) Close() error {
	return db.conn.Close()
}

var _ Backend = (*SQLiteBackend)(nil)
