// Package docstore persists uploaded documents in a local SQLite database.
//
// The store is the system of record for raw document content: the vector
// index only holds chunk snippets, so re-embedding a document always reads
// the full text back from here. SQLite via modernc.org/sqlite keeps the
// binary CGO-free and the database a single portable file.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a document id does not exist in the store.
var ErrNotFound = errors.New("docstore: document not found")

// Document is a stored document.
type Document struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
}

// Store is the persistence contract for documents.
type Store interface {
	// Save stores a new document and returns its generated id.
	Save(ctx context.Context, title, content string) (string, error)
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)
	// List returns all documents, newest first. Content is included.
	List(ctx context.Context) ([]Document, error)
	// Close releases the underlying database handle.
	Close() error
}

// DefaultDBPath returns the default database location (~/.docqa/documents.db),
// falling back to a relative path when the home directory cannot be resolved.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "documents.db"
	}
	return filepath.Join(home, ".docqa", "documents.db")
}

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and runs
// migrations. Pass ":memory:" for an ephemeral in-memory store.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("docstore: create db directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open database: %w", err)
	}

	// modernc.org/sqlite serialises writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("docstore: migrate: %w", err)
	}
	return nil
}

// Save stores a new document and returns its generated id.
func (s *SQLiteStore) Save(ctx context.Context, title, content string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, created_at) VALUES (?, ?, ?, ?)`,
		id, title, content, now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("docstore: insert document: %w", err)
	}
	return id, nil
}

// Get returns the document with the given id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at FROM documents WHERE id = ?`, id)

	var doc Document
	var createdAt int64
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("docstore: query document: %w", err)
	}
	doc.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &doc, nil
}

// List returns all documents, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, created_at FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("docstore: list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		var createdAt int64
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("docstore: scan document: %w", err)
		}
		doc.CreatedAt = time.Unix(createdAt, 0).UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: iterate documents: %w", err)
	}
	return docs, nil
}

// Ping reports whether the database is reachable. Satisfies the server's
// readiness Pinger contract.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("docstore: ping: %w", err)
	}
	return nil
}

// Name identifies this dependency in readiness reports.
func (s *SQLiteStore) Name() string { return "docstore" }

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
