// Package kvstore provides the durable backing stores for the offline
// layer: cached resources keyed by cache generation, and the queue of
// expense mutations awaiting replay. The SQLite store survives restarts;
// the in-memory store backs tests and ephemeral deployments.
package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smartspendr/bfa-go/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	generation TEXT NOT NULL,
	key        TEXT NOT NULL,
	status     INTEGER NOT NULL,
	header     TEXT NOT NULL,
	body       BLOB NOT NULL,
	fetched_at TEXT NOT NULL,
	PRIMARY KEY (generation, key)
);

CREATE TABLE IF NOT EXISTS mutations (
	client_id  TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	expense_id TEXT NOT NULL DEFAULT '',
	payload    BLOB,
	queued_at  TEXT NOT NULL,
	seq        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mutations_seq ON mutations(seq);
`

// SQLiteStore implements port.ResourceStore and port.MutationQueue over a
// single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite database at dbPath
// and applies the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores one cached resource, replacing any previous entry under the
// same generation and key.
func (s *SQLiteStore) Put(ctx context.Context, generation, key string, res domain.CachedResource) error {
	header, err := json.Marshal(res.Header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO resources (generation, key, status, header, body, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (generation, key) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		generation, key, res.Status, string(header), res.Body,
		res.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put resource %s: %w", key, err)
	}
	return nil
}

// Match looks up one cached resource by exact key; a miss surfaces as
// *domain.ErrCacheMiss.
func (s *SQLiteStore) Match(ctx context.Context, generation, key string) (domain.CachedResource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status, header, body, fetched_at FROM resources WHERE generation = ? AND key = ?`,
		generation, key,
	)

	var (
		status    int
		headerRaw string
		body      []byte
		fetchedAt string
	)
	if err := row.Scan(&status, &headerRaw, &body, &fetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.CachedResource{}, &domain.ErrCacheMiss{Key: key}
		}
		return domain.CachedResource{}, fmt.Errorf("match resource %s: %w", key, err)
	}

	header := make(http.Header)
	if err := json.Unmarshal([]byte(headerRaw), &header); err != nil {
		return domain.CachedResource{}, fmt.Errorf("decode header for %s: %w", key, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return domain.CachedResource{}, fmt.Errorf("decode fetched_at for %s: %w", key, err)
	}

	return domain.CachedResource{
		Key:       key,
		Status:    status,
		Header:    header,
		Body:      body,
		FetchedAt: ts,
	}, nil
}

// Generations lists every cache generation that currently holds resources.
func (s *SQLiteStore) Generations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT generation FROM resources ORDER BY generation`)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var gens []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// DeleteGeneration removes every resource stored under one generation.
func (s *SQLiteStore) DeleteGeneration(ctx context.Context, generation string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM resources WHERE generation = ?`, generation,
	); err != nil {
		return fmt.Errorf("delete generation %s: %w", generation, err)
	}
	return nil
}

// Enqueue appends one mutation to the durable queue. The seq column
// preserves enqueue order independently of queued_at clock resolution.
func (s *SQLiteStore) Enqueue(ctx context.Context, m domain.QueuedMutation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mutations (client_id, user_id, kind, expense_id, payload, queued_at, seq)
		 VALUES (?, ?, ?, ?, ?, ?, COALESCE((SELECT MAX(seq) FROM mutations), 0) + 1)`,
		m.ClientID, m.UserID, string(m.Kind), m.ExpenseID, m.Payload,
		m.QueuedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("enqueue mutation %s: %w", m.ClientID, err)
	}
	return nil
}

// Pending returns every unacknowledged mutation in enqueue order.
func (s *SQLiteStore) Pending(ctx context.Context) ([]domain.QueuedMutation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, user_id, kind, expense_id, payload, queued_at
		 FROM mutations ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending mutations: %w", err)
	}
	defer rows.Close()

	var out []domain.QueuedMutation
	for rows.Next() {
		var (
			m        domain.QueuedMutation
			kind     string
			queuedAt string
		)
		if err := rows.Scan(&m.ClientID, &m.UserID, &kind, &m.ExpenseID, &m.Payload, &queuedAt); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.Kind = domain.MutationKind(kind)
		if ts, err := time.Parse(time.RFC3339Nano, queuedAt); err == nil {
			m.QueuedAt = ts
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Ack removes an acknowledged mutation from the queue. Acking an unknown
// client id is a no-op.
func (s *SQLiteStore) Ack(ctx context.Context, clientID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM mutations WHERE client_id = ?`, clientID,
	); err != nil {
		return fmt.Errorf("ack mutation %s: %w", clientID, err)
	}
	return nil
}
