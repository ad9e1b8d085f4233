// Package modelstore persists trained model artifacts and generated reports
// in SQLite so entities survive restarts without retraining.
package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/demandcast/demandcast/forecast"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("entity not found in store")

const schema = `
-- One row per entity, latest artifact wins
CREATE TABLE IF NOT EXISTS artifacts (
    entity     TEXT PRIMARY KEY,
    payload    BLOB     NOT NULL,
    trained_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Append-only report history per entity
CREATE TABLE IF NOT EXISTS reports (
    id           TEXT PRIMARY KEY,
    entity       TEXT     NOT NULL,
    generated_at DATETIME NOT NULL,
    payload      BLOB     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_entity ON reports(entity, generated_at DESC);
`

const reportRetention = 90 * 24 * time.Hour

// Store wraps a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given path, applies the
// schema, and prunes stale reports. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open store %q, %w", path, err)
	}
	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to apply store schema, %w", err)
	}

	s := &Store{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveArtifact upserts the trained artifact for an entity.
func (s *Store) SaveArtifact(ctx context.Context, entity string, a *forecast.Artifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("unable to serialize artifact for %q, %w", entity, err)
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (entity, payload, trained_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity) DO UPDATE SET
			payload    = excluded.payload,
			trained_at = excluded.trained_at,
			updated_at = excluded.updated_at
	`, entity, payload, a.TrainedAt.UTC(), now); err != nil {
		return fmt.Errorf("unable to upsert artifact for %q, %w", entity, err)
	}
	return nil
}

// LoadArtifact fetches the stored artifact for an entity.
func (s *Store) LoadArtifact(ctx context.Context, entity string) (*forecast.Artifact, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM artifacts WHERE entity = ?`, entity,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact for %q, %w", entity, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load artifact for %q, %w", entity, err)
	}

	var a forecast.Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("unable to parse artifact for %q, %w", entity, err)
	}
	return &a, nil
}

// Entities lists all entities with a stored artifact, most recently updated
// first.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity FROM artifacts ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to list entities, %w", err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("unable to scan entity row, %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// SaveReport appends a serialized report for an entity.
func (s *Store) SaveReport(ctx context.Context, id uuid.UUID, entity string, generatedAt time.Time, payload []byte) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, entity, generated_at, payload) VALUES (?, ?, ?, ?)`,
		id.String(), entity, generatedAt.UTC(), payload,
	); err != nil {
		return fmt.Errorf("unable to insert report %s for %q, %w", id, entity, err)
	}
	return nil
}

// RecentReports returns up to limit serialized reports for an entity, newest
// first.
func (s *Store) RecentReports(ctx context.Context, entity string, limit int) ([][]byte, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM reports
		WHERE entity = ?
		ORDER BY generated_at DESC
		LIMIT ?
	`, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query reports for %q, %w", entity, err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("unable to scan report row, %w", err)
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// pruneOld drops reports beyond the retention window to keep the file small.
func (s *Store) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-reportRetention)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE generated_at < ?`, cutoff); err != nil {
		slog.Warn("failed to prune old reports", "err", err)
	}
}
