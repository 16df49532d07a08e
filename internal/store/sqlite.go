package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"admuse/internal/logging"
)

// SQLiteMirror persists snapshots as JSON blobs in a namespace-keyed table.
type SQLiteMirror struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteMirror opens (or creates) the mirror database at the given path.
func NewSQLiteMirror(path, namespace string) (*SQLiteMirror, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if namespace == "" {
		namespace = "default"
	}

	m := &SQLiteMirror{db: db, namespace: namespace}
	if err := m.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// initialize creates the snapshot table.
func (m *SQLiteMirror) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS persona_snapshots (
		namespace TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		epoch INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Load reads the latest snapshot for the namespace. A missing row or a
// corrupt payload yields (nil, nil) so callers start fresh.
func (m *SQLiteMirror) Load(ctx context.Context) (*Snapshot, error) {
	var payload string
	err := m.db.QueryRowContext(ctx,
		`SELECT payload FROM persona_snapshots WHERE namespace = ?`,
		m.namespace).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		logging.Mirror("discarding corrupt snapshot for namespace %s: %v", m.namespace, err)
		return nil, nil
	}
	return &snap, nil
}

// Save writes a snapshot, replacing any previous one for the namespace.
func (m *SQLiteMirror) Save(ctx context.Context, snap Snapshot) error {
	snap.SavedAt = time.Now().UTC()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO persona_snapshots (namespace, payload, epoch, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(namespace) DO UPDATE SET
			payload = excluded.payload,
			epoch = excluded.epoch,
			updated_at = CURRENT_TIMESTAMP`,
		m.namespace, string(payload), snap.Epoch)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}
