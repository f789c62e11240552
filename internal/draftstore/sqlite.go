package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bracketlab/autodraft/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drafts (
	id TEXT PRIMARY KEY,
	session_type TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	resource_id TEXT NOT NULL DEFAULT '',
	snapshot BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (session_type, owner_id, resource_id)
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts (updated_at);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a SQLite-backed store at
// the given path. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the snapshot for the key.
func (s *SQLiteStore) Save(ctx context.Context, key models.DraftKey, snapshot json.RawMessage) (*models.Draft, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, session_type, owner_id, resource_id, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_type, owner_id, resource_id)
		DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`,
		uuid.NewString(),
		string(key.Type),
		key.OwnerID,
		key.ResourceID,
		[]byte(snapshot),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.Get(ctx, key)
}

// Get returns the draft for the key, or nil.
func (s *SQLiteStore) Get(ctx context.Context, key models.DraftKey) (*models.Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_type, owner_id, resource_id, snapshot, created_at, updated_at
		FROM drafts
		WHERE session_type = ? AND owner_id = ? AND resource_id = ?
	`, string(key.Type), key.OwnerID, key.ResourceID)

	draft, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return draft, nil
}

// Delete removes the draft for the key. Absent drafts are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key models.DraftKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM drafts
		WHERE session_type = ? AND owner_id = ? AND resource_id = ?
	`, string(key.Type), key.OwnerID, key.ResourceID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Prune removes drafts not updated within the given duration.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune drafts: %w", err)
	}
	return result.RowsAffected()
}

type draftScanner interface {
	Scan(dest ...any) error
}

func scanDraft(scanner draftScanner) (*models.Draft, error) {
	var (
		draft       models.Draft
		sessionType string
		snapshot    []byte
	)
	if err := scanner.Scan(
		&draft.ID,
		&sessionType,
		&draft.OwnerID,
		&draft.ResourceID,
		&snapshot,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	); err != nil {
		return nil, err
	}
	draft.Type = models.SessionType(sessionType)
	draft.Snapshot = snapshot
	return &draft, nil
}
