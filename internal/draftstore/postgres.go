package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/bracketlab/autodraft/pkg/models"
)

// PostgresConfig holds connection pool settings for the Postgres store.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns the default pool configuration.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a Postgres-backed draft store and verifies the
// connection. The drafts table is created when missing.
func NewPostgresStore(dsn string, config *PostgresConfig) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			session_type TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			snapshot BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (session_type, owner_id, resource_id)
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init drafts table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases database resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the snapshot for the key.
func (s *PostgresStore) Save(ctx context.Context, key models.DraftKey, snapshot json.RawMessage) (*models.Draft, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, session_type, owner_id, resource_id, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_type, owner_id, resource_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at
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
func (s *PostgresStore) Get(ctx context.Context, key models.DraftKey) (*models.Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_type, owner_id, resource_id, snapshot, created_at, updated_at
		FROM drafts
		WHERE session_type = $1 AND owner_id = $2 AND resource_id = $3
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
func (s *PostgresStore) Delete(ctx context.Context, key models.DraftKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM drafts
		WHERE session_type = $1 AND owner_id = $2 AND resource_id = $3
	`, string(key.Type), key.OwnerID, key.ResourceID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// Prune removes drafts not updated within the given duration.
func (s *PostgresStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune drafts: %w", err)
	}
	return result.RowsAffected()
}
