// Package draftstore persists draft records for the draft service. At most
// one live draft exists per (sessionType, ownerID, resourceID) key; saves
// upsert, deletes are idempotent.
package draftstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bracketlab/autodraft/pkg/models"
)

// Store persists draft records.
type Store interface {
	// Save upserts the snapshot for the key and returns the stored record.
	Save(ctx context.Context, key models.DraftKey, snapshot json.RawMessage) (*models.Draft, error)
	// Get returns the draft for the key, or nil when none exists.
	Get(ctx context.Context, key models.DraftKey) (*models.Draft, error)
	// Delete removes the draft for the key. Absent drafts are not an error.
	Delete(ctx context.Context, key models.DraftKey) error
	// Prune removes drafts not updated within the given duration. Returns
	// the count of pruned drafts.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	// Close releases store resources.
	Close() error
}

// MemoryStore keeps drafts in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[models.DraftKey]*models.Draft
}

// NewMemoryStore returns a new in-memory draft store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[models.DraftKey]*models.Draft),
	}
}

// Save upserts the snapshot for the key.
func (s *MemoryStore) Save(ctx context.Context, key models.DraftKey, snapshot json.RawMessage) (*models.Draft, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	existing, ok := s.drafts[key]
	if ok {
		existing.Snapshot = append(json.RawMessage(nil), snapshot...)
		existing.UpdatedAt = now
		return existing.Clone(), nil
	}

	draft := &models.Draft{
		ID:         uuid.NewString(),
		Type:       key.Type,
		OwnerID:    key.OwnerID,
		ResourceID: key.ResourceID,
		Snapshot:   append(json.RawMessage(nil), snapshot...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.drafts[key] = draft
	return draft.Clone(), nil
}

// Get returns the draft for the key, or nil.
func (s *MemoryStore) Get(ctx context.Context, key models.DraftKey) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drafts[key].Clone(), nil
}

// Delete removes the draft for the key.
func (s *MemoryStore) Delete(ctx context.Context, key models.DraftKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}

// Prune removes drafts not updated within the given duration.
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var pruned int64
	for key, draft := range s.drafts {
		if draft.UpdatedAt.Before(cutoff) {
			delete(s.drafts, key)
			pruned++
		}
	}
	return pruned, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
