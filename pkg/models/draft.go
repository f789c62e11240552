// Package models contains the shared types exchanged between the autosave
// engine, the draft lifecycle manager, and the draft service.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SessionType identifies which feature flow a draft belongs to.
type SessionType string

const (
	// SessionCreation is the tournament creation wizard flow.
	SessionCreation SessionType = "worldcup_creation"
	// SessionPlay is the in-progress bracket play flow.
	SessionPlay SessionType = "worldcup_play"
)

// Valid reports whether the session type is one of the known flows.
func (t SessionType) Valid() bool {
	return t == SessionCreation || t == SessionPlay
}

// DraftKey identifies the single live draft for a user within a flow.
// ResourceID is empty for flows that are not scoped to an existing resource
// (the creation wizard before first publish).
type DraftKey struct {
	Type       SessionType `json:"type"`
	OwnerID    string      `json:"ownerId"`
	ResourceID string      `json:"resourceId,omitempty"`
}

// Validate checks that the key can address a draft record.
func (k DraftKey) Validate() error {
	if !k.Type.Valid() {
		return errors.New("unknown session type")
	}
	if strings.TrimSpace(k.OwnerID) == "" {
		return errors.New("owner id required")
	}
	return nil
}

// Draft is the persisted, resumable representation of in-progress work.
// At most one live draft exists per key; saves wholesale-replace Snapshot.
type Draft struct {
	ID         string          `json:"id"`
	Type       SessionType     `json:"type"`
	OwnerID    string          `json:"ownerId"`
	ResourceID string          `json:"resourceId,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Key returns the addressing key for the draft.
func (d *Draft) Key() DraftKey {
	return DraftKey{Type: d.Type, OwnerID: d.OwnerID, ResourceID: d.ResourceID}
}

// Clone returns a deep copy safe to hand across goroutines.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	clone := *d
	if d.Snapshot != nil {
		clone.Snapshot = append(json.RawMessage(nil), d.Snapshot...)
	}
	return &clone
}

// User is the authenticated identity associated with a session token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
