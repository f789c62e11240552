package models

import "encoding/json"

// SaveRequest is the body of a draft save call. Timestamp is the client
// clock in unix milliseconds at trigger time; the server keys updatedAt off
// its own clock and treats this as informational only.
type SaveRequest struct {
	Type       SessionType     `json:"type"`
	ResourceID string          `json:"resourceId,omitempty"`
	Data       json.RawMessage `json:"data"`
	Action     string          `json:"action"`
	Timestamp  int64           `json:"timestamp"`
}

// SaveResponse acknowledges a save.
type SaveResponse struct {
	Success bool   `json:"success"`
	DraftID string `json:"draftId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RestoreResponse carries the single most recent draft for a key, or a null
// Data field when none exists. Absence is not an error.
type RestoreResponse struct {
	Success bool   `json:"success"`
	Data    *Draft `json:"data"`
	Error   string `json:"error,omitempty"`
}

// DeleteResponse acknowledges a delete. Deleting an absent draft succeeds.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
