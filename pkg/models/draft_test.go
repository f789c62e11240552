package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDraftKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     DraftKey
		wantErr bool
	}{
		{"valid creation key", DraftKey{Type: SessionCreation, OwnerID: "u1"}, false},
		{"valid play key with resource", DraftKey{Type: SessionPlay, OwnerID: "u1", ResourceID: "t9"}, false},
		{"unknown type", DraftKey{Type: "bogus", OwnerID: "u1"}, true},
		{"missing owner", DraftKey{Type: SessionCreation}, true},
		{"whitespace owner", DraftKey{Type: SessionPlay, OwnerID: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDraft_Clone(t *testing.T) {
	original := &Draft{
		ID:        "d1",
		Type:      SessionCreation,
		OwnerID:   "u1",
		Snapshot:  json.RawMessage(`{"title":"animals"}`),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	clone := original.Clone()
	if clone == original {
		t.Fatal("expected a distinct value")
	}
	clone.Snapshot[2] = 'X'
	if string(original.Snapshot) != `{"title":"animals"}` {
		t.Error("mutating clone snapshot leaked into original")
	}

	var nilDraft *Draft
	if nilDraft.Clone() != nil {
		t.Error("expected nil clone for nil draft")
	}
}
