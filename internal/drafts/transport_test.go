package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/pkg/models"
)

func testSession() *auth.Session {
	return &auth.Session{UserID: "u1", AccessToken: "tok"}
}

func TestHTTPTransport_SaveSendsBearerAndBody(t *testing.T) {
	var gotAuth string
	var gotReq models.SaveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/drafts/save" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(models.SaveResponse{Success: true, DraftID: "d1"})
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	err := transport.Save(context.Background(), testSession(), models.SaveRequest{
		Type:      models.SessionCreation,
		Data:      json.RawMessage(`{"title":"animals"}`),
		Action:    "item_added",
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
	if gotReq.Action != "item_added" {
		t.Errorf("action = %q, want item_added", gotReq.Action)
	}
}

func TestHTTPTransport_SaveUnauthorizedMapsToAuthRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	err := transport.Save(context.Background(), testSession(), models.SaveRequest{Type: models.SessionCreation})
	if !errors.Is(err, auth.ErrAuthRequired) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
}

func TestHTTPTransport_SaveWithoutSessionNeverDials(t *testing.T) {
	dialed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed = true
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	err := transport.Save(context.Background(), nil, models.SaveRequest{Type: models.SessionCreation})
	if !errors.Is(err, auth.ErrAuthRequired) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
	if dialed {
		t.Error("unauthenticated save must not reach the network")
	}
}

func TestHTTPTransport_FetchReturnsDraft(t *testing.T) {
	draft := &models.Draft{
		ID:       "d1",
		Type:     models.SessionPlay,
		OwnerID:  "u1",
		Snapshot: json.RawMessage(`{"currentRound":2}`),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/drafts/restore" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != string(models.SessionPlay) {
			t.Errorf("type query = %q", got)
		}
		if got := r.URL.Query().Get("resourceId"); got != "t9" {
			t.Errorf("resourceId query = %q", got)
		}
		_ = json.NewEncoder(w).Encode(models.RestoreResponse{Success: true, Data: draft})
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	got, err := transport.Fetch(context.Background(), testSession(), models.DraftKey{
		Type: models.SessionPlay, OwnerID: "u1", ResourceID: "t9",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got == nil || got.ID != "d1" {
		t.Errorf("unexpected draft %+v", got)
	}
}

func TestHTTPTransport_FetchAbsentDraftIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.RestoreResponse{Success: true, Data: nil})
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	got, err := transport.Fetch(context.Background(), testSession(), models.DraftKey{
		Type: models.SessionCreation, OwnerID: "u1",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent draft, got %+v", got)
	}
}

func TestHTTPTransport_DeleteTreats404AsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	err := transport.Delete(context.Background(), testSession(), models.DraftKey{
		Type: models.SessionCreation, OwnerID: "u1",
	})
	if err != nil {
		t.Errorf("expected 404 delete to succeed, got %v", err)
	}
}

func TestHTTPTransport_ServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, nil)
	if err := transport.Save(context.Background(), testSession(), models.SaveRequest{Type: models.SessionCreation}); err == nil {
		t.Error("expected save failure on 500")
	}
	if _, err := transport.Fetch(context.Background(), testSession(), models.DraftKey{Type: models.SessionCreation, OwnerID: "u1"}); err == nil {
		t.Error("expected fetch failure on 500")
	}
	if err := transport.Delete(context.Background(), testSession(), models.DraftKey{Type: models.SessionCreation, OwnerID: "u1"}); err == nil {
		t.Error("expected delete failure on 500")
	}
}
