package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/observability"
	"github.com/bracketlab/autodraft/pkg/models"
)

// handleSave upserts the single live draft for the authenticated owner and
// key. The client-supplied owner is ignored; identity comes from the token.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, models.SaveResponse{Success: false, Error: "method not allowed"})
		return
	}

	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, models.SaveResponse{Success: false, Error: "authentication required"})
		return
	}

	var req models.SaveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodySize())).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SaveResponse{Success: false, Error: "invalid request body"})
		return
	}
	if !req.Type.Valid() {
		writeJSON(w, http.StatusBadRequest, models.SaveResponse{Success: false, Error: "unknown session type"})
		return
	}
	if len(req.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, models.SaveResponse{Success: false, Error: "data is required"})
		return
	}
	if len(req.Data) > s.maxSizeFor(req.Type) {
		writeJSON(w, http.StatusRequestEntityTooLarge, models.SaveResponse{Success: false, Error: "snapshot exceeds maximum size"})
		return
	}

	key := models.DraftKey{Type: req.Type, OwnerID: user.ID, ResourceID: req.ResourceID}
	ctx := observability.AddUserID(r.Context(), user.ID)
	ctx = observability.AddSessionType(ctx, string(req.Type))

	start := time.Now()
	draft, err := s.store.Save(ctx, key, req.Data)
	s.observeStore("save", start)
	if err != nil {
		s.logger.Error(ctx, "draft save failed", "action", req.Action, "error", err)
		writeJSON(w, http.StatusInternalServerError, models.SaveResponse{Success: false, Error: "save failed"})
		return
	}

	s.logger.Debug(ctx, "draft saved", "action", req.Action, "draft_id", draft.ID)
	writeJSON(w, http.StatusOK, models.SaveResponse{Success: true, DraftID: draft.ID})
}

// handleRestore returns the single most recent draft for the key, with a
// null data field when none exists. Absence is a success, not a 404.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, models.RestoreResponse{Success: false, Error: "method not allowed"})
		return
	}

	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, models.RestoreResponse{Success: false, Error: "authentication required"})
		return
	}

	key, ok := s.keyFromQuery(w, r, user.ID)
	if !ok {
		return
	}

	start := time.Now()
	draft, err := s.store.Get(r.Context(), key)
	s.observeStore("get", start)
	if err != nil {
		s.logger.Error(r.Context(), "draft restore failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.RestoreResponse{Success: false, Error: "restore failed"})
		return
	}

	writeJSON(w, http.StatusOK, models.RestoreResponse{Success: true, Data: draft})
}

// handleDelete removes the draft for the key. Deleting an absent draft
// succeeds, making client retries and double-fires harmless.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, models.DeleteResponse{Success: false, Error: "method not allowed"})
		return
	}

	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, models.DeleteResponse{Success: false, Error: "authentication required"})
		return
	}

	key, ok := s.keyFromQuery(w, r, user.ID)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Delete(r.Context(), key)
	s.observeStore("delete", start)
	if err != nil {
		s.logger.Error(r.Context(), "draft delete failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.DeleteResponse{Success: false, Error: "delete failed"})
		return
	}

	writeJSON(w, http.StatusOK, models.DeleteResponse{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) keyFromQuery(w http.ResponseWriter, r *http.Request, ownerID string) (models.DraftKey, bool) {
	sessionType := models.SessionType(r.URL.Query().Get("type"))
	if !sessionType.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "unknown session type"})
		return models.DraftKey{}, false
	}
	return models.DraftKey{
		Type:       sessionType,
		OwnerID:    ownerID,
		ResourceID: r.URL.Query().Get("resourceId"),
	}, true
}

func (s *Server) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.StoreQueryDuration.
			WithLabelValues(operation).
			Observe(time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
