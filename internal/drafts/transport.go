// Package drafts owns the draft lifecycle operations (check, restore,
// delete, refresh) and the HTTP transport they share with the autosave
// engine.
package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/pkg/models"
)

// Transport performs the three draft operations against the remote store.
// Implementations must treat an absent draft as (nil, nil) on Fetch and as
// success on Delete.
type Transport interface {
	Save(ctx context.Context, session *auth.Session, req models.SaveRequest) error
	Fetch(ctx context.Context, session *auth.Session, key models.DraftKey) (*models.Draft, error)
	Delete(ctx context.Context, session *auth.Session, key models.DraftKey) error
}

// HTTPTransport talks to the draft service over HTTP with bearer auth.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport builds a transport for the given service base URL. A nil
// client gets a 15 second timeout.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Save posts one snapshot. The server upserts the single live draft for the
// authenticated owner and key.
func (t *HTTPTransport) Save(ctx context.Context, session *auth.Session, req models.SaveRequest) error {
	headers := auth.Headers(session)
	if headers == nil {
		return auth.ErrAuthRequired
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal save request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/drafts/save", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header = headers

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return auth.ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("save draft: unexpected status %d", resp.StatusCode)
	}

	var ack models.SaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode save response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("save draft rejected: %s", ack.Error)
	}
	return nil
}

// Fetch reads the single most recent draft for the key, or nil when none
// exists.
func (t *HTTPTransport) Fetch(ctx context.Context, session *auth.Session, key models.DraftKey) (*models.Draft, error) {
	headers := auth.Headers(session)
	if headers == nil {
		return nil, auth.ErrAuthRequired
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.draftURL("restore", key), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header = headers

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch draft: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, auth.ErrAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch draft: unexpected status %d", resp.StatusCode)
	}

	var payload models.RestoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode restore response: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("fetch draft rejected: %s", payload.Error)
	}
	return payload.Data, nil
}

// Delete removes the draft for the key. Deleting an absent draft succeeds.
func (t *HTTPTransport) Delete(ctx context.Context, session *auth.Session, key models.DraftKey) error {
	headers := auth.Headers(session)
	if headers == nil {
		return auth.ErrAuthRequired
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.draftURL("delete", key), nil)
	if err != nil {
		return err
	}
	httpReq.Header = headers

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return auth.ErrAuthRequired
	case resp.StatusCode == http.StatusNotFound:
		// Already absent counts as deleted.
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("delete draft: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (t *HTTPTransport) draftURL(op string, key models.DraftKey) string {
	query := url.Values{}
	query.Set("type", string(key.Type))
	if key.ResourceID != "" {
		query.Set("resourceId", key.ResourceID)
	}
	return t.baseURL + "/api/drafts/" + op + "?" + query.Encode()
}
