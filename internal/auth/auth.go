// Package auth provides the authentication gate consulted before every
// draft save, restore, and delete, plus JWT issue/validate helpers for the
// draft service.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrAuthRequired indicates an operation needs a valid session token.
	// The autosave engine treats this as a silent no-op, not a failure.
	ErrAuthRequired = errors.New("authentication required")
	// ErrInvalidToken indicates a present but unusable token.
	ErrInvalidToken = errors.New("invalid token")
)

// Session is the caller-supplied session value. A nil session or an empty
// access token means unauthenticated. Sessions are passed by value into each
// operation rather than cached, so a logout mid-flow silences further writes
// on the very next attempt.
type Session struct {
	UserID      string
	AccessToken string
}

// IsAuthenticated reports whether the session may perform network I/O.
func IsAuthenticated(session *Session) bool {
	return session != nil && strings.TrimSpace(session.AccessToken) != ""
}

// Headers derives the request headers for an authenticated call. Returns nil
// whenever IsAuthenticated is false; it never fails.
func Headers(session *Session) http.Header {
	if !IsAuthenticated(session) {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+strings.TrimSpace(session.AccessToken))
	h.Set("Content-Type", "application/json")
	return h
}

// Config configures the server-side token service.
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// Service validates bearer tokens for the draft API.
type Service struct {
	jwt *JWTService
}

// NewService constructs an auth service from static configuration.
func NewService(cfg Config) *Service {
	service := &Service{}
	if strings.TrimSpace(cfg.JWTSecret) != "" {
		service.jwt = NewJWTService(cfg.JWTSecret, cfg.TokenExpiry)
	}
	return service
}

// Enabled reports whether token checks can run.
func (s *Service) Enabled() bool {
	return s != nil && s.jwt != nil
}
