package drafts

import (
	"context"
	"errors"
	"sync"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/observability"
	"github.com/bracketlab/autodraft/pkg/models"
)

// SessionProvider yields the current session; consulted fresh on every
// operation.
type SessionProvider func() *auth.Session

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// AutoCheck runs CheckForDraft on Start and again whenever
	// HandleIdentityChange sees an authenticated session.
	AutoCheck bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Manager owns the check/restore/delete/refresh operations for one logical
// draft key, independent of whether a save is currently pending. None of
// its operations propagate errors to the caller; failures resolve into
// false/nil results plus an observable error string.
type Manager struct {
	sessionType models.SessionType
	resourceID  string
	transport   Transport
	sessions    SessionProvider
	opts        ManagerOptions

	mu         sync.Mutex
	hasDraft   bool
	checking   bool
	restoring  bool
	draft      *models.Draft
	lastErr    string
}

// NewManager builds a manager for the given flow and optional owning
// resource id.
func NewManager(sessionType models.SessionType, resourceID string, transport Transport, sessions SessionProvider, opts ManagerOptions) *Manager {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Manager{
		sessionType: sessionType,
		resourceID:  resourceID,
		transport:   transport,
		sessions:    sessions,
		opts:        opts,
	}
}

// Start runs the mount-time auto check when enabled and authenticated.
func (m *Manager) Start(ctx context.Context) {
	if !m.opts.AutoCheck {
		return
	}
	m.HandleIdentityChange(ctx)
}

// HandleIdentityChange re-evaluates the session. A confirmed
// unauthenticated session resets state to the no-draft baseline rather than
// leaving stale data; an authenticated one re-checks when AutoCheck is set.
func (m *Manager) HandleIdentityChange(ctx context.Context) {
	if !auth.IsAuthenticated(m.session()) {
		m.mu.Lock()
		m.hasDraft = false
		m.draft = nil
		m.lastErr = ""
		m.mu.Unlock()
		return
	}
	if m.opts.AutoCheck {
		m.CheckForDraft(ctx)
	}
}

// CheckForDraft probes the remote store for a resumable draft. Denied
// sessions and transport failures both land on the "no draft" baseline; a
// failure additionally records an error string.
func (m *Manager) CheckForDraft(ctx context.Context) {
	session := m.session()
	if !auth.IsAuthenticated(session) {
		m.mu.Lock()
		m.hasDraft = false
		m.draft = nil
		m.lastErr = ""
		m.mu.Unlock()
		m.count("check", "denied")
		return
	}

	m.mu.Lock()
	m.checking = true
	m.mu.Unlock()

	draft, err := m.transport.Fetch(ctx, session, m.key(session))

	m.mu.Lock()
	m.checking = false
	if err != nil {
		m.hasDraft = false
		m.draft = nil
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.opts.Logger.Warn(ctx, "draft check failed",
			"session_type", string(m.sessionType), "error", err)
		m.count("check", "error")
		return
	}
	m.hasDraft = draft != nil
	m.draft = draft
	m.lastErr = ""
	m.mu.Unlock()
	m.count("check", "success")
}

// RestoreDraft fetches the draft on demand, ignoring AutoCheck. Returns the
// record, or nil on any failure; it never panics or propagates an error.
func (m *Manager) RestoreDraft(ctx context.Context) *models.Draft {
	session := m.session()
	if !auth.IsAuthenticated(session) {
		m.count("restore", "denied")
		return nil
	}

	m.mu.Lock()
	m.restoring = true
	m.mu.Unlock()

	draft, err := m.transport.Fetch(ctx, session, m.key(session))

	m.mu.Lock()
	m.restoring = false
	if err != nil {
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.opts.Logger.Warn(ctx, "draft restore failed",
			"session_type", string(m.sessionType), "error", err)
		m.count("restore", "error")
		return nil
	}
	m.hasDraft = draft != nil
	m.draft = draft
	m.lastErr = ""
	m.mu.Unlock()
	m.count("restore", "success")
	return draft.Clone()
}

// DeleteDraft removes the remote draft. Already-absent drafts count as
// deleted, making repeat deletes idempotent. Returns false for denied
// sessions and transport failures.
func (m *Manager) DeleteDraft(ctx context.Context) bool {
	session := m.session()
	if !auth.IsAuthenticated(session) {
		m.count("delete", "denied")
		return false
	}

	err := m.transport.Delete(ctx, session, m.key(session))
	if err != nil {
		if errors.Is(err, auth.ErrAuthRequired) {
			m.count("delete", "denied")
			return false
		}
		m.mu.Lock()
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.opts.Logger.Warn(ctx, "draft delete failed",
			"session_type", string(m.sessionType), "error", err)
		m.count("delete", "error")
		return false
	}

	m.mu.Lock()
	m.hasDraft = false
	m.draft = nil
	m.lastErr = ""
	m.mu.Unlock()
	m.count("delete", "success")
	return true
}

// RefreshDraft re-runs the remote check on demand.
func (m *Manager) RefreshDraft(ctx context.Context) {
	m.CheckForDraft(ctx)
}

// HasDraft reports whether the last check found a resumable draft.
func (m *Manager) HasDraft() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasDraft
}

// IsChecking reports whether a check is in flight.
func (m *Manager) IsChecking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checking
}

// IsRestoring reports whether a restore is in flight.
func (m *Manager) IsRestoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoring
}

// DraftData returns the most recently fetched draft, or nil.
func (m *Manager) DraftData() *models.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft.Clone()
}

// Err returns the error string from the last failed operation, empty after
// any success or reset.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) session() *auth.Session {
	if m.sessions == nil {
		return nil
	}
	return m.sessions()
}

func (m *Manager) key(session *auth.Session) models.DraftKey {
	return models.DraftKey{
		Type:       m.sessionType,
		OwnerID:    session.UserID,
		ResourceID: m.resourceID,
	}
}

func (m *Manager) count(operation, result string) {
	if m.opts.Metrics != nil {
		m.opts.Metrics.DraftOpCounter.WithLabelValues(operation, result).Inc()
	}
}
