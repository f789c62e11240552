package flows

import (
	"context"
	"sync"
	"time"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/autosave"
	"github.com/bracketlab/autodraft/internal/drafts"
	"github.com/bracketlab/autodraft/internal/observability"
	"github.com/bracketlab/autodraft/internal/retry"
	"github.com/bracketlab/autodraft/pkg/models"
)

// DefaultCompletionCleanupDelay leaves room for an in-flight final save to
// land before the finished tournament's draft is deleted.
const DefaultCompletionCleanupDelay = 2 * time.Second

// PlayOptions configures the bracket-play flow for one tournament.
type PlayOptions struct {
	// Enabled is the feature flag; the effective gate also requires an
	// authenticated session, progress data, and a tournament ID.
	Enabled bool

	TournamentID string
	Transport    drafts.Transport
	Sessions     func() *auth.Session

	// Debounce defaults to 300ms; play progress is small and frequent.
	Debounce time.Duration
	// MaxDataSize defaults to 256 KiB.
	MaxDataSize int
	Retry       retry.Config

	// CompletionCleanupDelay overrides the grace period between tournament
	// completion and draft deletion.
	CompletionCleanupDelay time.Duration

	OnSaveSuccess func()
	OnSaveError   func(error)

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// PlayFlow autosaves in-progress bracket state and cleans the draft up when
// the tournament completes.
type PlayFlow struct {
	engine  *autosave.Engine
	manager *drafts.Manager

	tournamentID string
	cleanupDelay time.Duration

	mu           sync.Mutex
	enabled      bool
	completed    bool
	cleanupTimer *time.Timer
	cleanupOnce  sync.Once
	data         *models.PlayProgress
}

// NewPlayFlow builds the play adapter. The engine starts disabled until
// progress arrives via SetProgress.
func NewPlayFlow(opts PlayOptions) *PlayFlow {
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.MaxDataSize <= 0 {
		opts.MaxDataSize = 256 * 1024
	}
	if opts.CompletionCleanupDelay <= 0 {
		opts.CompletionCleanupDelay = DefaultCompletionCleanupDelay
	}

	f := &PlayFlow{
		tournamentID: opts.TournamentID,
		cleanupDelay: opts.CompletionCleanupDelay,
		enabled:      opts.Enabled,
	}

	save := func(ctx context.Context, data []byte, action string) error {
		return opts.Transport.Save(ctx, opts.Sessions(), models.SaveRequest{
			Type:       models.SessionPlay,
			ResourceID: f.tournamentID,
			Data:       data,
			Action:     action,
			Timestamp:  time.Now().UnixMilli(),
		})
	}

	f.engine = autosave.NewEngine(f.snapshot, save, autosave.Options{
		SessionType:   models.SessionPlay,
		Debounce:      opts.Debounce,
		Enabled:       false,
		MaxDataSize:   opts.MaxDataSize,
		Retry:         opts.Retry,
		Sessions:      opts.Sessions,
		OnSaveSuccess: opts.OnSaveSuccess,
		OnSaveError:   opts.OnSaveError,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
	})

	f.manager = drafts.NewManager(models.SessionPlay, opts.TournamentID, opts.Transport, opts.Sessions, drafts.ManagerOptions{
		AutoCheck: true,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})

	return f
}

// Start runs the mount-time draft auto check.
func (f *PlayFlow) Start(ctx context.Context) {
	f.manager.Start(ctx)
}

// SetProgress replaces the live bracket state and recomputes the gate.
func (f *PlayFlow) SetProgress(data *models.PlayProgress) {
	f.mu.Lock()
	f.data = data
	enabled := f.effectiveEnabledLocked()
	f.mu.Unlock()
	f.engine.SetEnabled(enabled)
}

// RecordMatch reports a completed match; the save is debounced so rapid
// picks coalesce.
func (f *PlayFlow) RecordMatch(data *models.PlayProgress) {
	f.SetProgress(data)
	f.engine.TriggerSave("match_completed", false)
}

// ManualSave forces an immediate save.
func (f *PlayFlow) ManualSave() {
	f.engine.ManualSave()
}

// HandleCompletion marks the tournament finished. Saving stops, and after a
// grace period the draft is deleted exactly once. The delay lets an
// in-flight final save settle before its row is removed.
func (f *PlayFlow) HandleCompletion(ctx context.Context) {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return
	}
	f.completed = true
	f.cleanupTimer = time.AfterFunc(f.cleanupDelay, func() {
		f.cleanupOnce.Do(func() {
			f.manager.DeleteDraft(context.WithoutCancel(ctx))
		})
	})
	f.mu.Unlock()
	f.engine.SetEnabled(false)
}

// HandleUnload fires the best-effort final save on page unload; a completed
// tournament has nothing worth saving.
func (f *PlayFlow) HandleUnload() {
	f.mu.Lock()
	skip := f.completed || f.data == nil
	f.mu.Unlock()
	if skip {
		return
	}
	f.engine.TriggerSave("page_unload", true)
}

// Completed reports whether the tournament has finished.
func (f *PlayFlow) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Engine exposes pipeline status for the UI indicator.
func (f *PlayFlow) Engine() *autosave.Engine {
	return f.engine
}

// Manager exposes the draft lifecycle operations.
func (f *PlayFlow) Manager() *drafts.Manager {
	return f.manager
}

// Stop tears down timers without running the completion cleanup.
func (f *PlayFlow) Stop() {
	f.mu.Lock()
	if f.cleanupTimer != nil {
		f.cleanupTimer.Stop()
	}
	f.mu.Unlock()
	f.engine.Stop()
}

func (f *PlayFlow) effectiveEnabledLocked() bool {
	return f.enabled && !f.completed && f.data != nil && f.tournamentID != ""
}

func (f *PlayFlow) snapshot() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil, false
	}
	return f.data, true
}
