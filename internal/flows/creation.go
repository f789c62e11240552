// Package flows wires the autosave engine and draft lifecycle manager into
// the two feature flows: the tournament creation wizard and bracket play.
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

// creationImmediateActions lists the high-value creation actions that skip
// the debounce delay.
var creationImmediateActions = map[string]bool{
	"image_uploaded": true,
	"manual_save":    true,
}

// CreationOptions configures the creation-wizard flow.
type CreationOptions struct {
	// Enabled is the feature flag; the effective pipeline gate is the
	// conjunction of this flag, an authenticated session, and present data.
	Enabled bool

	Transport drafts.Transport
	Sessions  func() *auth.Session

	// Debounce defaults to 500ms.
	Debounce time.Duration
	// MaxDataSize defaults to 2 MiB; creation drafts carry media references.
	MaxDataSize int
	Retry       retry.Config

	OnSaveSuccess func()
	OnSaveError   func(error)

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// CreationFlow autosaves the in-progress tournament definition and offers
// the resume-draft path for the creation wizard.
type CreationFlow struct {
	engine  *autosave.Engine
	manager *drafts.Manager

	mu      sync.Mutex
	enabled bool
	data    *models.TournamentDraft
}

// NewCreationFlow builds the creation adapter. The engine starts disabled
// until data arrives via SetData.
func NewCreationFlow(opts CreationOptions) *CreationFlow {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.MaxDataSize <= 0 {
		opts.MaxDataSize = 2 * 1024 * 1024
	}

	f := &CreationFlow{enabled: opts.Enabled}

	save := func(ctx context.Context, data []byte, action string) error {
		return opts.Transport.Save(ctx, opts.Sessions(), models.SaveRequest{
			Type:      models.SessionCreation,
			Data:      data,
			Action:    action,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	f.engine = autosave.NewEngine(f.snapshot, save, autosave.Options{
		SessionType:   models.SessionCreation,
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

	f.manager = drafts.NewManager(models.SessionCreation, "", opts.Transport, opts.Sessions, drafts.ManagerOptions{
		AutoCheck: true,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})

	return f
}

// Start runs the mount-time draft auto check.
func (f *CreationFlow) Start(ctx context.Context) {
	f.manager.Start(ctx)
}

// SetData replaces the live wizard state. Nil data disables the pipeline;
// enabling requires the feature flag, data, and (checked per save) auth.
func (f *CreationFlow) SetData(data *models.TournamentDraft) {
	f.mu.Lock()
	f.data = data
	enabled := f.enabled && data != nil
	f.mu.Unlock()
	f.engine.SetEnabled(enabled)
}

// RecordChange reports a user edit. High-value actions (image uploads,
// manual saves) fire immediately; everything else is debounced.
func (f *CreationFlow) RecordChange(action string) {
	f.engine.TriggerSave(action, creationImmediateActions[action])
}

// ManualSave forces an immediate save.
func (f *CreationFlow) ManualSave() {
	f.engine.ManualSave()
}

// HandlePublish runs after a successful publish: the draft is obsolete, so
// delete it best-effort and stop saving.
func (f *CreationFlow) HandlePublish(ctx context.Context) {
	f.engine.SetEnabled(false)
	// Best-effort; a failed delete leaves a stale draft for the expiry
	// sweep to collect.
	f.manager.DeleteDraft(ctx)
}

// HandleUnload fires the best-effort final save on page unload. There is no
// completion guarantee.
func (f *CreationFlow) HandleUnload() {
	f.mu.Lock()
	hasData := f.data != nil
	f.mu.Unlock()
	if !hasData {
		return
	}
	f.engine.TriggerSave("page_unload", true)
}

// Engine exposes pipeline status for the UI indicator.
func (f *CreationFlow) Engine() *autosave.Engine {
	return f.engine
}

// Manager exposes the draft lifecycle operations.
func (f *CreationFlow) Manager() *drafts.Manager {
	return f.manager
}

// Stop tears down timers.
func (f *CreationFlow) Stop() {
	f.engine.Stop()
}

func (f *CreationFlow) snapshot() (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil, false
	}
	return f.data, true
}
