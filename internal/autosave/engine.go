// Package autosave implements the debounced, coalesced, status-tracked save
// pipeline that periodically persists in-progress user work.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/observability"
	"github.com/bracketlab/autodraft/internal/retry"
	"github.com/bracketlab/autodraft/pkg/models"
)

// ErrSnapshotTooLarge indicates a serialized snapshot exceeded the
// configured size ceiling. The save is rejected before any transport call.
var ErrSnapshotTooLarge = errors.New("snapshot exceeds maximum size")

const (
	// DefaultDebounce is the delay between a trigger and the save firing.
	DefaultDebounce = 500 * time.Millisecond
	// DefaultMaxDataSize is the serialized snapshot ceiling in bytes.
	DefaultMaxDataSize = 512 * 1024
	// DefaultIdleAfter is the cool-down before saved/error reverts to idle.
	DefaultIdleAfter = 2 * time.Second
)

// SnapshotFunc returns the live domain state to persist. The second return
// is false when no data is present, which makes every trigger a no-op.
type SnapshotFunc func() (any, bool)

// SaveFunc persists one serialized snapshot. It is invoked once per retry
// attempt; each call must be a complete, independent write.
type SaveFunc func(ctx context.Context, data []byte, action string) error

// SessionProvider yields the current session. It is consulted fresh on
// every trigger and every retry attempt so a logout mid-flow silences the
// pipeline immediately.
type SessionProvider func() *auth.Session

// Options configures an Engine.
type Options struct {
	// SessionType labels metrics and logs for this engine instance.
	SessionType models.SessionType

	// Debounce is the quiet period before a non-immediate save fires.
	Debounce time.Duration

	// Enabled gates the whole pipeline; a disabled engine ignores triggers.
	Enabled bool

	// MaxDataSize is the serialized snapshot ceiling in bytes.
	MaxDataSize int

	// IdleAfter is the cool-down before saved/error reverts to idle.
	IdleAfter time.Duration

	// Retry is the transport retry policy. OnRetry is overwritten by the
	// engine to drive its status machine.
	Retry retry.Config

	// Sessions supplies the current session. A nil provider means
	// unauthenticated.
	Sessions SessionProvider

	// OnSaveSuccess fires after a save lands.
	OnSaveSuccess func()

	// OnSaveError fires when a save fails for any reason other than a
	// missing session.
	OnSaveError func(err error)

	// OnRetry fires with the zero-based retry counter before each
	// re-attempt.
	OnRetry func(attempt int)

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Engine binds a live snapshot and a save function into a debounced,
// coalesced pipeline. At most one transport call is in flight at any time;
// a trigger that lands mid-flight is remembered and replayed with the then-
// current snapshot once the running save completes.
type Engine struct {
	snapshot SnapshotFunc
	save     SaveFunc
	opts     Options

	mu           sync.Mutex
	status       SaveStatus
	lastSaved    time.Time
	retryAttempt int

	pending       *time.Timer
	pendingAction string
	idleTimer     *time.Timer
	inFlight      bool
	saveAgain     bool
	againAction   string
	stopped       bool
}

// NewEngine constructs an engine. Zero option fields fall back to package
// defaults; a nil logger logs to stderr as JSON.
func NewEngine(snapshot SnapshotFunc, save SaveFunc, opts Options) *Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxDataSize <= 0 {
		opts.MaxDataSize = DefaultMaxDataSize
	}
	if opts.IdleAfter <= 0 {
		opts.IdleAfter = DefaultIdleAfter
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.LogConfig{})
	}

	return &Engine{
		snapshot: snapshot,
		save:     save,
		opts:     opts,
		status:   StatusIdle,
	}
}

// TriggerSave requests a save of the current snapshot. Non-immediate
// triggers are debounced: only the most recently armed timer survives, so a
// burst of triggers within one window produces exactly one transport call
// carrying the last action label. Immediate triggers cancel any pending
// timer and run the save path now. TriggerSave never fails; every outcome
// resolves into the status machine and the optional callbacks.
func (e *Engine) TriggerSave(action string, immediate bool) {
	e.mu.Lock()
	if e.stopped || !e.opts.Enabled || e.snapshot == nil {
		e.mu.Unlock()
		return
	}
	if _, ok := e.snapshot(); !ok {
		e.mu.Unlock()
		return
	}
	if !auth.IsAuthenticated(e.currentSession()) {
		e.countLocked("skipped_auth")
		e.mu.Unlock()
		return
	}

	if immediate {
		e.cancelPendingLocked()
		if e.inFlight {
			e.saveAgain = true
			e.againAction = action
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
		go e.performSave(action)
		return
	}

	e.pendingAction = action
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = time.AfterFunc(e.opts.Debounce, func() {
		e.mu.Lock()
		e.pending = nil
		fired := e.pendingAction
		e.mu.Unlock()
		e.performSave(fired)
	})
	e.mu.Unlock()
}

// ManualSave is an immediate TriggerSave with the manual action label.
func (e *Engine) ManualSave() {
	e.TriggerSave("manual_save", true)
}

// Status returns the current pipeline status.
func (e *Engine) Status() SaveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSaved returns the time of the last successful save, and false when no
// save has succeeded yet.
func (e *Engine) LastSaved() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSaved, !e.lastSaved.IsZero()
}

// RetryAttempt returns the zero-based retry counter of the current or most
// recent save.
func (e *Engine) RetryAttempt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retryAttempt
}

// Enabled reports whether the pipeline accepts triggers.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Enabled
}

// SetEnabled flips the pipeline gate. Disabling cancels any pending
// debounce timer; an in-flight save is left to finish.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Enabled = enabled
	if !enabled {
		e.cancelPendingLocked()
		e.saveAgain = false
	}
}

// Stop cancels all timers and rejects further triggers.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	e.cancelPendingLocked()
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
	e.saveAgain = false
}

// performSave executes the save path: size guard, retry-wrapped transport
// call, status bookkeeping. Runs on its own goroutine.
func (e *Engine) performSave(action string) {
	ctx := observability.AddSessionType(context.Background(), string(e.opts.SessionType))

	e.mu.Lock()
	if e.stopped || !e.opts.Enabled {
		e.mu.Unlock()
		return
	}
	if e.inFlight {
		// Never two concurrent writes for one key; remember the newest
		// request and replay it when the running save completes.
		e.saveAgain = true
		e.againAction = action
		e.mu.Unlock()
		return
	}
	if !auth.IsAuthenticated(e.currentSession()) {
		e.countLocked("skipped_auth")
		e.mu.Unlock()
		return
	}
	value, ok := e.snapshot()
	if !ok {
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	e.cancelIdleLocked()
	e.setStatusLocked(StatusSaving)
	e.retryAttempt = 0
	e.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		e.finishSave(ctx, action, retry.Result{Attempts: 0, Err: fmt.Errorf("serialize snapshot: %w", err)}, "error")
		return
	}
	if len(data) > e.opts.MaxDataSize {
		sizeErr := fmt.Errorf("%w: %d bytes, limit %d", ErrSnapshotTooLarge, len(data), e.opts.MaxDataSize)
		e.finishSave(ctx, action, retry.Result{Attempts: 0, Err: sizeErr}, "skipped_size")
		return
	}

	cfg := e.opts.Retry
	cfg.OnRetry = func(attempt int, attemptErr error) {
		e.mu.Lock()
		e.setStatusLocked(StatusRetrying)
		e.retryAttempt = attempt - 1
		e.mu.Unlock()
		e.opts.Logger.Warn(ctx, "draft save retrying",
			"action", action, "attempt", attempt, "error", attemptErr)
		if e.opts.OnRetry != nil {
			e.opts.OnRetry(attempt - 1)
		}
	}

	result := retry.Do(ctx, cfg, func() error {
		session := e.opts.Sessions()
		if !auth.IsAuthenticated(session) {
			return retry.Permanent(auth.ErrAuthRequired)
		}
		saveErr := e.save(ctx, data, action)
		if errors.Is(saveErr, auth.ErrAuthRequired) {
			return retry.Permanent(saveErr)
		}
		return saveErr
	})

	if e.opts.Metrics != nil {
		e.opts.Metrics.SaveAttempts.
			WithLabelValues(string(e.opts.SessionType)).
			Observe(float64(result.Attempts))
	}

	switch {
	case result.Success():
		e.finishSave(ctx, action, result, "saved")
	case errors.Is(result.Err, auth.ErrAuthRequired):
		e.finishSave(ctx, action, result, "skipped_auth")
	default:
		e.finishSave(ctx, action, result, "error")
	}
}

// finishSave settles status and callbacks for one completed save path, then
// replays a coalesced mid-flight trigger if one arrived.
func (e *Engine) finishSave(ctx context.Context, action string, result retry.Result, outcome string) {
	var (
		onSuccess func()
		onError   func(error)
	)

	e.mu.Lock()
	switch outcome {
	case "saved":
		e.setStatusLocked(StatusSaved)
		e.lastSaved = time.Now()
		e.scheduleIdleLocked()
		onSuccess = e.opts.OnSaveSuccess
	case "skipped_auth":
		// Unauthenticated is an expected, silent no-op: no error surface,
		// straight back to idle.
		e.setStatusLocked(StatusIdle)
	default:
		e.setStatusLocked(StatusError)
		e.scheduleIdleLocked()
		onError = e.opts.OnSaveError
	}
	e.countLocked(outcome)
	e.inFlight = false
	again := e.saveAgain
	againAction := e.againAction
	e.saveAgain = false
	e.mu.Unlock()

	switch outcome {
	case "saved":
		e.opts.Logger.Debug(ctx, "draft saved",
			"action", action, "attempts", result.Attempts)
		if onSuccess != nil {
			onSuccess()
		}
	case "skipped_auth":
		e.opts.Logger.Debug(ctx, "draft save skipped, not authenticated", "action", action)
	default:
		e.opts.Logger.Warn(ctx, "draft save failed",
			"action", action, "attempts", result.Attempts, "error", result.Err)
		if onError != nil {
			onError(result.Err)
		}
	}

	if again {
		go e.performSave(againAction)
	}
}

// setStatusLocked applies a status change, refusing illegal transitions.
func (e *Engine) setStatusLocked(to SaveStatus) {
	if !ValidTransition(e.status, to) {
		e.opts.Logger.Warn(context.Background(), "illegal status transition refused",
			"from", string(e.status), "to", string(to))
		return
	}
	e.status = to
}

// scheduleIdleLocked arms the cool-down that returns saved/error to idle.
func (e *Engine) scheduleIdleLocked() {
	e.cancelIdleLocked()
	e.idleTimer = time.AfterFunc(e.opts.IdleAfter, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.status == StatusSaved || e.status == StatusError {
			e.setStatusLocked(StatusIdle)
		}
	})
}

func (e *Engine) cancelPendingLocked() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
}

func (e *Engine) cancelIdleLocked() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
}

func (e *Engine) currentSession() *auth.Session {
	if e.opts.Sessions == nil {
		return nil
	}
	return e.opts.Sessions()
}

func (e *Engine) countLocked(result string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.SaveCounter.
			WithLabelValues(string(e.opts.SessionType), result).
			Inc()
	}
}
