package autosave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/retry"
)

// saveRecorder captures transport calls made by the engine.
type saveRecorder struct {
	mu      sync.Mutex
	actions []string
	data    [][]byte
	err     error
	failFor int // fail this many leading calls, then succeed
}

func (r *saveRecorder) save(ctx context.Context, data []byte, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	r.data = append(r.data, append([]byte(nil), data...))
	if r.err != nil {
		return r.err
	}
	if r.failFor > 0 {
		r.failFor--
		return errors.New("transient transport failure")
	}
	return nil
}

func (r *saveRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

func authenticated() *auth.Session {
	return &auth.Session{UserID: "u1", AccessToken: "tok"}
}

func newTestEngine(rec *saveRecorder, opts Options) *Engine {
	if opts.Sessions == nil {
		opts.Sessions = authenticated
	}
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Linear(3, time.Millisecond)
	}
	opts.Enabled = true
	snapshot := func() (any, bool) {
		return map[string]string{"title": "animals"}, true
	}
	return NewEngine(snapshot, rec.save, opts)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

func TestEngine_CoalescesTriggersInOneWindow(t *testing.T) {
	rec := &saveRecorder{}
	engine := NewEngine(
		func() (any, bool) { return "snap", true },
		rec.save,
		Options{
			Enabled:  true,
			Debounce: 30 * time.Millisecond,
			Sessions: authenticated,
			Retry:    retry.Linear(3, time.Millisecond),
		},
	)
	defer engine.Stop()

	engine.TriggerSave("a", false)
	engine.TriggerSave("b", false)
	engine.TriggerSave("c", false)

	waitFor(t, time.Second, func() bool { return len(rec.calls()) == 1 })
	time.Sleep(50 * time.Millisecond)

	calls := rec.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 save, got %d", len(calls))
	}
	if calls[0] != "c" {
		t.Errorf("expected last action %q to win, got %q", "c", calls[0])
	}
}

func TestEngine_UnauthenticatedIsSilentNoop(t *testing.T) {
	rec := &saveRecorder{}
	engine := newTestEngine(rec, Options{
		Sessions: func() *auth.Session { return nil },
	})
	defer engine.Stop()

	for i := 0; i < 5; i++ {
		engine.TriggerSave("edit", false)
		engine.TriggerSave("edit", true)
	}
	time.Sleep(80 * time.Millisecond)

	if len(rec.calls()) != 0 {
		t.Errorf("expected zero transport calls, got %d", len(rec.calls()))
	}
	if engine.Status() != StatusIdle {
		t.Errorf("expected idle status, got %s", engine.Status())
	}
}

func TestEngine_LogoutMidFlowSilencesNextTrigger(t *testing.T) {
	rec := &saveRecorder{}
	var mu sync.Mutex
	session := authenticated()
	engine := newTestEngine(rec, Options{
		Sessions: func() *auth.Session {
			mu.Lock()
			defer mu.Unlock()
			return session
		},
	})
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	waitFor(t, time.Second, func() bool { return len(rec.calls()) == 1 })

	mu.Lock()
	session = nil
	mu.Unlock()

	engine.TriggerSave("edit", true)
	time.Sleep(40 * time.Millisecond)
	if len(rec.calls()) != 1 {
		t.Errorf("expected no save after logout, got %d calls", len(rec.calls()))
	}
}

func TestEngine_RetryExhaustion(t *testing.T) {
	rec := &saveRecorder{err: errors.New("boom")}
	var (
		mu       sync.Mutex
		attempts []int
		lastErr  error
	)
	engine := newTestEngine(rec, Options{
		Retry: retry.Linear(3, time.Millisecond),
		OnRetry: func(attempt int) {
			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		},
		OnSaveError: func(err error) {
			mu.Lock()
			lastErr = err
			mu.Unlock()
		},
	})
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	waitFor(t, time.Second, func() bool { return engine.Status() == StatusError })

	if got := len(rec.calls()); got != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 2 || attempts[len(attempts)-1] != 2 {
		t.Errorf("expected retry callbacks ending at attempt 2, got %v", attempts)
	}
	if lastErr == nil {
		t.Error("expected OnSaveError with final error")
	}
	if engine.RetryAttempt() != 2 {
		t.Errorf("retryAttempt = %d, want maxAttempts-1 = 2", engine.RetryAttempt())
	}
}

func TestEngine_RetryThenSaved(t *testing.T) {
	rec := &saveRecorder{failFor: 2}
	var succeeded bool
	var mu sync.Mutex
	engine := newTestEngine(rec, Options{
		Retry: retry.Linear(3, time.Millisecond),
		OnSaveSuccess: func() {
			mu.Lock()
			succeeded = true
			mu.Unlock()
		},
	})
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	waitFor(t, time.Second, func() bool { return engine.Status() == StatusSaved })

	mu.Lock()
	defer mu.Unlock()
	if !succeeded {
		t.Error("expected OnSaveSuccess")
	}
	if _, ok := engine.LastSaved(); !ok {
		t.Error("expected lastSaved to be set")
	}
}

func TestEngine_SizeGuardShortCircuits(t *testing.T) {
	rec := &saveRecorder{}
	var (
		mu      sync.Mutex
		lastErr error
	)
	huge := strings.Repeat("x", 2048)
	engine := NewEngine(
		func() (any, bool) { return huge, true },
		rec.save,
		Options{
			Enabled:     true,
			MaxDataSize: 1024,
			Sessions:    authenticated,
			Retry:       retry.Linear(3, time.Millisecond),
			OnSaveError: func(err error) {
				mu.Lock()
				lastErr = err
				mu.Unlock()
			},
		},
	)
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	waitFor(t, time.Second, func() bool { return engine.Status() == StatusError })

	if len(rec.calls()) != 0 {
		t.Errorf("oversized snapshot must never reach the save function, got %d calls", len(rec.calls()))
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(lastErr, ErrSnapshotTooLarge) {
		t.Errorf("expected ErrSnapshotTooLarge, got %v", lastErr)
	}
}

func TestEngine_DisabledIsNoop(t *testing.T) {
	rec := &saveRecorder{}
	engine := NewEngine(
		func() (any, bool) { return nil, false },
		rec.save,
		Options{Enabled: false, Sessions: authenticated},
	)
	defer engine.Stop()

	engine.TriggerSave("edit", false)
	engine.TriggerSave("edit", true)
	engine.ManualSave()
	time.Sleep(40 * time.Millisecond)

	if len(rec.calls()) != 0 {
		t.Errorf("disabled engine must not save, got %d calls", len(rec.calls()))
	}
}

func TestEngine_NoSnapshotIsNoop(t *testing.T) {
	rec := &saveRecorder{}
	engine := NewEngine(
		func() (any, bool) { return nil, false },
		rec.save,
		Options{Enabled: true, Sessions: authenticated},
	)
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	time.Sleep(40 * time.Millisecond)

	if len(rec.calls()) != 0 {
		t.Errorf("expected no save without data, got %d calls", len(rec.calls()))
	}
}

func TestEngine_ImmediateBypassesDebounce(t *testing.T) {
	rec := &saveRecorder{}
	engine := newTestEngine(rec, Options{Debounce: time.Hour})
	defer engine.Stop()

	engine.TriggerSave("slow_edit", false)
	engine.TriggerSave("image_uploaded", true)

	waitFor(t, time.Second, func() bool { return len(rec.calls()) == 1 })
	time.Sleep(40 * time.Millisecond)

	calls := rec.calls()
	if len(calls) != 1 || calls[0] != "image_uploaded" {
		t.Errorf("expected single immediate save, got %v", calls)
	}
}

func TestEngine_MidFlightTriggerCoalescesToFollowupSave(t *testing.T) {
	block := make(chan struct{})
	var mu sync.Mutex
	var actions []string
	var maxConcurrent, current int

	save := func(ctx context.Context, data []byte, action string) error {
		mu.Lock()
		current++
		if current > maxConcurrent {
			maxConcurrent = current
		}
		actions = append(actions, action)
		mu.Unlock()
		<-block
		mu.Lock()
		current--
		mu.Unlock()
		return nil
	}

	engine := NewEngine(
		func() (any, bool) { return "snap", true },
		save,
		Options{
			Enabled:  true,
			Sessions: authenticated,
			Retry:    retry.Linear(1, time.Millisecond),
		},
	)
	defer engine.Stop()

	engine.TriggerSave("first", true)
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(actions) == 1
	})

	// Lands mid-flight: must not start a second concurrent write.
	engine.TriggerSave("second", true)
	engine.TriggerSave("third", true)
	time.Sleep(20 * time.Millisecond)
	close(block)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(actions) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if maxConcurrent != 1 {
		t.Errorf("expected at most one in-flight save, saw %d", maxConcurrent)
	}
	if actions[1] != "third" {
		t.Errorf("expected newest mid-flight action to win, got %q", actions[1])
	}
}

func TestEngine_StatusReturnsToIdleAfterCooldown(t *testing.T) {
	rec := &saveRecorder{}
	engine := newTestEngine(rec, Options{IdleAfter: 20 * time.Millisecond})
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	waitFor(t, time.Second, func() bool { return engine.Status() == StatusSaved })
	waitFor(t, time.Second, func() bool { return engine.Status() == StatusIdle })
}

func TestEngine_AuthErrorFromTransportSuppressed(t *testing.T) {
	var calls int
	var mu sync.Mutex
	errorCb := false
	save := func(ctx context.Context, data []byte, action string) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return auth.ErrAuthRequired
	}
	engine := NewEngine(
		func() (any, bool) { return "snap", true },
		save,
		Options{
			Enabled:  true,
			Sessions: authenticated,
			Retry:    retry.Linear(3, time.Millisecond),
			OnSaveError: func(err error) {
				mu.Lock()
				errorCb = true
				mu.Unlock()
			},
		},
	)
	defer engine.Stop()

	engine.TriggerSave("edit", true)
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	})
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("auth errors must not be retried, got %d calls", calls)
	}
	if errorCb {
		t.Error("auth errors must not surface through OnSaveError")
	}
	if engine.Status() != StatusIdle {
		t.Errorf("expected silent return to idle, got %s", engine.Status())
	}
}

func TestEngine_SetEnabledCancelsPending(t *testing.T) {
	rec := &saveRecorder{}
	engine := newTestEngine(rec, Options{Debounce: 30 * time.Millisecond})
	defer engine.Stop()

	engine.TriggerSave("edit", false)
	engine.SetEnabled(false)
	time.Sleep(60 * time.Millisecond)

	if len(rec.calls()) != 0 {
		t.Errorf("expected pending save cancelled on disable, got %d calls", len(rec.calls()))
	}
}
