package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

//
// Helpers
//

// testObserver is a simple Observer implementation used to verify fan-out behavior.
type testObserver struct {
	mu sync.Mutex

	starts    int
	completes int
	retries   int
	successes int
	fails     int

	lastAction   Executable
	lastAttempt  int
	lastErr      error
	lastDuration time.Duration
	lastDelay    time.Duration
}

func (o *testObserver) OnActionStart(ctx context.Context, action Executable, attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	o.lastAction = action
	o.lastAttempt = attempt
}

func (o *testObserver) OnActionCompleted(ctx context.Context, action Executable, attempt int, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completes++
	o.lastErr = err
	o.lastDuration = d
}

func (o *testObserver) OnActionRetry(ctx context.Context, action Executable, attempt int, err error, delay time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
	o.lastDelay = delay
}

func (o *testObserver) OnActionSucceeded(ctx context.Context, action Executable) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes++
}

func (o *testObserver) OnActionFailed(ctx context.Context, action Executable, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails++
	o.lastErr = err
}

// recordingHandler is a minimal slog.Handler that just records log records.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Copy to avoid reuse issues.
	cpy := slog.Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		cpy.AddAttrs(a)
		return true
	})
	h.records = append(h.records, cpy)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *recordingHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.Message)
	}
	return out
}

func attrsToMap(r slog.Record) map[string]any {
	m := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func newTestAction() *Action[string] {
	return New("observe", "payload", NewRegistry()).WithID("act-123")
}

//
// NoopObserver
//

func TestNoopObserver_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	a := newTestAction()
	var o Observer = NoopObserver{}

	o.OnActionStart(ctx, a, 1)
	o.OnActionCompleted(ctx, a, 1, nil, time.Second)
	o.OnActionRetry(ctx, a, 1, errors.New("boom"), time.Second)
	o.OnActionSucceeded(ctx, a)
	o.OnActionFailed(ctx, a, errors.New("boom"))
}

//
// CompositeObserver
//

func TestNewCompositeObserver_EmptyReturnsNoop(t *testing.T) {
	o := NewCompositeObserver()
	if _, ok := o.(NoopObserver); !ok {
		t.Fatalf("expected NewCompositeObserver() to return NoopObserver, got %T", o)
	}
}

func TestNewCompositeObserver_SingleReturnsThatObserver(t *testing.T) {
	single := &testObserver{}
	o := NewCompositeObserver(single, nil) // include a nil to ensure it is filtered

	if got, ok := o.(*testObserver); !ok || got != single {
		t.Fatalf("expected the single non-nil observer to be returned, got %T (%p)", o, o)
	}
}

func TestCompositeObserver_ForwardsAllEvents(t *testing.T) {
	ctx := context.Background()
	a := newTestAction()

	o1 := &testObserver{}
	o2 := &testObserver{}
	co, ok := NewCompositeObserver(o1, o2).(*CompositeObserver)
	if !ok {
		t.Fatalf("expected *CompositeObserver")
	}

	err := errors.New("attempt failed")
	co.OnActionStart(ctx, a, 2)
	co.OnActionCompleted(ctx, a, 2, err, 2*time.Second)
	co.OnActionRetry(ctx, a, 2, err, 3*time.Second)
	co.OnActionSucceeded(ctx, a)
	co.OnActionFailed(ctx, a, err)

	for i, o := range []*testObserver{o1, o2} {
		if o.starts != 1 || o.completes != 1 || o.retries != 1 || o.successes != 1 || o.fails != 1 {
			t.Fatalf("observer %d did not receive all calls: %+v", i+1, o)
		}
		if o.lastAction != a || o.lastAttempt != 2 {
			t.Fatalf("observer %d start mismatch", i+1)
		}
		if o.lastErr != err || o.lastDuration != 2*time.Second || o.lastDelay != 3*time.Second {
			t.Fatalf("observer %d payload mismatch: %+v", i+1, o)
		}
	}
}

//
// LoggingObserver
//

func TestNewLoggingObserver_NilLoggerUsesDefault(t *testing.T) {
	o := NewLoggingObserver(nil)
	lo, ok := o.(*LoggingObserver)
	if !ok {
		t.Fatalf("expected *LoggingObserver, got %T", o)
	}
	if lo.Logger == nil {
		t.Fatalf("expected non-nil Logger when created with nil")
	}
}

func TestLoggingObserver_OnActionFailed_EmitsErrorLog(t *testing.T) {
	ctx := context.Background()
	a := newTestAction()

	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnActionFailed(ctx, a, licenseError("observe"))

	if len(h.records) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(h.records))
	}
	rec := h.records[0]
	if rec.Level != slog.LevelError {
		t.Fatalf("expected LevelError, got %v", rec.Level)
	}
	if rec.Message != "action_failed" {
		t.Fatalf("expected message action_failed, got %q", rec.Message)
	}
	attrs := attrsToMap(rec)
	if attrs["action"] != "observe" || attrs["action_id"] != "act-123" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
	if attrs["kind"] != "license" {
		t.Fatalf("expected kind=license, got %v", attrs["kind"])
	}
}

func TestLoggingObserver_OnActionCompleted_LevelDependsOnError(t *testing.T) {
	ctx := context.Background()
	a := newTestAction()

	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnActionCompleted(ctx, a, 1, nil, time.Second)
	o.OnActionCompleted(ctx, a, 2, errors.New("boom"), 2*time.Second)

	if len(h.records) != 2 {
		t.Fatalf("expected 2 log records, got %d", len(h.records))
	}
	if h.records[0].Level != slog.LevelDebug {
		t.Fatalf("expected success record LevelDebug, got %v", h.records[0].Level)
	}
	if h.records[1].Level != slog.LevelWarn {
		t.Fatalf("expected failure record LevelWarn, got %v", h.records[1].Level)
	}
	attrs := attrsToMap(h.records[1])
	if attrs["attempt"] != int64(2) {
		t.Fatalf("expected attempt=2, got %v", attrs["attempt"])
	}
	if attrs["error"] == nil {
		t.Fatalf("expected error attribute on failure record, got nil")
	}
}

//
// BasicMetrics
//

func TestBasicMetrics_CountersAndSnapshot(t *testing.T) {
	var m BasicMetrics
	ctx := context.Background()
	a := newTestAction()

	m.OnActionStart(ctx, a, 1)
	m.OnActionCompleted(ctx, a, 1, errors.New("fail"), 10*time.Second)
	m.OnActionRetry(ctx, a, 1, errors.New("fail"), time.Millisecond)
	m.OnActionStart(ctx, a, 2)
	m.OnActionCompleted(ctx, a, 2, nil, 1*time.Second)
	m.OnActionSucceeded(ctx, a)

	m.OnActionStart(ctx, a, 1)
	m.OnActionCompleted(ctx, a, 1, nil, 3*time.Second)
	m.OnActionFailed(ctx, a, errors.New("fail"))

	snap := m.Snapshot()
	if snap.Attempts != 3 {
		t.Fatalf("Attempts=%d, want 3", snap.Attempts)
	}
	if snap.Succeeded != 1 || snap.Failed != 1 || snap.Retries != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	// (1s + 3s) / 2, the failed attempt is excluded.
	if snap.AvgDuration != 2*time.Second {
		t.Fatalf("AvgDuration=%v, want 2s", snap.AvgDuration)
	}
}

func TestBasicMetrics_SnapshotZeroHasZeroAverage(t *testing.T) {
	var m BasicMetrics
	snap := m.Snapshot()
	if snap.Attempts != 0 || snap.AvgDuration != 0 {
		t.Fatalf("unexpected zero snapshot: %+v", snap)
	}
}
