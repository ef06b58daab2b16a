package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from processors for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay dispatch.
type Observer interface {
	// OnActionStart is called before each dispatch attempt. attempt is 1-based.
	OnActionStart(ctx context.Context, action Executable, attempt int)

	// OnActionCompleted is called after each attempt, for both successes and
	// failures (err != nil).
	OnActionCompleted(ctx context.Context, action Executable, attempt int, err error, duration time.Duration)

	// OnActionRetry is called when a failed attempt will be retried after
	// delay.
	OnActionRetry(ctx context.Context, action Executable, attempt int, err error, delay time.Duration)

	// OnActionSucceeded is called once when an action finally succeeds.
	OnActionSucceeded(ctx context.Context, action Executable)

	// OnActionFailed is called once when the processor gives up on an action.
	OnActionFailed(ctx context.Context, action Executable, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnActionStart(ctx context.Context, action Executable, attempt int) {}
func (NoopObserver) OnActionCompleted(ctx context.Context, action Executable, attempt int, err error, d time.Duration) {
}
func (NoopObserver) OnActionRetry(ctx context.Context, action Executable, attempt int, err error, delay time.Duration) {
}
func (NoopObserver) OnActionSucceeded(ctx context.Context, action Executable)          {}
func (NoopObserver) OnActionFailed(ctx context.Context, action Executable, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnActionStart(ctx context.Context, action Executable, attempt int) {
	for _, o := range c.observers {
		o.OnActionStart(ctx, action, attempt)
	}
}

func (c *CompositeObserver) OnActionCompleted(ctx context.Context, action Executable, attempt int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActionCompleted(ctx, action, attempt, err, d)
	}
}

func (c *CompositeObserver) OnActionRetry(ctx context.Context, action Executable, attempt int, err error, delay time.Duration) {
	for _, o := range c.observers {
		o.OnActionRetry(ctx, action, attempt, err, delay)
	}
}

func (c *CompositeObserver) OnActionSucceeded(ctx context.Context, action Executable) {
	for _, o := range c.observers {
		o.OnActionSucceeded(ctx, action)
	}
}

func (c *CompositeObserver) OnActionFailed(ctx context.Context, action Executable, err error) {
	for _, o := range c.observers {
		o.OnActionFailed(ctx, action, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs action lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnActionStart(ctx context.Context, action Executable, attempt int) {
	o.Logger.DebugContext(ctx, "action_start",
		slog.String("action", action.Name()),
		slog.String("action_id", action.ID()),
		slog.Int("attempt", attempt),
	)
}

func (o *LoggingObserver) OnActionCompleted(ctx context.Context, action Executable, attempt int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "action_completed",
		slog.String("action", action.Name()),
		slog.String("action_id", action.ID()),
		slog.Int("attempt", attempt),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnActionRetry(ctx context.Context, action Executable, attempt int, err error, delay time.Duration) {
	o.Logger.InfoContext(ctx, "action_retry",
		slog.String("action", action.Name()),
		slog.String("action_id", action.ID()),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnActionSucceeded(ctx context.Context, action Executable) {
	o.Logger.InfoContext(ctx, "action_succeeded",
		slog.String("action", action.Name()),
		slog.String("action_id", action.ID()),
	)
}

func (o *LoggingObserver) OnActionFailed(ctx context.Context, action Executable, err error) {
	o.Logger.ErrorContext(ctx, "action_failed",
		slog.String("action", action.Name()),
		slog.String("action_id", action.ID()),
		slog.String("kind", KindOf(err).String()),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate attempt durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	attempts      atomic.Int64
	succeeded     atomic.Int64
	failed        atomic.Int64
	retries       atomic.Int64
	okAttempts    atomic.Int64
	totalDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Attempts  int64
	Succeeded int64
	Failed    int64
	Retries   int64

	AvgDuration time.Duration
}

func (m *BasicMetrics) OnActionStart(ctx context.Context, action Executable, attempt int) {
	m.attempts.Add(1)
}

func (m *BasicMetrics) OnActionCompleted(ctx context.Context, action Executable, attempt int, err error, d time.Duration) {
	// Only count successful attempts for average duration.
	if err == nil {
		m.okAttempts.Add(1)
		m.totalDuration.Add(d.Nanoseconds())
	}
}

func (m *BasicMetrics) OnActionRetry(ctx context.Context, action Executable, attempt int, err error, delay time.Duration) {
	m.retries.Add(1)
}

func (m *BasicMetrics) OnActionSucceeded(ctx context.Context, action Executable) {
	m.succeeded.Add(1)
}

func (m *BasicMetrics) OnActionFailed(ctx context.Context, action Executable, err error) {
	m.failed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	ok := m.okAttempts.Load()
	totalNs := m.totalDuration.Load()

	var avg time.Duration
	if ok > 0 {
		avg = time.Duration(totalNs / ok)
	}

	return BasicMetricsSnapshot{
		Attempts:    m.attempts.Load(),
		Succeeded:   m.succeeded.Load(),
		Failed:      m.failed.Load(),
		Retries:     m.retries.Load(),
		AvgDuration: avg,
	}
}
