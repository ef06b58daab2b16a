package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/config"
	"github.com/petrijr/echo/pkg/log"
)

var (
	ErrNoWorker  = errors.New("processor has no worker")
	ErrNoQueue   = errors.New("processor has no queue")
	ErrNoContext = errors.New("processor has no execution context")
)

// Default idle backoff bounds, used when neither Config nor the execution
// context configuration set them.
const (
	DefaultIdleBackoff    = 10 * time.Millisecond
	DefaultMaxIdleBackoff = 250 * time.Millisecond
)

// State is the run-loop state of a Processor.
type State int32

const (
	StateIdle State = iota
	StateClaiming
	StateDispatching
	StateRetrying
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClaiming:
		return "claiming"
	case StateDispatching:
		return "dispatching"
	case StateRetrying:
		return "retrying"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config controls processor behavior. Zero values fall back to the execution
// context configuration and then to package defaults.
type Config struct {
	// Name identifies the processor in logs.
	Name string

	// Retry overrides the policy read from configuration.
	Retry *api.RetryPolicy

	// IdleBackoff is the first wait after an empty claim. It doubles on each
	// consecutive empty claim up to MaxIdleBackoff.
	IdleBackoff    time.Duration
	MaxIdleBackoff time.Duration

	// Shutdown lets several processors share one shutdown signal.
	Shutdown *api.Signal[bool]

	// AbandonOnShutdown stops retrying an action once shutdown has been
	// requested; the action is reported with a Cancellation error.
	AbandonOnShutdown bool

	Observer api.Observer
	Logger   *slog.Logger
}

// Processor claims actions from a shared queue and hands them to a Worker,
// retrying failures with exponential backoff. Any number of processors may
// share one queue and one execution context.
type Processor struct {
	name     string
	worker   api.Worker
	queue    *api.WorkQueue
	ec       *api.ExecutionContext
	shutdown *api.Signal[bool]
	stop     chan struct{}
	stopOnce sync.Once

	policy   api.RetryPolicy
	idle     time.Duration
	maxIdle  time.Duration
	abandon  bool
	observer api.Observer
	logger   *slog.Logger

	state atomic.Int32
}

// New creates a Processor with settings read from ec's configuration.
func New(w api.Worker, q *api.WorkQueue, ec *api.ExecutionContext) *Processor {
	return NewWithConfig(w, q, ec, Config{})
}

// NewWithConfig creates a Processor with explicit settings.
func NewWithConfig(w api.Worker, q *api.WorkQueue, ec *api.ExecutionContext, cfg Config) *Processor {
	var reader config.Reader = config.Empty()
	var logger *slog.Logger
	if ec != nil {
		reader = ec.Config()
		logger = ec.Logger()
	}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}

	policy := api.PolicyFromConfig(reader)
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	idle := cfg.IdleBackoff
	if idle <= 0 {
		idle = config.Duration(reader, config.KeyIdleBackoff, DefaultIdleBackoff)
	}
	maxIdle := cfg.MaxIdleBackoff
	if maxIdle <= 0 {
		maxIdle = config.Duration(reader, config.KeyMaxIdleBackoff, DefaultMaxIdleBackoff)
	}
	if maxIdle < idle {
		maxIdle = idle
	}

	shutdown := cfg.Shutdown
	if shutdown == nil {
		shutdown = api.NewSignal(false)
	}
	observer := cfg.Observer
	if observer == nil {
		observer = api.NoopObserver{}
	}

	return &Processor{
		name:     cfg.Name,
		worker:   w,
		queue:    q,
		ec:       ec,
		shutdown: shutdown,
		stop:     make(chan struct{}),
		policy:   policy,
		idle:     idle,
		maxIdle:  maxIdle,
		abandon:  cfg.AbandonOnShutdown,
		observer: observer,
		logger:   logger.With(slog.String("processor", cfg.Name)),
	}
}

// State returns the current run-loop state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

func (p *Processor) setState(s State) {
	p.state.Store(int32(s))
}

// Policy returns the effective retry policy.
func (p *Processor) Policy() api.RetryPolicy {
	return p.policy
}

// Shutdown requests a cooperative stop. An in-flight dispatch is allowed to
// finish; the loop exits at its next claim boundary.
func (p *Processor) Shutdown() {
	p.shutdown.Set(true)
	p.stopOnce.Do(func() { close(p.stop) })
}

// ShuttingDown reports whether shutdown has been requested.
func (p *Processor) ShuttingDown() bool {
	return p.shutdown.Get()
}

// Run claims and dispatches actions until Shutdown is called or ctx is done.
// A failing action is reported and the loop continues. Run returns nil after
// Shutdown and ctx.Err() on cancellation.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.validate(); err != nil {
		return err
	}
	defer p.setState(StateStopped)

	wait := p.idle
	for {
		if p.shutdown.Get() {
			p.setState(StateShuttingDown)
			p.logger.DebugContext(ctx, "processor_stopping")
			return nil
		}
		if err := ctx.Err(); err != nil {
			p.setState(StateShuttingDown)
			return err
		}

		processed, _ := p.ProcessOne(ctx)
		if processed {
			wait = p.idle
			continue
		}

		p.setState(StateIdle)
		p.waitForWork(ctx, wait)
		wait *= 2
		if wait > p.maxIdle {
			wait = p.maxIdle
		}
	}
}

// ProcessOne claims a single action and dispatches it with retry.
// Returns (processed, error):
//   - processed == false: the queue was empty or shutdown was requested.
//   - processed == true: an action was dispatched; err is its final outcome.
func (p *Processor) ProcessOne(ctx context.Context) (bool, error) {
	if err := p.validate(); err != nil {
		return false, err
	}
	if p.shutdown.Get() {
		return false, nil
	}

	p.setState(StateClaiming)
	action, ok := p.queue.Claim()
	if !ok {
		p.setState(StateIdle)
		return false, nil
	}

	err := p.ExecuteWithRetry(ctx, action)
	if err != nil {
		p.logger.ErrorContext(ctx, "action_failed",
			log.Action(action.Name()),
			log.ActionID(action.ID()),
			log.Queue(p.queue.Name()),
			log.Kind(api.KindOf(err)),
			log.Error(err),
		)
	}
	p.setState(StateIdle)
	return true, err
}

// ExecuteWithRetry hands action to the worker, retrying retryable failures
// up to the policy's attempt limit with non-decreasing backoff. License and
// Cancellation failures are returned immediately.
func (p *Processor) ExecuteWithRetry(ctx context.Context, action api.Executable) error {
	attempts := p.policy.Attempts()
	backoff := p.policy.Backoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = api.Cancelled(action.Name(), err)
			break
		}
		if attempt > 1 && p.abandon && p.shutdown.Get() {
			lastErr = api.Cancelled(action.Name(), lastErr)
			break
		}

		p.setState(StateDispatching)
		p.observer.OnActionStart(ctx, action, attempt)
		start := time.Now()
		err := p.receive(ctx, action)
		p.observer.OnActionCompleted(ctx, action, attempt, err, time.Since(start))

		if err == nil {
			p.observer.OnActionSucceeded(ctx, action)
			return nil
		}
		lastErr = err
		if !api.Retryable(err) || attempt == attempts {
			break
		}

		delay := backoff.Next()
		p.setState(StateRetrying)
		p.observer.OnActionRetry(ctx, action, attempt, err, delay)
		p.logger.DebugContext(ctx, "action_retry",
			log.Action(action.Name()),
			log.Attempt(attempt),
			slog.Duration("delay", delay),
			log.Error(err),
		)
		if err := p.sleep(ctx, action, delay); err != nil {
			lastErr = err
			break
		}
	}

	p.observer.OnActionFailed(ctx, action, lastErr)
	return lastErr
}

// receive runs one attempt. A panic in the worker or handler becomes an
// Execution error for that attempt.
func (p *Processor) receive(ctx context.Context, action api.Executable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "action_panicked",
				log.Action(action.Name()),
				log.ActionID(action.ID()),
				slog.Any("panic", r),
			)
			err = api.NewError(api.KindExecution, action.Name(), "handler panicked", fmt.Errorf("%v", r))
		}
	}()
	return p.worker.Receive(ctx, action, p.ec)
}

func (p *Processor) sleep(ctx context.Context, action api.Executable, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	var stop <-chan struct{}
	if p.abandon {
		stop = p.stop
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return api.Cancelled(action.Name(), ctx.Err())
	case <-stop:
		return api.Cancelled(action.Name(), errors.New("processor shutting down"))
	case <-timer.C:
		return nil
	}
}

// waitForWork parks until the queue signals new work, the backoff elapses,
// shutdown is requested or ctx is done.
func (p *Processor) waitForWork(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-p.stop:
	case <-p.queue.Ready():
	case <-timer.C:
	}
}

func (p *Processor) validate() error {
	switch {
	case p.worker == nil:
		return ErrNoWorker
	case p.queue == nil:
		return ErrNoQueue
	case p.ec == nil:
		return ErrNoContext
	}
	return nil
}
