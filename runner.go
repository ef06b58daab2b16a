package echo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/worker"
)

var ErrRunnerStarted = errors.New("echo: LocalRunner already started")

// LocalRunner bundles a shared work queue, an execution context and a pool
// of processors for single-process use.
//
// Typical usage:
//
//	runner := echo.NewLocalRunner(nil)
//	_ = runner.Start(ctx, 4)
//	runner.Assign(echo.NewAction("Greet", "world", reg))
//	...
//	_ = runner.Stop()
type LocalRunner struct {
	// Queue is the shared queue every processor claims from.
	Queue *api.WorkQueue

	// Context is shared by every action the runner executes.
	Context *api.ExecutionContext

	// Worker receives claimed actions. Defaults to api.DirectWorker.
	Worker api.Worker

	config worker.Config

	mu         sync.Mutex
	group      *errgroup.Group
	cancel     context.CancelFunc
	processors []*worker.Processor
	shutdown   *api.Signal[bool]
}

// RunnerOption configures a LocalRunner.
type RunnerOption func(*LocalRunner)

// WithWorker replaces the default DirectWorker.
func WithWorker(w api.Worker) RunnerOption {
	return func(r *LocalRunner) { r.Worker = w }
}

// WithQueue replaces the runner's queue.
func WithQueue(q *api.WorkQueue) RunnerOption {
	return func(r *LocalRunner) { r.Queue = q }
}

// WithRetryPolicy overrides the policy read from configuration.
func WithRetryPolicy(p RetryPolicy) RunnerOption {
	return func(r *LocalRunner) { r.config.Retry = &p }
}

// WithObserver attaches an observer to every processor.
func WithObserver(o Observer) RunnerOption {
	return func(r *LocalRunner) { r.config.Observer = o }
}

// WithAbandonOnShutdown makes processors give up on retries once Stop is
// called.
func WithAbandonOnShutdown() RunnerOption {
	return func(r *LocalRunner) { r.config.AbandonOnShutdown = true }
}

// NewLocalRunner creates a runner around ec. A nil ec gets a fresh
// ExecutionContext with default settings.
func NewLocalRunner(ec *api.ExecutionContext, opts ...RunnerOption) *LocalRunner {
	if ec == nil {
		ec = api.NewExecutionContext()
	}
	r := &LocalRunner{
		Queue:   api.NewWorkQueue("main"),
		Context: ec,
		Worker:  api.DirectWorker{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches concurrency processors over the shared queue. All of them
// share one shutdown signal.
//
// If Start is called more than once without Stop, it returns an error.
func (r *LocalRunner) Start(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.group != nil {
		return ErrRunnerStarted
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	shutdown := api.NewSignal(false)

	processors := make([]*worker.Processor, concurrency)
	for i := range processors {
		cfg := r.config
		cfg.Name = fmt.Sprintf("%s-%d", r.Queue.Name(), i)
		cfg.Shutdown = shutdown
		p := worker.NewWithConfig(r.Worker, r.Queue, r.Context, cfg)
		processors[i] = p
		group.Go(func() error {
			err := p.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	r.group = group
	r.cancel = cancel
	r.processors = processors
	r.shutdown = shutdown
	return nil
}

// Assign places actions on the shared queue.
func (r *LocalRunner) Assign(actions ...api.Executable) {
	for _, a := range actions {
		r.Queue.Assign(a)
	}
}

// Processors returns the processors started by the last Start.
func (r *LocalRunner) Processors() []*worker.Processor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*worker.Processor(nil), r.processors...)
}

// Stop requests a cooperative shutdown and waits for every processor to
// finish its in-flight action. Actions still queued stay on the queue.
func (r *LocalRunner) Stop() error {
	r.mu.Lock()
	group, cancel, processors := r.group, r.cancel, r.processors
	r.group, r.cancel, r.processors = nil, nil, nil
	r.shutdown = nil
	r.mu.Unlock()

	if group == nil {
		return nil
	}
	for _, p := range processors {
		p.Shutdown()
	}
	err := group.Wait()
	cancel()
	return err
}
