package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/petrijr/echo/pkg/config"
)

// Hook is a named callback run before an action's handler. Hooks are
// resolved from the ExecutionContext by the names listed in the action's
// "Hooks" metadata.
type Hook func(ctx context.Context, action Executable) error

// Cache stores handler results and cross-action state. Implementations must
// be safe for concurrent use; entries never expire implicitly.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// ExecutionContext is the state shared by every action executed in one
// session: hooks, configuration, the result cache and named sub-queues.
//
// Each concern has its own lock. An ExecutionContext may be shared by any
// number of processors.
type ExecutionContext struct {
	hooksMu sync.RWMutex
	hooks   map[string]Hook

	queuesMu sync.RWMutex
	queues   map[string]*WorkQueue

	config config.Reader
	cache  Cache
	logger *slog.Logger
}

// ContextOption configures an ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithConfig sets the read-only configuration handle.
func WithConfig(r config.Reader) ContextOption {
	return func(ec *ExecutionContext) { ec.config = r }
}

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) ContextOption {
	return func(ec *ExecutionContext) { ec.cache = c }
}

// WithLogger sets the logger used by action execution.
func WithLogger(l *slog.Logger) ContextOption {
	return func(ec *ExecutionContext) { ec.logger = l }
}

// WithHook registers a hook.
func WithHook(name string, h Hook) ContextOption {
	return func(ec *ExecutionContext) { ec.hooks[name] = h }
}

// WithQueue registers a named sub-queue.
func WithQueue(q *WorkQueue) ContextOption {
	return func(ec *ExecutionContext) { ec.queues[q.Name()] = q }
}

// NewExecutionContext creates a context with an empty configuration and an
// in-memory cache unless options say otherwise.
func NewExecutionContext(opts ...ContextOption) *ExecutionContext {
	ec := &ExecutionContext{
		hooks:  make(map[string]Hook),
		queues: make(map[string]*WorkQueue),
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.config == nil {
		ec.config = config.Empty()
	}
	if ec.cache == nil {
		ec.cache = NewMemoryCache()
	}
	if ec.logger == nil {
		ec.logger = slog.Default()
	}
	return ec
}

// AddHook registers or replaces the hook under name.
func (ec *ExecutionContext) AddHook(name string, h Hook) {
	ec.hooksMu.Lock()
	ec.hooks[name] = h
	ec.hooksMu.Unlock()
}

// Hook returns the hook registered under name.
func (ec *ExecutionContext) Hook(name string) (Hook, bool) {
	ec.hooksMu.RLock()
	defer ec.hooksMu.RUnlock()
	h, ok := ec.hooks[name]
	return h, ok
}

func (ec *ExecutionContext) Config() config.Reader {
	return ec.config
}

func (ec *ExecutionContext) Cache() Cache {
	return ec.cache
}

func (ec *ExecutionContext) Logger() *slog.Logger {
	return ec.logger
}

// AddQueue registers q under its name, replacing any previous queue with the
// same name.
func (ec *ExecutionContext) AddQueue(q *WorkQueue) {
	ec.queuesMu.Lock()
	ec.queues[q.Name()] = q
	ec.queuesMu.Unlock()
}

// Queue returns the sub-queue registered under name.
func (ec *ExecutionContext) Queue(name string) (*WorkQueue, bool) {
	ec.queuesMu.RLock()
	defer ec.queuesMu.RUnlock()
	q, ok := ec.queues[name]
	return q, ok
}

// Route assigns action to the named sub-queue. It returns a Routing error if
// no such queue is registered.
func (ec *ExecutionContext) Route(queue string, action Executable) error {
	q, ok := ec.Queue(queue)
	if !ok {
		name := ""
		if action != nil {
			name = action.Name()
		}
		return routingError(name, "route to "+queue, fmt.Errorf("%w: %s", ErrQueueNotFound, queue))
	}
	q.Assign(action)
	return nil
}

// Drain executes the actions currently queued on the named sub-queue in
// FIFO order and returns how many ran. A failing action does not stop the
// drain; all failures are joined into the returned error.
func (ec *ExecutionContext) Drain(ctx context.Context, queue string) (int, error) {
	q, ok := ec.Queue(queue)
	if !ok {
		return 0, routingError("", "drain "+queue, fmt.Errorf("%w: %s", ErrQueueNotFound, queue))
	}
	var (
		n    int
		errs []error
	)
	for {
		if err := ctx.Err(); err != nil {
			errs = append(errs, cancellationError("", err))
			break
		}
		action, ok := q.Claim()
		if !ok {
			break
		}
		n++
		if err := action.Execute(ctx, ec); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

type execContextKey struct{}

// WithExecutionContext returns a copy of ctx carrying ec.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, execContextKey{}, ec)
}

// FromContext returns the ExecutionContext attached to ctx, or nil. Handlers
// and hooks use it to route follow-on work.
func FromContext(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(execContextKey{}).(*ExecutionContext)
	return ec
}

// MemoryCache is the default Cache, an in-process map.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]any
}

var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]any)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	c.m[key] = value
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
