package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/echo/pkg/config"
	"github.com/petrijr/echo/pkg/log"
)

// DefaultMaxChainDepth bounds NextAction recursion when the configuration
// does not set max_chain_depth.
const DefaultMaxChainDepth = 16

// Executable is the type-erased view of an Action held by queues, workers and
// processors.
type Executable interface {
	ID() string
	Name() string
	Metadata() Metadata
	License() *Signal[bool]
	Execute(ctx context.Context, ec *ExecutionContext) error
}

// Action is a unit of work: a payload, control metadata, a license gate and
// the registry its handler is resolved from.
//
// An action is built with New and WithMetadata before it is assigned to a
// queue. It must not be modified once it has been handed to a queue.
type Action[T any] struct {
	id      string
	name    string
	content T
	meta    Metadata
	license *Signal[bool]
	plan    *Registry
}

var _ Executable = (*Action[any])(nil)

// New creates an action whose "Action" metadata names its own handler. The
// license starts out granted.
func New[T any](name string, content T, plan *Registry) *Action[T] {
	return &Action[T]{
		id:      uuid.NewString(),
		name:    name,
		content: content,
		meta:    Metadata{MetaAction: name},
		license: NewSignal(true),
		plan:    plan,
	}
}

// WithMetadata sets key to value and returns the action.
func (a *Action[T]) WithMetadata(key string, value any) *Action[T] {
	a.meta[key] = value
	return a
}

// WithoutMetadata removes key and returns the action.
func (a *Action[T]) WithoutMetadata(key string) *Action[T] {
	delete(a.meta, key)
	return a
}

// WithID overrides the generated identifier.
func (a *Action[T]) WithID(id string) *Action[T] {
	if id != "" {
		a.id = id
	}
	return a
}

// WithLicense shares license with the action, so the caller can revoke it
// later.
func (a *Action[T]) WithLicense(license *Signal[bool]) *Action[T] {
	if license != nil {
		a.license = license
	}
	return a
}

func (a *Action[T]) ID() string   { return a.id }
func (a *Action[T]) Name() string { return a.name }
func (a *Action[T]) Content() T   { return a.content }

// Metadata returns a copy of the action's metadata.
func (a *Action[T]) Metadata() Metadata { return a.meta.Clone() }

func (a *Action[T]) License() *Signal[bool] { return a.license }
func (a *Action[T]) Plan() *Registry        { return a.plan }

// Execute runs the action against ec. The steps run in a fixed order and
// the first failure is returned:
//
//  1. resolve the handler name from "Action" metadata
//  2. check the license
//  3. sleep for "Delay"
//  4. run the "Hooks" found in ec, in order
//  5. resolve the handler from the registry
//  6. build the argument vector and invoke the handler
//  7. store the result in ec's cache
//  8. execute "NextAction" as an independent pass
//
// A handler that cannot be resolved fails before any hook runs.
func (a *Action[T]) Execute(ctx context.Context, ec *ExecutionContext) error {
	if ec == nil {
		return executionError(a.name, "nil execution context", nil)
	}
	name, ok := a.meta.String(MetaAction)
	if !ok || name == "" {
		return executionError(a.name, "missing Action metadata", nil)
	}
	if !a.license.Get() {
		return licenseError(name)
	}

	ctx, err := enterChain(ctx, a, ec.Config())
	if err != nil {
		return executionError(name, "chain rejected", err)
	}
	ctx = WithExecutionContext(ctx, ec)

	if a.plan == nil || !a.plan.Has(name) {
		return executionError(name, "resolve handler", fmt.Errorf("%w: %s", ErrHandlerNotFound, name))
	}

	ec.Logger().DebugContext(ctx, "action_execute", log.Action(name), log.ActionID(a.id))

	if err := a.delay(ctx, name); err != nil {
		return err
	}
	if err := a.runHooks(ctx, ec, name); err != nil {
		return err
	}

	h, err := a.plan.resolve(name)
	if err != nil {
		return executionError(name, "resolve handler", err)
	}
	args, err := a.Argument()
	if err != nil {
		return executionError(name, "build arguments", err)
	}

	value, err := h.Invoke(ctx, args)
	if err != nil {
		var ae *ActionError
		if errors.As(err, &ae) {
			return err
		}
		return executionError(name, "handler failed", err)
	}

	if err := a.Result(ctx, ec, value); err != nil {
		return executionError(name, "store result", err)
	}

	return a.next(ctx, ec, name)
}

func (a *Action[T]) delay(ctx context.Context, name string) error {
	d, present, err := a.meta.Duration(MetaDelay)
	if err != nil {
		return executionError(name, "read Delay metadata", err)
	}
	if !present || d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return cancellationError(name, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (a *Action[T]) runHooks(ctx context.Context, ec *ExecutionContext, name string) error {
	hooks, _, err := a.meta.Strings(MetaHooks)
	if err != nil {
		return executionError(name, "read Hooks metadata", err)
	}
	for _, hookName := range hooks {
		hook, ok := ec.Hook(hookName)
		if !ok {
			ec.Logger().DebugContext(ctx, "hook_skipped", log.Action(name), slog.String("hook", hookName))
			continue
		}
		if err := hook(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Argument builds the handler's argument vector. Content that implements
// Arguments() []any, or is itself a []any, is spread; any other non-nil
// content is the single argument. Values from "Arguments" metadata are
// appended. When the handler's signature declares input types, the vector
// must match their count.
func (a *Action[T]) Argument() ([]any, error) {
	var args []any
	switch c := any(a.content).(type) {
	case nil:
	case interface{ Arguments() []any }:
		args = append(args, c.Arguments()...)
	case []any:
		args = append(args, c...)
	default:
		args = append(args, c)
	}

	if extra, ok := a.meta.Get(MetaArguments); ok && extra != nil {
		if list, ok := extra.([]any); ok {
			args = append(args, list...)
		} else {
			args = append(args, extra)
		}
	}

	if a.plan != nil {
		name, _ := a.meta.String(MetaAction)
		if sig, ok := a.plan.Signature(name); ok && sig.InputTypes != nil && len(sig.InputTypes) != len(args) {
			return nil, fmt.Errorf("signature %s expects %d arguments, got %d", name, len(sig.InputTypes), len(args))
		}
	}
	return args, nil
}

// Result records a handler's value in the cache, under "ResultKey" metadata
// when present and the action name otherwise. Nil values are not stored.
func (a *Action[T]) Result(ctx context.Context, ec *ExecutionContext, value any) error {
	if value == nil {
		return nil
	}
	key := a.name
	if k, ok := a.meta.String(MetaResultKey); ok && k != "" {
		key = k
	}
	return ec.Cache().Set(ctx, key, value)
}

func (a *Action[T]) next(ctx context.Context, ec *ExecutionContext, name string) error {
	raw, ok := a.meta.Get(MetaNextAction)
	if !ok || raw == nil {
		return nil
	}
	next, ok := raw.(Executable)
	if !ok {
		return executionError(name, "parse NextAction", fmt.Errorf("unexpected type %T", raw))
	}
	return next.Execute(ctx, ec)
}

// chainFrame records the actions on the current NextAction chain. Cycles
// are detected on action identity, so distinct actions sharing an ID may
// appear on the same chain.
type chainFrame struct {
	parent *chainFrame
	action Executable
	depth  int
}

type chainKey struct{}

// enterChain is only called from Action.Execute, so a is always a pointer
// and comparing frames with == is safe.
func enterChain(ctx context.Context, a Executable, cfg config.Reader) (context.Context, error) {
	parent, _ := ctx.Value(chainKey{}).(*chainFrame)
	depth := 1
	for f := parent; f != nil; f = f.parent {
		if f.action == a {
			return ctx, fmt.Errorf("%w: %s", ErrChainCycle, a.ID())
		}
	}
	if parent != nil {
		depth = parent.depth + 1
	}
	limit := config.Int(cfg, config.KeyMaxChainDepth, DefaultMaxChainDepth)
	if limit > 0 && depth > limit {
		return ctx, fmt.Errorf("%w: depth %d exceeds %d", ErrChainTooDeep, depth, limit)
	}
	return context.WithValue(ctx, chainKey{}, &chainFrame{parent: parent, action: a, depth: depth}), nil
}
