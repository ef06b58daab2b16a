package api

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Handler performs the work behind a named action.
type Handler interface {
	Invoke(ctx context.Context, args []any) (any, error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, args []any) (any, error)

func (f HandlerFunc) Invoke(ctx context.Context, args []any) (any, error) {
	return f(ctx, args)
}

// Unary adapts a single-argument typed function to Handler. The argument
// vector must hold exactly one value assignable to A.
func Unary[A, R any](fn func(ctx context.Context, arg A) (R, error)) Handler {
	return HandlerFunc(func(ctx context.Context, args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		a, ok := args[0].(A)
		if !ok {
			var zero A
			return nil, fmt.Errorf("argument type mismatch: expected %T, got %T", zero, args[0])
		}
		return fn(ctx, a)
	})
}

// Signature describes the declared shape of a named handler. It is metadata
// only; a signature may exist without a handler and vice versa.
type Signature struct {
	Name       string
	InputTypes []string
	OutputType string
}

// Registry stores named handlers and signatures. It is safe for concurrent
// use and is normally shared by reference between many actions.
//
// By default actions resolve handlers with Lookup, so a handler can serve any
// number of executions. A single-use registry resolves with Remove instead:
// each registration serves exactly one successful resolution, and concurrent
// actions naming the same handler race for it.
type Registry struct {
	mu         sync.RWMutex
	signatures map[string]Signature
	handlers   map[string]Handler
	singleUse  bool
}

// NewRegistry creates an empty shared-lookup registry.
func NewRegistry() *Registry {
	return &Registry{
		signatures: make(map[string]Signature),
		handlers:   make(map[string]Handler),
	}
}

// Sign inserts or replaces the signature for sig.Name.
func (r *Registry) Sign(sig Signature) {
	r.mu.Lock()
	r.signatures[sig.Name] = sig
	r.mu.Unlock()
}

// Add registers h under name. It fails if name already has a handler.
func (r *Registry) Add(name string, h Handler) error {
	if h == nil {
		return fmt.Errorf("handler %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerExists, name)
	}
	r.handlers[name] = h
	return nil
}

// Remove deletes the handler registered under name and returns it.
func (r *Registry) Remove(name string) (Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
	delete(r.handlers, name)
	return h, nil
}

// Lookup returns the handler registered under name without removing it.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Retire drops the handler registered under name. It reports whether a
// handler was present.
func (r *Registry) Retire(name string) bool {
	_, err := r.Remove(name)
	return err == nil
}

// Has reports whether a handler is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Signature returns the signature declared for name.
func (r *Registry) Signature(name string) (Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.signatures[name]
	return sig, ok
}

// Names returns the sorted names of all registered handlers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// SingleUse reports whether executions consume their handler.
func (r *Registry) SingleUse() bool {
	return r.singleUse
}

// resolve is the read path used by Action.Execute.
func (r *Registry) resolve(name string) (Handler, error) {
	if r.singleUse {
		return r.Remove(name)
	}
	h, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, name)
	}
	return h, nil
}
