package worker

import (
	"context"
	"sync"

	"github.com/petrijr/echo/pkg/api"
)

// Router dispatches each action to the Worker registered for its name.
// Actions without a route go to the fallback; with no fallback they fail
// with a Routing error.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]api.Worker
	fallback api.Worker
}

var _ api.Worker = (*Router)(nil)

// NewRouter creates a Router. fallback may be nil.
func NewRouter(fallback api.Worker) *Router {
	return &Router{routes: make(map[string]api.Worker), fallback: fallback}
}

// Handle routes actions named name to w.
func (r *Router) Handle(name string, w api.Worker) *Router {
	r.mu.Lock()
	r.routes[name] = w
	r.mu.Unlock()
	return r
}

func (r *Router) Receive(ctx context.Context, action api.Executable, ec *api.ExecutionContext) error {
	r.mu.RLock()
	w, ok := r.routes[action.Name()]
	r.mu.RUnlock()
	if !ok {
		w = r.fallback
	}
	if w == nil {
		return api.NewError(api.KindRouting, action.Name(), "no route for action", nil)
	}
	return w.Receive(ctx, action, ec)
}
