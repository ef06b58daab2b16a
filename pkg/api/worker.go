package api

import "context"

// Worker drives the execution of a claimed action. It is the seam where
// hosts add metrics, tracing or alternate dispatch without touching the
// processor.
type Worker interface {
	Receive(ctx context.Context, action Executable, ec *ExecutionContext) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, action Executable, ec *ExecutionContext) error

func (f WorkerFunc) Receive(ctx context.Context, action Executable, ec *ExecutionContext) error {
	return f(ctx, action, ec)
}

// DirectWorker executes the action in the calling goroutine.
type DirectWorker struct{}

func (DirectWorker) Receive(ctx context.Context, action Executable, ec *ExecutionContext) error {
	return action.Execute(ctx, ec)
}
