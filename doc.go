// Package echo provides a small, embeddable engine for executing actions
// asynchronously inside a Go process.
//
// An action is a named unit of work: a typed payload, a metadata map that
// steers how it runs, and a license gate that can veto it. Actions resolve
// their handler by name from a Registry, are placed on a shared WorkQueue,
// and are drained by any number of processors that retry failures with
// exponential backoff.
//
// # Core Concepts
//
//  1. Registry and Plan
//  2. Action
//  3. WorkQueue
//  4. ExecutionContext
//  5. Processor and LocalRunner
//
// # Registry and Plan
//
// A Plan collects handlers and their signatures and builds an immutable
// Registry:
//
//	reg := echo.NewPlan().
//		Func("Greet", func(ctx context.Context, args []any) (any, error) {
//			return "hello " + args[0].(string), nil
//		}).
//		MustBuild()
//
// # Actions
//
// Execute interprets an action's metadata in a fixed order: license check,
// "Delay", "Hooks", the handler, result caching and finally "NextAction":
//
//	a := echo.NewAction("Greet", "world", reg).
//		WithMetadata(echo.MetaHooks, []string{"audit"}).
//		WithMetadata(echo.MetaDelay, "50ms")
//
// # Running
//
// LocalRunner bundles a queue, an execution context and N processors:
//
//	runner := echo.NewLocalRunner(nil)
//	_ = runner.Start(ctx, 4)
//	runner.Assign(a)
//	...
//	_ = runner.Stop()
//
// Processors read their retry settings from the execution context
// configuration; config.FromEnv loads them from ECHO_* environment
// variables.
//
// # Backends
//
// Results are cached in memory by default. Redis, SQLite, PostgreSQL and
// MongoDB caches live in pkg/cache, and pkg/relay accepts actions from
// WebSocket peers.
package echo
