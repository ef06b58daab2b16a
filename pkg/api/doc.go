// Package api contains the core building blocks of the echo action engine.
// It provides the action data model, the handler registry, the shared work
// queue, the execution context and the observer hooks used by processors.
//
// Most users interact with the higher-level echo package, which re-exports
// selected types and wires processors together. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Actions and their metadata
//   - Handlers and registries
//   - Work queues
//   - Execution contexts
//   - Observability
//
// # Actions
//
// An Action combines a typed payload, a metadata map, a license signal and a
// reference to the Registry its handler is resolved from. Execute interprets
// the metadata in a fixed order: license, "Delay", "Hooks", the handler
// itself, the result and finally "NextAction", which runs as an independent
// pass with its own license, delay and hooks. Chains are bounded by
// max_chain_depth and an action may not appear twice on one chain.
//
// # Registries
//
// A Registry maps names to Handlers and, separately, to Signatures. By
// default handlers are looked up and can serve any number of actions. A
// registry built with Plan.WithSingleUse hands out each handler once.
//
// # Queues and Contexts
//
// A WorkQueue is a FIFO shared by any number of processors. An
// ExecutionContext holds the hooks, configuration, result cache and named
// sub-queues shared by every action in a session; handlers reach it through
// FromContext.
//
// # Errors
//
// Every failure is an *ActionError of kind License, Execution, Routing or
// Cancellation. Use errors.Is with ErrLicense, ErrExecution, ErrRouting or
// ErrCancellation to test the kind; handler errors stay reachable through
// errors.Is and errors.As.
//
// # Observability
//
// The Observer interface is used by processors to report lifecycle events.
// LoggingObserver writes them with log/slog, BasicMetrics keeps counters,
// and NewCompositeObserver combines several observers.
package api
