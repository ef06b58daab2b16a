// Package worker provides the processor loop used to drain echo work queues.
//
// A Processor owns a Worker, a WorkQueue and an ExecutionContext. It claims
// actions from the queue, hands them to the worker and applies the retry
// policy to failures. Processors are lightweight and easy to embed in
// existing services; several of them can share one queue, in which case the
// first idle processor claims the next action.
//
// # Processor Responsibilities
//
// A processor is responsible for:
//
//   - Claiming actions from a shared work queue
//   - Dispatching them to a Worker
//   - Retrying failures with exponential backoff
//   - Reporting lifecycle events via observers
//   - Stopping cooperatively when Shutdown is called
//
// A single action's permanent failure is logged and reported; it never stops
// the loop. Only Shutdown, context cancellation or a missing collaborator
// ends Run.
//
// # Configuration
//
// Retry and idle settings are read from the execution context configuration
// (max_retries, retry_base_delay, retry_multiplier, retry_max_delay,
// retry_jitter, idle_backoff, max_idle_backoff) and can be overridden per
// processor with Config.
//
// # Workers
//
// The Worker interface lives in the api package. This package adds
// decorators:
//
//   - Router dispatches by action name, with an optional fallback.
//   - Traced wraps each dispatch in an OpenTelemetry span.
//
// # Shutdown
//
// Shutdown is cooperative. An action that has already been claimed runs to
// completion (including its retries, unless AbandonOnShutdown is set); no
// new action is claimed once the shutdown signal has been observed.
package worker
