// Package dispatch invokes a callback once per index of a workload [0, N)
// with a bounded number of concurrently running worker goroutines, then
// signals completion.
//
// Strategies
//   - Dynamic (default): the coordinating loop spawns a short-lived worker per
//     index on demand while fewer than ThreadLimit are alive, pausing SleepTime
//     after every spawn attempt. Each worker claims the next index atomically.
//   - Planning (WithPlanningMode): the workload is partitioned round robin into
//     ThreadLimit buckets (see package plan); one long-lived worker per bucket
//     processes its indices in order. When ThreadLimit exceeds the workload
//     only one bucket per index is created.
//
// Completion
// Final (WithFinal) is invoked exactly once, from the coordinating goroutine,
// after the last callback returned. It is not invoked when the run ends early.
//
// TTL
// WithTTL arms a watchdog measured on the monotonic clock. In dynamic mode the
// loop stops spawning and returns as soon as the TTL elapses, and every
// in-flight worker's ctx is cancelled. In planning mode the TTL only prevents
// buckets that have not started yet from starting. A spawn waiting on
// WithSpawnRate is abandoned when the TTL elapses. Cancellation is cooperative:
// a callback that does not watch its ctx runs to its end.
//
// Failures
// A callback that panics or returns a non-cancellation error ends only its own
// invocation; the failure is tagged with its index (CallbackError) and reported
// in Report.Err. WithStopOnError turns the first failure into the end of the run.
//
// Defaults
//   - ThreadLimit: host available parallelism
//   - SleepTime: 1ms
//   - TTL: disabled
//   - Start blocks unless WithRunAsync is given
//
// A Dispatcher is single-use: create a new one per workload.
package dispatch
