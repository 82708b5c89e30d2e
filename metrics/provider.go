// Package metrics defines the instruments a dispatcher reports to.
//
// A Provider hands out named instruments. The dispatcher asks for each
// instrument once per run and records into it from the coordinating loop and
// from worker goroutines, so every implementation must be safe for concurrent use.
package metrics

// Instrument names recorded by the dispatcher.
const (
	WorkersSpawned     = "dispatch_workers_spawned"
	WorkersActive      = "dispatch_workers_active"
	CallbacksCompleted = "dispatch_callbacks_completed"
	CallbackErrors     = "dispatch_callback_errors"
	CallbackSeconds    = "dispatch_callback_seconds"
	RunsCompleted      = "dispatch_runs_completed"
	RunsAbandoned      = "dispatch_runs_abandoned"
)

// Provider constructs instruments.
type Provider interface {
	Counter(name string) Counter
	Gauge(name string) Gauge
	Histogram(name string) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Inc()
}

// Gauge records a value that moves up and down, such as live workers.
type Gauge interface {
	Add(delta int64)
}

// Histogram records a distribution of observations, such as callback durations in seconds.
type Histogram interface {
	Observe(v float64)
}
