package dispatch

import "time"

// Outcome is the terminal state of a run.
type Outcome int

const (
	// OutcomePending means the run has not reached a terminal state yet.
	OutcomePending Outcome = iota
	// OutcomeCompleted means every index was processed and Final was invoked.
	OutcomeCompleted
	// OutcomeAbandoned means the TTL elapsed before completion. Final was not invoked.
	OutcomeAbandoned
	// OutcomeCancelled means the caller's context was cancelled or Stop was called.
	OutcomeCancelled
	// OutcomeStopped means a callback failed with StopOnError enabled.
	OutcomeStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Report describes a run. Counters are a snapshot: after an abandoned run,
// workers that were already running may still be finishing.
type Report struct {
	Outcome     Outcome
	Workload    int
	ThreadLimit int
	Planning    bool

	// Invoked counts callbacks that were entered.
	Invoked int64
	// Completed counts callbacks that returned, successfully or not.
	Completed int64

	Elapsed time.Duration

	// Err joins every CallbackError collected so far (nil if none).
	Err error
}
